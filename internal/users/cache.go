package users

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const profileKeyPrefix = "flume:profile:"

// CachedRepo puts a Redis read-through cache in front of Repo. Cache
// failures are logged and fall through to the store.
type CachedRepo struct {
	repo *Repo
	rdb  *redis.Client
	ttl  time.Duration
	log  *zap.Logger
}

func NewCachedRepo(repo *Repo, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedRepo{repo: repo, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedRepo) Get(ctx context.Context, uid string) (*Profile, error) {
	key := profileKeyPrefix + uid

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Profile
		if jerr := json.Unmarshal(raw, &p); jerr == nil {
			return &p, nil
		}
		c.log.Warn("discarding corrupt cached profile", zap.String("uid", uid))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("profile cache read failed", zap.String("uid", uid), zap.Error(err))
	}

	p, err := c.repo.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, p)
	return p, nil
}

// EnsureUser delegates to Repo and refreshes the cached copy.
func (c *CachedRepo) EnsureUser(ctx context.Context, u UpsertUser) (*Profile, bool, error) {
	p, created, err := c.repo.EnsureUser(ctx, u)
	if err != nil {
		return nil, false, err
	}
	c.store(ctx, profileKeyPrefix+p.UID, p)
	return p, created, nil
}

func (c *CachedRepo) store(ctx context.Context, key string, p *Profile) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("profile cache write failed", zap.String("key", key), zap.Error(err))
	}
}
