package main

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/config"
	"github.com/flume-app/flume-backend/internal/bootstrap"
)

// backends are the connections opened for one command run.
type backends struct {
	firebase *firebase.App
	store    *bootstrap.Store
	db       *pgxpool.Pool
	redis    *redis.Client
}

func openBackends(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{}

	needsFirebase := cfg.Auth.Mode == config.AuthFirebase || cfg.Store.Backend == config.BackendFirestore
	if needsFirebase {
		fb, err := bootstrap.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			return nil, err
		}
		b.firebase = fb
	}

	store, err := bootstrap.OpenStore(ctx, cfg, b.firebase, log)
	if err != nil {
		return nil, err
	}
	b.store = store

	if cfg.Database.DSN != "" {
		pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN})
		if err != nil {
			b.close(log)
			return nil, err
		}
		b.db = pool
	}

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		// Redis only backs caches and the in-flight guard.
		log.Warn("redis unavailable, continuing without it", zap.Error(err))
	}
	b.redis = rdb

	return b, nil
}

func (b *backends) close(log *zap.Logger) {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			log.Warn("redis close", zap.Error(err))
		}
	}
	if b.db != nil {
		b.db.Close()
	}
	if b.store != nil {
		if err := b.store.Close(); err != nil {
			log.Warn("store close", zap.Error(err))
		}
	}
}

func (b *backends) routerDeps(ctx context.Context, cfg *config.Config, log *zap.Logger) (bootstrap.RouterDeps, error) {
	dep := bootstrap.RouterDeps{
		ServiceName: serviceName,
		Config:      cfg,
		Store:       b.store,
		DB:          b.db,
		Redis:       b.redis,
		Logger:      log,
	}
	if cfg.Auth.Mode == config.AuthFirebase {
		client, err := b.firebase.Auth(ctx)
		if err != nil {
			return dep, fmt.Errorf("failed to get Auth client: %w", err)
		}
		dep.Verifier = client
	}
	return dep, nil
}
