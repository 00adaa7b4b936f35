package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const inFlightPrefix = "flume:inflight:"

// InFlight rejects a mutation with 409 while the same user already has the
// same request running. The key is (uid, method, path) and is held for at
// most ttl. With a nil client the guard is a no-op. Redis errors let the
// request through.
func InFlight(rdb *redis.Client, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	if rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		uid := c.GetString("firebase_uid")
		if uid == "" {
			uid = "ip:" + c.ClientIP()
		}
		key := inFlightPrefix + strings.Join([]string{uid, c.Request.Method, c.Request.URL.Path}, "|")

		ok, err := rdb.SetNX(c.Request.Context(), key, c.GetString("request_id"), ttl).Result()
		if err != nil {
			log.Warn("in-flight guard unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"ok": false, "error": "request already in progress"})
			return
		}

		defer func() {
			// The client may be gone; release the key regardless.
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := rdb.Del(ctx, key).Err(); err != nil {
				log.Warn("release in-flight key failed", zap.String("key", key), zap.Error(err))
			}
		}()
		c.Next()
	}
}
