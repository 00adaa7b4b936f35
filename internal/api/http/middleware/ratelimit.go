package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterIdle is how long an unused per-user limiter is kept.
const limiterIdle = 10 * time.Minute

type userLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per user.
type RateLimiter struct {
	mu     sync.Mutex
	users  map[string]*userLimiter
	rps    rate.Limit
	burst  int
	now    func() time.Time
	lastGC time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		users: map[string]*userLimiter{},
		rps:   rate.Limit(rps),
		burst: burst,
		now:   time.Now,
	}
}

func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastGC) > limiterIdle {
		for k, u := range l.users {
			if now.Sub(u.lastSeen) > limiterIdle {
				delete(l.users, k)
			}
		}
		l.lastGC = now
	}

	u, ok := l.users[key]
	if !ok {
		u = &userLimiter{lim: rate.NewLimiter(l.rps, l.burst)}
		l.users[key] = u
	}
	u.lastSeen = now
	return u.lim.AllowN(now, 1)
}

// Middleware answers 429 once the caller's bucket is empty. A zero rate
// disables limiting.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.rps <= 0 {
			c.Next()
			return
		}
		key := c.GetString("firebase_uid")
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !l.allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "too many requests, please slow down"})
			return
		}
		c.Next()
	}
}
