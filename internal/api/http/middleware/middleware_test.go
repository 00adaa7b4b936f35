package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func withUser(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("firebase_uid", uid)
		c.Next()
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware(nil))
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get("X-Request-Id")
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestInFlight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr, rdb := setupTestRedis(t)

	r := gin.New()
	r.POST("/projects/:id/hours", withUser("u1"), InFlight(rdb, 10*time.Second, nil), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	t.Run("held key rejects duplicate", func(t *testing.T) {
		key := inFlightPrefix + "u1|POST|/projects/p1/hours"
		require.NoError(t, mr.Set(key, "other-request"))
		defer mr.Del(key)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/projects/p1/hours", nil))
		assert.Equal(t, http.StatusConflict, w.Code)

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/projects/p2/hours", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("key is released after the handler", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/projects/p1/hours", nil))
			assert.Equal(t, http.StatusCreated, w.Code)
		}
		assert.Empty(t, mr.Keys())
	})

	t.Run("redis failure lets the request through", func(t *testing.T) {
		mr.SetError("ERR server unavailable")
		defer mr.SetError("")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/projects/p1/hours", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("nil client is a no-op", func(t *testing.T) {
		r := gin.New()
		r.POST("/x", InFlight(nil, time.Second, nil), func(c *gin.Context) { c.Status(http.StatusOK) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/a", withUser("u1"), l.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/b", withUser("u2"), l.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := func(path string, n int) []int {
		out := make([]int, 0, n)
		for i := 0; i < n; i++ {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
			out = append(out, w.Code)
		}
		return out
	}

	assert.Equal(t, []int{200, 200, 429}, codes("/a", 3))
	assert.Equal(t, []int{200}, codes("/b", 1), "buckets are per user")

	now = now.Add(time.Second)
	assert.Equal(t, []int{200, 429}, codes("/a", 2))

	t.Run("zero rate disables", func(t *testing.T) {
		off := NewRateLimiter(0, 0)
		r := gin.New()
		r.POST("/c", off.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
		for i := 0; i < 5; i++ {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/c", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})
}
