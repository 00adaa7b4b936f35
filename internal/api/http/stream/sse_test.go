package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, snaps <-chan int, render Render[int], keepAlive time.Duration, timeout time.Duration) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/s", func(c *gin.Context) {
		Serve(c, snaps, render, keepAlive, nil)
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/s", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestServe_WritesSnapshotsUntilClosed(t *testing.T) {
	snaps := make(chan int, 2)
	snaps <- 1
	snaps <- 2
	close(snaps)

	w := serve(t, snaps, func(n int) (any, error) { return gin.H{"n": n}, nil }, time.Minute, 5*time.Second)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sse.ContentType, w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event:snapshot\n"))
	assert.Contains(t, body, `data:{"n":1}`)
	assert.Contains(t, body, `data:{"n":2}`)
}

func TestServe_ErrorEndsStream(t *testing.T) {
	snaps := make(chan int, 2)
	snaps <- 1
	snaps <- 2

	w := serve(t, snaps, func(n int) (any, error) {
		if n == 1 {
			return nil, errors.New("permission denied")
		}
		return n, nil
	}, time.Minute, 5*time.Second)

	body := w.Body.String()
	assert.Contains(t, body, "event:error\n")
	assert.NotContains(t, body, "event:snapshot")
}

func TestServe_KeepAliveAndDisconnect(t *testing.T) {
	snaps := make(chan int)

	w := serve(t, snaps, func(n int) (any, error) { return n, nil }, 10*time.Millisecond, 100*time.Millisecond)

	assert.Contains(t, w.Body.String(), ": keep-alive\n\n")
}
