// Package stream writes live store snapshots as Server-Sent Events.
package stream

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultKeepAlive is the interval between comment frames that keep idle
// proxies from closing the connection.
const DefaultKeepAlive = 25 * time.Second

const EventSnapshot = "snapshot"

// Render turns one snapshot into the event payload. A non-nil error ends
// the stream with an "error" event.
type Render[T any] func(T) (any, error)

// Serve writes every value received on snaps as a "snapshot" event until
// the channel closes or the client goes away. Cancelling the request
// context releases the subscription that feeds snaps.
func Serve[T any](c *gin.Context, snaps <-chan T, render Render[T], keepAlive time.Duration, log *zap.Logger) {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	if log == nil {
		log = zap.NewNop()
	}

	h := c.Writer.Header()
	h.Set("Content-Type", sse.ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := io.WriteString(c.Writer, ": keep-alive\n\n"); err != nil {
				return
			}
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			payload, err := render(snap)
			if err != nil {
				log.Warn("snapshot stream failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
				c.SSEvent("error", gin.H{"error": "stream interrupted, please reconnect"})
				c.Writer.Flush()
				return
			}
			c.SSEvent(EventSnapshot, payload)
		}
		c.Writer.Flush()
	}
}
