package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apimw "github.com/flume-app/flume-backend/internal/api/http/middleware"
	"github.com/flume-app/flume-backend/internal/api/http/stream"
	"github.com/flume-app/flume-backend/internal/auth"
	"github.com/flume-app/flume-backend/internal/notifications"
)

type Handler struct {
	inbox     *notifications.Inbox
	log       *zap.Logger
	keepAlive time.Duration
}

func New(inbox *notifications.Inbox, log *zap.Logger, keepAlive time.Duration) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{inbox: inbox, log: log, keepAlive: keepAlive}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/notifications")
	g.GET("", h.list)
	g.GET("/stream", h.stream)
	g.POST("/read-all", h.markAllRead)
	g.POST("/:id/read", h.markRead)
}

func (h *Handler) list(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	items, unread, err := h.inbox.List(c.Request.Context(), uid)
	if err != nil {
		h.internal(c, err, "load notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "notifications": items, "unread": unread})
}

func (h *Handler) stream(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	snaps, err := h.inbox.Watch(c.Request.Context(), uid)
	if err != nil {
		h.internal(c, err, "watch notifications")
		return
	}
	stream.Serve(c, snaps, func(s notifications.InboxSnapshot) (any, error) {
		if s.Err != nil {
			return nil, s.Err
		}
		return gin.H{"notifications": s.Items, "unread": s.Unread}, nil
	}, h.keepAlive, h.log)
}

func (h *Handler) markRead(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	err := h.inbox.MarkRead(c.Request.Context(), uid, c.Param("id"))
	if errors.Is(err, notifications.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "notification not found"})
		return
	}
	if err != nil {
		h.internal(c, err, "mark notification read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) markAllRead(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	n, err := h.inbox.MarkAllRead(c.Request.Context(), uid)
	if err != nil {
		h.internal(c, err, "mark notifications read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "updated": n})
}

func requireUser(c *gin.Context) (string, bool) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "please sign in first"})
		return "", false
	}
	return uid, true
}

func (h *Handler) internal(c *gin.Context, err error, action string) {
	h.log.Error(action+" failed",
		zap.String("uid", auth.UserFirebaseUID(c)),
		zap.String("request_id", apimw.GetRequestID(c.Request.Context())),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to " + action + ", please try again"})
}
