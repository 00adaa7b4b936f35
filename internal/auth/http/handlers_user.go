package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/internal/auth"
	"github.com/flume-app/flume-backend/internal/auth/domain"
)

// GetProfile returns the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	id := auth.CurrentIdentity(c)
	if id.UID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	user, err := h.authService.GetProfile(c.Request.Context(), id)
	if errors.Is(err, domain.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
		return
	}
	if err != nil {
		h.log.Error("get profile failed", zap.String("uid", id.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to load profile, please try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

// SyncUser makes sure a profile exists for the signed-in user. It is called
// by the client right after Firebase sign-in.
func (h *Handler) SyncUser(c *gin.Context) {
	id := auth.CurrentIdentity(c)
	if id.UID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	// Optional body; token claims win when both are present.
	var body syncReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body", "details": err.Error()})
			return
		}
	}
	if id.DisplayName == "" {
		id.DisplayName = body.DisplayName
	}
	if id.Email == "" {
		id.Email = body.Email
	}

	user, err := h.authService.SyncUser(c.Request.Context(), id)
	if err != nil {
		h.log.Error("sync user failed", zap.String("uid", id.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to sync user, please try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}
