package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/internal/projects/domain"
)

// fail writes the response for a service error. Store failures are logged
// and reported without detail.
func (h *Handler) fail(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "please sign in first"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": domain.ErrForbidden.Error()})
	case errors.Is(err, domain.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
	case errors.Is(err, domain.ErrTimeRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "time request not found"})
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		h.log.Error(action+" failed",
			zap.String("path", c.FullPath()),
			zap.String("uid", caller(c).UID),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to " + action + ", please try again"})
	}
}

func badBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body", "details": err.Error()})
}
