package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flume-app/flume-backend/internal/auth"
	"github.com/flume-app/flume-backend/internal/auth/domain"
)

// DevUserID is used when X-User-Id is missing.
const DevUserID = "demo-user"

// DevAuthMiddleware trusts the X-User-* headers instead of a token.
// Use this ONLY for development/testing.
func DevAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if uid == "" {
			uid = DevUserID
		}
		auth.SetIdentity(c, domain.Identity{
			UID:         uid,
			Email:       strings.TrimSpace(c.GetHeader("X-User-Email")),
			DisplayName: strings.TrimSpace(c.GetHeader("X-User-Name")),
			PhotoURL:    strings.TrimSpace(c.GetHeader("X-User-Photo")),
		})
		c.Next()
	}
}
