package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flume-app/flume-backend/internal/auth/domain"
)

// Keys set on the gin context by the auth middlewares.
const (
	CtxFirebaseUID = "firebase_uid"
	CtxEmail       = "email"
	CtxName        = "name"
	CtxPicture     = "picture"
)

// UserFirebaseUID extracts the Firebase UID from the Gin context.
func UserFirebaseUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}

// CurrentIdentity returns the caller set by the auth middleware. UID is
// empty on unauthenticated routes.
func CurrentIdentity(c *gin.Context) domain.Identity {
	return domain.Identity{
		UID:         UserFirebaseUID(c),
		Email:       c.GetString(CtxEmail),
		DisplayName: c.GetString(CtxName),
		PhotoURL:    c.GetString(CtxPicture),
	}
}

// SetIdentity stores id on the context.
func SetIdentity(c *gin.Context, id domain.Identity) {
	c.Set(CtxFirebaseUID, id.UID)
	c.Set(CtxEmail, id.Email)
	c.Set(CtxName, id.DisplayName)
	c.Set(CtxPicture, id.PhotoURL)
}
