package routes

import (
	"github.com/gin-gonic/gin"

	authhttp "github.com/flume-app/flume-backend/internal/auth/http"
	notifhttp "github.com/flume-app/flume-backend/internal/notifications/http"
	projecthttp "github.com/flume-app/flume-backend/internal/projects/http"
)

type V1Deps struct {
	// Auth identifies the caller on every authenticated route.
	Auth gin.HandlerFunc
	// Guard runs in front of every mutation.
	Guard []gin.HandlerFunc

	Users         *authhttp.Handler
	Projects      *projecthttp.Handler
	Notifications *notifhttp.Handler
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	public := r.Group("/api/v1/public")
	dep.Projects.RegisterPublic(public, dep.Guard...)

	api := r.Group("/api/v1")
	api.Use(dep.Auth)

	dep.Users.Register(api.Group("/auth"))
	dep.Projects.Register(api, dep.Guard...)
	dep.Notifications.Register(api)
}
