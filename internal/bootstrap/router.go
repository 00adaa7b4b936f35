package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/config"
	httpapi "github.com/flume-app/flume-backend/internal/api/http"
	apimw "github.com/flume-app/flume-backend/internal/api/http/middleware"
	"github.com/flume-app/flume-backend/internal/api/http/routes"
	"github.com/flume-app/flume-backend/internal/api/http/stream"
	authhttp "github.com/flume-app/flume-backend/internal/auth/http"
	authmw "github.com/flume-app/flume-backend/internal/auth/middleware"
	authservice "github.com/flume-app/flume-backend/internal/auth/service"
	"github.com/flume-app/flume-backend/internal/docstore"
	"github.com/flume-app/flume-backend/internal/notifications"
	notifhttp "github.com/flume-app/flume-backend/internal/notifications/http"
	projecthttp "github.com/flume-app/flume-backend/internal/projects/http"
	"github.com/flume-app/flume-backend/internal/projects/repository"
	"github.com/flume-app/flume-backend/internal/projects/service"
	"github.com/flume-app/flume-backend/internal/users"
)

// RouterDeps carries the opened backends. Verifier is required in firebase
// auth mode; DB and Redis may be nil.
type RouterDeps struct {
	ServiceName string
	Config      *config.Config
	Store       docstore.Store
	Verifier    authmw.TokenVerifier
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Logger      *zap.Logger
}

// NewProjectService wires the project workflow over store.
func NewProjectService(cfg *config.Config, store docstore.Store, profiles users.Reader, log *zap.Logger) *service.ProjectService {
	return service.NewProjectService(service.Deps{
		Projects:     repository.NewProjectRepository(store),
		TimeRequests: repository.NewTimeRequestRepository(store),
		Volunteers:   repository.NewVolunteerRepository(store),
		Profiles:     profiles,
		Notifier:     notifications.NewDispatcher(store, log, location(cfg)),
		Logger:       log,
	})
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	cfg := dep.Config
	log := dep.Logger

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(apimw.RequestIDMiddleware(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id", "X-User-Id", "X-User-Email", "X-User-Name", "X-User-Photo"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, cfg.App.Version, cfg.Store.Backend, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	profiles := NewProfiles(cfg, dep.Store, dep.Redis, log)
	projectSvc := NewProjectService(cfg, dep.Store, profiles, log)
	authSvc := authservice.NewAuthService(profiles, log)

	limiter := apimw.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	guard := []gin.HandlerFunc{
		limiter.Middleware(),
		apimw.InFlight(dep.Redis, cfg.Redis.InFlightTTL, log),
	}

	routes.RegisterV1(r, routes.V1Deps{
		Auth:          authMiddleware(dep),
		Guard:         guard,
		Users:         authhttp.New(authSvc, log),
		Projects:      projecthttp.New(projectSvc, log).WithKeepAlive(stream.DefaultKeepAlive),
		Notifications: notifhttp.New(notifications.NewInbox(dep.Store), log, stream.DefaultKeepAlive),
	})

	return r
}

func authMiddleware(dep RouterDeps) gin.HandlerFunc {
	if dep.Config.Auth.Mode == config.AuthDev {
		dep.Logger.Warn("dev auth enabled, callers are identified by X-User-* headers")
		return authmw.DevAuthMiddleware()
	}
	return authmw.FirebaseAuthMiddleware(dep.Verifier, dep.Logger)
}

// NewProfiles reads profiles through Redis when rdb is set.
func NewProfiles(cfg *config.Config, store docstore.Store, rdb *redis.Client, log *zap.Logger) authservice.ProfileStore {
	repo := users.NewRepo(store)
	if rdb == nil {
		return repo
	}
	return users.NewCachedRepo(repo, rdb, cfg.Redis.ProfileCacheTTL, log)
}

func location(cfg *config.Config) *time.Location {
	loc, err := time.LoadLocation(cfg.App.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
