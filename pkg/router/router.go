package router

import (
	"net/http"
	"time"

	"forum-session-demo/backend/internal/api"
	"forum-session-demo/backend/pkg/di"
	"forum-session-demo/backend/pkg/errors"
	"forum-session-demo/backend/pkg/logger"
	"forum-session-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Router is the HTTP surface over the engine.
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
}

// New creates the router with the standard middleware chain: request ids,
// request logging, error shaping, panic recovery, rate limiting.
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	if container.Config.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiter := middleware.NewRateLimiter(container.Logger)
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
	}
}

// SetupRoutes registers all application routes.
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	controller := api.NewSessionController(
		r.Container.Publisher,
		r.Container.Loader,
		r.Container.SheetStore,
		r.Container.ForumClient,
		r.Container.ReplyService,
		r.Container.Config.Forum.ActingUserID,
	)

	v1 := r.Engine.Group("/api/v1")
	v1.GET("/health", r.healthHandler())
	controller.RegisterRoutesV1(v1)

	// Legacy paths kept for the original browser client.
	controller.RegisterRoutes(r.Engine)

	r.Container.Health.Start()
}

func (r *Router) healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		if !r.Container.Health.Healthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":     "ok",
			"time":       time.Now().Format(time.RFC3339),
			"components": r.Container.Health.GetStatus(),
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Authorization, Origin, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
