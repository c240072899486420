package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"saraban/internal/handler"
	"saraban/pkg/otel"
	"saraban/pkg/rbac"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Auth     *handler.AuthHandler
	Projects *handler.ProjectHandler
	Logs     *handler.LogHandler
	Features *handler.FeatureHandler
	Admin    *handler.AdminHandler
}

type Options struct {
	JWTSecret    string
	CORSOrigins  []string
	UploadDir    string
	UploadPrefix string
	DB           Pinger
	Tracing      bool
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, opts Options, logger *zap.Logger) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware())
	if opts.Tracing {
		r.Use(otel.GinMiddleware())
	}
	r.Use(RequestLogger(logger), CORSMiddleware(opts.CORSOrigins))

	health := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	r.GET("/healthz", health)
	r.HEAD("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", health)

	r.GET("/readyz", func(c *gin.Context) {
		if opts.DB != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := opts.DB.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.UploadDir != "" {
		prefix := opts.UploadPrefix
		if prefix == "" {
			prefix = "/uploads"
		}
		r.Static(prefix, opts.UploadDir)
	}

	api := r.Group("/api")

	// Public
	api.POST("/login", h.Auth.Login)
	api.POST("/register", h.Auth.Register)

	// Protected
	auth := api.Group("")
	auth.Use(AuthMiddleware(opts.JWTSecret))
	{
		read := RequirePermission(rbac.PermissionReadProject)
		write := RequirePermission(rbac.PermissionWriteProject)
		del := RequirePermission(rbac.PermissionDeleteProject)
		feature := RequirePermission(rbac.PermissionWriteFeature)
		audit := RequirePermission(rbac.PermissionReadAudit)

		auth.GET("/projects", read, h.Projects.List)
		auth.POST("/projects", write, h.Projects.Create)
		auth.GET("/projects/next-code", read, h.Projects.NextCode)
		auth.PUT("/projects/:id", write, h.Projects.Update)
		auth.DELETE("/projects/:id", del, h.Projects.Delete)

		auth.GET("/projects/:id/logs", audit, h.Logs.ProjectLogs)
		auth.POST("/projects/:id/logs", write, h.Logs.AddLog)
		auth.GET("/audit-logs", audit, h.Logs.AuditLogs)
		auth.GET("/notifications", audit, h.Logs.Notifications)

		auth.GET("/projects/:id/features", read, h.Features.List)
		auth.POST("/projects/:id/features", feature, h.Features.Create)
		auth.PUT("/features/:id", feature, h.Features.Update)
		auth.DELETE("/features/:id", feature, h.Features.Delete)
		auth.GET("/features/:id/notes", read, h.Features.Notes)
		auth.POST("/features/:id/notes", feature, h.Features.AddNote)

		auth.PUT("/profile", h.Auth.UpdateProfile)
		auth.PUT("/change-password", h.Auth.ChangePassword)

		auth.GET("/stats", read, h.Projects.Stats)

		if h.Admin != nil {
			admin := auth.Group("/admin", RequirePermission(rbac.PermissionReplayOutbox))
			admin.POST("/outbox/replay", h.Admin.ReplayOutboxEvent)
			admin.POST("/outbox/replay-failed", h.Admin.ReplayFailedEvents)
		}
	}

	return &Router{Engine: r}
}

func (r *Router) Handler() http.Handler {
	return r.Engine
}
