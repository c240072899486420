package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"saraban/internal/audit"
	"saraban/internal/config"
	"saraban/internal/db"
	"saraban/internal/handler"
	"saraban/internal/httpserver"
	"saraban/internal/notifycache"
	"saraban/internal/repository"
	"saraban/internal/service"
	"saraban/internal/storage"
	pkgdb "saraban/pkg/db"
	"saraban/pkg/logger"
	"saraban/pkg/mq"
	"saraban/pkg/otel"
	"saraban/pkg/outbox"
	"saraban/pkg/redis"
)

var version = "dev"

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("JWT secret is not configured")
	}

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName:    "saraban-api",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Endpoint:       cfg.OTel.Endpoint,
		Enabled:        cfg.OTel.Enabled,
		SampleRatio:    cfg.OTel.SampleRatio,
		Secure:         cfg.OTel.Secure,
	}, log)
	if err != nil {
		log.Fatal("OpenTelemetry init failed", zap.Error(err))
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DB.AutoMigrate {
		if err := db.RunMigrations(cfg.DB.DSN()); err != nil {
			log.Fatal("Migrations failed", zap.Error(err))
		}
		log.Info("Migrations applied")
	}

	pool, err := pkgdb.NewConnection(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}
	defer pool.Close()
	log.Info("DB ready")

	var cache notifycache.FeedCache = notifycache.Nop{}
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, notifications feed is not cached", zap.Error(err))
		} else {
			defer rdb.Close()
			cache = notifycache.NewRedisCache(goredis.Cmdable(rdb), cfg.Notifications.CacheTTL, log)
		}
	}

	// Audit events go through the outbox only when there is a broker to
	// drain it.
	var outboxRepo *outbox.Repository
	var replay handler.Replayer
	if cfg.MQ.Enabled() {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init publisher", zap.Error(err))
		}
		defer publisher.Close()

		outboxRepo = outbox.NewRepository(pool)
		dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
			WithInterval(cfg.Outbox.Interval).
			WithBatchSize(cfg.Outbox.BatchSize).
			WithMaxRetries(cfg.Outbox.MaxRetries)
		go dispatcher.Start(ctx)

		replay = outbox.NewReplayService(outboxRepo, publisher, log, cfg.Outbox.MaxRetries)
	} else {
		log.Info("MQ not configured, audit events are not published")
	}

	users := repository.NewUserRepository(pool, log)
	projects := repository.NewProjectRepository(pool, log)
	sequences := repository.NewSequenceRepository(pool, log)
	auditLogs := repository.NewAuditRepository(pool, outboxRepo, log)
	features := repository.NewFeatureRepository(pool, log)
	notes := repository.NewNoteRepository(pool, log)

	files, err := storage.NewLocal(cfg.Upload.Dir, cfg.Upload.PublicPrefix, cfg.Upload.MaxBytes)
	if err != nil {
		log.Fatal("Upload directory unusable", zap.String("dir", cfg.Upload.Dir), zap.Error(err))
	}

	recorder := audit.NewRecorder(auditLogs, cache, cfg.Audit.Strict, log)
	authService := service.NewAuthService(users, cfg.JWT.Secret, cfg.JWT.TTL, log)
	projectService := service.NewProjectService(projects, sequences, recorder, log)
	auditService := service.NewAuditService(auditLogs, cache, cfg.Notifications.DefaultLimit, cfg.Notifications.MaxLimit)
	featureService := service.NewFeatureService(features, notes, files, recorder, log)

	if cfg.Admin.Username != "" && cfg.Admin.Password != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			log.Fatal("Failed to ensure admin account", zap.Error(err))
		}
	}

	router := httpserver.NewRouter(httpserver.Handlers{
		Auth:     handler.NewAuthHandler(authService, log),
		Projects: handler.NewProjectHandler(projectService, log),
		Logs:     handler.NewLogHandler(projectService, auditService, log),
		Features: handler.NewFeatureHandler(featureService, cfg.Upload.MaxBytes, log),
		Admin:    handler.NewAdminHandler(replay, log),
	}, httpserver.Options{
		JWTSecret:    cfg.JWT.Secret,
		CORSOrigins:  cfg.Server.CORSOrigins,
		UploadDir:    files.Dir(),
		UploadPrefix: files.PublicPrefix(),
		DB:           pool,
		Tracing:      cfg.OTel.Enabled,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("API listening", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("API server stopped")
}
