package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sapients/tracker/internal/activity"
	"github.com/sapients/tracker/internal/app"
	"github.com/sapients/tracker/internal/auth"
	"github.com/sapients/tracker/internal/content"
	"github.com/sapients/tracker/internal/observability"
	"github.com/sapients/tracker/internal/platform/cache"
	"github.com/sapients/tracker/internal/platform/db"
	"github.com/sapients/tracker/internal/push"
	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
	"github.com/sapients/tracker/internal/view"
	"github.com/sapients/tracker/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if err := rbac.Validate(); err != nil {
		slog.Default().Error("permission matrix", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(dbpool)
	sessionStore := auth.NewCachedSessionStore(authRepo, redisClient, cfg.SessionCacheTTL, logger)
	sessionManager := shared.NewSessionManager(sessionStore, app.SessionCookieName, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	rbacMiddleware := rbac.Middleware{
		Guard:      rbac.NewGuard(sessionManager, metrics),
		DeleteGate: rbac.NewDeleteGate(cfg.DeletePassword),
		Logger:     logger,
	}

	jobClient := jobs.NewClient(cfg.AsynqRedisOpt())
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(cfg.AsynqRedisOpt())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	authHandler := auth.NewHandler(logger, auth.NewService(authRepo), templates, sessionManager, csrfManager, metrics)

	activityService := activity.NewService(activity.NewRepository(dbpool))
	activityHandler := activity.NewHandler(logger, activityService, templates, csrfManager, rbacMiddleware)

	contentService := content.NewService(content.NewRepository(dbpool), activityService, jobClient, logger)
	contentHandler := content.NewHandler(logger, contentService, templates, csrfManager, rbacMiddleware)
	contentHandler.UseIdempotency(shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL))

	pushHandler := push.NewHandler(logger, push.NewRepository(dbpool), rbacMiddleware)
	pushHandler.RestrictHosts(cfg.PushAllowedHosts)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		RBACMiddleware:  rbacMiddleware,
		AuthHandler:     authHandler,
		ActivityHandler: activityHandler,
		ContentHandler:  contentHandler,
		PushHandler:     pushHandler,
		JobHandler:      jobs.NewHandler(inspector, logger),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	// Scrapes stay on the internal listener; the app router does not serve /metrics.
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("starting metrics server", slog.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", slog.Any("error", err))
			}
		}()
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
}
