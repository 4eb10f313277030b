package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ViniciusChelli/Seletto-sub001/internal/app"
	"github.com/ViniciusChelli/Seletto-sub001/internal/audit"
	audithttp "github.com/ViniciusChelli/Seletto-sub001/internal/audit/http"
	"github.com/ViniciusChelli/Seletto-sub001/internal/identity"
	"github.com/ViniciusChelli/Seletto-sub001/internal/observability"
	"github.com/ViniciusChelli/Seletto-sub001/internal/platform/cache"
	"github.com/ViniciusChelli/Seletto-sub001/internal/platform/db"
	"github.com/ViniciusChelli/Seletto-sub001/internal/rbac"
	"github.com/ViniciusChelli/Seletto-sub001/internal/roles"
	"github.com/ViniciusChelli/Seletto-sub001/internal/security"
	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
	"github.com/ViniciusChelli/Seletto-sub001/internal/users"
	"github.com/ViniciusChelli/Seletto-sub001/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "seletto_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()

	rbacService := rbac.NewService(rbac.NewRepository(dbpool), logger)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger, Metrics: metrics}

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	mailer := &jobs.QueueMailer{Client: jobClient, BaseURL: cfg.AppBaseURL}

	identityRepo := identity.NewRepository(dbpool)
	identityService := identity.NewService(identityRepo, mailer)
	identityHandler := identity.NewHandler(logger, identityService, sessionManager, rbacService)

	usersService := users.NewService(users.NewRepository(dbpool))
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	rolesService := roles.NewService(roles.NewRepository(dbpool), rbacService)
	rolesHandler := roles.NewHandler(logger, rolesService, rbacService, rbacMiddleware)

	permissionsHandler := rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware)

	auditLogger := audit.NewLogger(dbpool)
	auditService := audit.NewService(audit.NewSQLRepository(dbpool))
	auditHandler := audithttp.NewHandler(logger, auditService, rbacMiddleware)

	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	securityStore := security.NewSQLStore(dbpool)
	aggregator := security.NewAggregator(securityStore, auditService, logger, cfg.SecurityPageLimit)
	aggregator.OnPosture(func(p security.Posture) {
		metrics.SetPosture(p.Score, string(p.Level))
	})
	reactor := security.NewReactor(securityStore, aggregator)
	securityHandler := security.NewHandler(logger, aggregator, reactor, rbacMiddleware, auditLogger, idempotencyStore)

	// Warm the dashboard snapshot; requests served before this finishes see
	// partial data rather than an error.
	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := aggregator.LoadAll(loadCtx); err != nil {
			logger.Warn("initial security load", slog.Any("error", err))
		}
	}()

	if cfg.RealtimeChannelPrefix != "" {
		feed := security.NewRealtimeFeed(redisClient, aggregator, logger, cfg.RealtimeChannelPrefix)
		go func() {
			if err := feed.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("realtime feed", slog.Any("error", err))
			}
		}()
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		IdentityHandler:    identityHandler,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		SecurityHandler:    securityHandler,
		AuditHandler:       auditHandler,
		PermissionsHandler: permissionsHandler,
		RBACMiddleware:     rbacMiddleware,
		Metrics:            metrics,
		JobsHandler:        jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
}
