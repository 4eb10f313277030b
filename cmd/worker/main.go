package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ViniciusChelli/Seletto-sub001/internal/app"
	"github.com/ViniciusChelli/Seletto-sub001/internal/audit"
	jobmetrics "github.com/ViniciusChelli/Seletto-sub001/internal/jobs"
	"github.com/ViniciusChelli/Seletto-sub001/internal/platform/cache"
	"github.com/ViniciusChelli/Seletto-sub001/internal/platform/db"
	"github.com/ViniciusChelli/Seletto-sub001/internal/security"
	"github.com/ViniciusChelli/Seletto-sub001/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	metrics := jobmetrics.NewMetrics(nil)

	securityStore := security.NewSQLStore(pool)
	auditService := audit.NewService(audit.NewSQLRepository(pool))
	aggregator := security.NewAggregator(securityStore, auditService, logger, cfg.SecurityPageLimit)

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

	mailJob := jobs.NewSendEmailJob(jobs.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		From: cfg.SMTPFrom,
	}, logger, metrics)
	postureJob := jobs.NewPostureScanJob(aggregator, redisClient, logger, metrics, jobClient, cfg.AlertRecipient)
	sweepJob := jobs.NewBackupSweepJob(aggregator, redisClient, logger, metrics)

	postureTask, err := jobs.NewPostureScanTask(jobs.PostureScanPayload{AlertBelow: cfg.PostureAlertBelow})
	if err != nil {
		logger.Error("build posture scan task", slog.Any("error", err))
		os.Exit(1)
	}
	sweepTask, err := jobs.NewBackupSweepTask(jobs.BackupSweepPayload{})
	if err != nil {
		logger.Error("build backup sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailJob.Handle},
			{Type: jobs.TaskTypePostureScan, Handler: postureJob.Handle},
			{Type: jobs.TaskTypeBackupSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: postureTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
			{Spec: "5 * * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
