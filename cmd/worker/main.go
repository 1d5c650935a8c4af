package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/Mugambi-md/Orion-sub000/internal/app"
	"github.com/Mugambi-md/Orion-sub000/internal/integration"
	"github.com/Mugambi-md/Orion-sub000/internal/observability"
	"github.com/Mugambi-md/Orion-sub000/internal/platform/cache"
	"github.com/Mugambi-md/Orion-sub000/internal/platform/db"
	"github.com/Mugambi-md/Orion-sub000/jobs"
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

	pool, err := db.New(ctx, cfg.Postgres("orion-worker"))
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// The worker needs Redis for the queue itself, so an outage here is fatal.
	redisClient, err := cache.New(ctx, cfg.Redis())
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

	ledger, closeLedger, err := app.NewLedger(app.LedgerParams{
		Config:  cfg,
		Logger:  logger,
		Pool:    pool,
		Redis:   redisClient,
		Metrics: metrics,
	})
	if err != nil {
		logger.Error("init ledger", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeLedger()

	integrityJob := jobs.NewGLIntegrityJob(ledger, logger, metrics.Jobs())
	yearCloseJob := jobs.NewYearCloseJob(ledger, logger, metrics.Jobs())
	integrationJob := jobs.NewIntegrationJob(integration.NewHooks(ledger, cfg.IntegrationAccounts()), logger, metrics.Jobs())

	integrityTask, err := jobs.NewGLIntegrityTask()
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskGLIntegrity, Handler: integrityJob.Handle},
		{Type: jobs.TaskYearClose, Handler: yearCloseJob.Handle},
	}
	handlers = append(handlers, integrationJob.Handlers()...)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.Redis().AsynqOpt(),
		Logger:    logger,
		Handlers:  handlers,
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LedgerIntegrityCron, Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
