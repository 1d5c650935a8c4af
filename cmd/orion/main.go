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

	accountinghttp "github.com/Mugambi-md/Orion-sub000/internal/accounting/http"
	"github.com/Mugambi-md/Orion-sub000/internal/app"
	"github.com/Mugambi-md/Orion-sub000/internal/audit"
	audithttp "github.com/Mugambi-md/Orion-sub000/internal/audit/http"
	"github.com/Mugambi-md/Orion-sub000/internal/observability"
	"github.com/Mugambi-md/Orion-sub000/internal/platform/cache"
	"github.com/Mugambi-md/Orion-sub000/internal/platform/db"
	"github.com/Mugambi-md/Orion-sub000/internal/rbac"
	"github.com/Mugambi-md/Orion-sub000/jobs"
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

	dbpool, err := db.New(ctx, cfg.Postgres("orion"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	applied, err := db.Migrate(ctx, dbpool)
	if err != nil {
		logger.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("schema ready", slog.Int("applied", applied))

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, year locks and report cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	ledger, closeLedger, err := app.NewLedger(app.LedgerParams{
		Config:  cfg,
		Logger:  logger,
		Pool:    dbpool,
		Redis:   redisClient,
		Metrics: metrics,
	})
	if err != nil {
		logger.Error("init ledger", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeLedger()

	if len(cfg.LedgerGrants) == 0 {
		logger.Warn("LEDGER_GRANTS empty, every ledger route will answer 403")
	}
	rbacMiddleware := rbac.Middleware{Authorizer: rbac.NewStaticGrants(cfg.LedgerGrants), Logger: logger}
	ledgerHandler := accountinghttp.NewHandler(logger, ledger, rbacMiddleware)
	auditHandler := audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), rbacMiddleware)

	inspector := asynq.NewInspector(cfg.Redis().AsynqOpt())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		LedgerHandler: ledgerHandler,
		AuditHandler:  auditHandler,
		JobHandler:    jobHandler,
		Pool:          dbpool,
		Metrics:       metrics,
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
