package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/Mugambi-md/Orion-sub000/internal/app"
	"github.com/Mugambi-md/Orion-sub000/internal/audit"
	"github.com/Mugambi-md/Orion-sub000/internal/platform/cache"
	"github.com/Mugambi-md/Orion-sub000/internal/platform/db"
)

// Connect wires the production runtime from the environment.
func Connect(ctx context.Context) (*Runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	pool, err := db.New(ctx, cfg.Postgres("ledgerctl"))
	if err != nil {
		return nil, err
	}

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, running without year locks or report cache", slog.Any("error", err))
	}

	ledger, closeLedger, err := app.NewLedger(app.LedgerParams{
		Config: cfg,
		Logger: logger,
		Pool:   pool,
		Redis:  redisClient,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	rt := &Runtime{
		Ledger: ledger,
		Audit:  audit.NewService(audit.NewRepository(pool)),
		Migrate: func(ctx context.Context) (int, error) {
			return db.Migrate(ctx, pool)
		},
	}
	var queue *JobsCLI
	if redisClient != nil {
		queue, err = NewJobsCLI(cfg.Redis().AsynqOpt())
		if err != nil {
			logger.Warn("job queue unavailable", slog.Any("error", err))
		} else {
			rt.Jobs = queue
		}
	}
	rt.Close = func() {
		closeLedger()
		if queue != nil {
			if err := queue.Close(); err != nil {
				logger.Warn("jobs close", slog.Any("error", err))
			}
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
		pool.Close()
	}
	return rt, nil
}
