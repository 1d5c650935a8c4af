package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting"
	"github.com/Mugambi-md/Orion-sub000/internal/accounting/reports"
	"github.com/Mugambi-md/Orion-sub000/internal/events"
	"github.com/Mugambi-md/Orion-sub000/internal/locks"
	"github.com/Mugambi-md/Orion-sub000/internal/observability"
)

// LedgerParams groups the infrastructure the ledger service runs on. Redis and
// Metrics are optional; without Redis the service runs without year locks or
// a report cache.
type LedgerParams struct {
	Config  *Config
	Logger  *slog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
}

// NewLedger assembles the ledger service. The returned close func flushes the
// event publisher and must be called on shutdown.
func NewLedger(params LedgerParams) (*accounting.Service, func(), error) {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	service := accounting.NewService(accounting.NewRepository(params.Pool), params.Config.LedgerConfig(), logger)
	if params.Redis != nil {
		service.WithLocker(locks.NewYearLocker(params.Redis, params.Config.LedgerLockTTL))
		service.WithReportCache(reports.NewCache(params.Redis, params.Config.LedgerReportCacheTTL))
	}
	if params.Metrics != nil {
		service.WithObserver(params.Metrics.Ledger())
	}

	closer := func() {}
	if len(params.Config.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(params.Config.KafkaBrokers, params.Config.LedgerEventsTopic)
		if err != nil {
			return nil, nil, err
		}
		service.WithPublisher(publisher)
		closer = func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("ledger event publisher close", slog.Any("error", err))
			}
		}
	} else {
		logger.Info("kafka brokers not configured, ledger events disabled")
	}
	return service, closer, nil
}
