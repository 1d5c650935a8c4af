package accounting

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Mugambi-md/Orion-sub000/internal/events"
	"github.com/Mugambi-md/Orion-sub000/internal/locks"
	"github.com/Mugambi-md/Orion-sub000/internal/shared"
)

// YearLocker serialises year-end operations across processes.
type YearLocker interface {
	Acquire(ctx context.Context, year int) (func(context.Context) error, error)
}

// ReportCache stores rendered reports under a version that mutations bump.
type ReportCache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
	Bump(ctx context.Context) error
}

// Observer receives one call per service operation.
type Observer interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
}

// ServiceConfig carries ledger policy switches.
type ServiceConfig struct {
	RetainedEarningsMode        RetainedEarningsMode
	RequireReversalBeforeDelete bool
}

// Service is the ledger core: registry, recorder, query engine, reversal and
// year-end closing all share one transactional repository.
type Service struct {
	repo      RepositoryPort
	cfg       ServiceConfig
	logger    *slog.Logger
	locker    YearLocker
	publisher events.Publisher
	cache     ReportCache
	observer  Observer
	reports   singleflight.Group
	now       func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.RetainedEarningsMode == "" {
		cfg.RetainedEarningsMode = RetainedEarningsPerAccount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		cfg:       cfg,
		logger:    logger,
		publisher: events.NopPublisher{},
		now:       time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithLocker installs the cross-process year lock.
func (s *Service) WithLocker(locker YearLocker) {
	s.locker = locker
}

// WithPublisher installs the post-commit event sink.
func (s *Service) WithPublisher(publisher events.Publisher) {
	if publisher != nil {
		s.publisher = publisher
	}
}

// WithReportCache installs the report cache.
func (s *Service) WithReportCache(cache ReportCache) {
	s.cache = cache
}

// WithObserver installs the metrics observer.
func (s *Service) WithObserver(observer Observer) {
	s.observer = observer
}

// Config returns the active policy.
func (s *Service) Config() ServiceConfig {
	return s.cfg
}

func (s *Service) execute(ctx context.Context, op string, fn func(context.Context, TxRepository) error) error {
	started := time.Now()
	err := persistence(s.repo.WithTx(ctx, fn))
	s.observe(op, started, err)
	if err != nil && KindOf(err) == KindPersistence {
		s.logger.ErrorContext(ctx, "ledger operation failed", slog.String("operation", op), slog.Any("error", err))
	}
	return err
}

func (s *Service) observe(op string, started time.Time, err error) {
	if s.observer == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(KindOf(err)))
	}
	s.observer.ObserveOperation(op, outcome, time.Since(started))
}

func (s *Service) audit(ctx context.Context, tx TxRepository, action string, meta map[string]any) error {
	return tx.RecordAudit(ctx, shared.AuditLog{
		Actor:   shared.ActorFromContext(ctx),
		Section: shared.AuditSectionAccounting,
		Action:  action,
		Meta:    meta,
		At:      s.now(),
	})
}

func (s *Service) event(ctx context.Context, eventType string) events.LedgerEvent {
	return events.New(eventType, shared.ActorFromContext(ctx), s.now())
}

// committed runs after a successful transaction; failures here never undo the mutation.
func (s *Service) committed(ctx context.Context, evs ...events.LedgerEvent) {
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.WarnContext(ctx, "report cache bump failed", slog.Any("error", err))
		}
	}
	for _, ev := range evs {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "ledger event publish failed",
				slog.String("type", ev.Type), slog.String("event_id", ev.ID.String()), slog.Any("error", err))
		}
	}
}

// lockYear takes the distributed year lock when one is configured.
func (s *Service) lockYear(ctx context.Context, year int) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Acquire(ctx, year)
	if err != nil {
		if errors.Is(err, locks.ErrHeld) {
			return nil, ErrYearLocked
		}
		return nil, &Error{Kind: KindConcurrency, Msg: ErrYearLocked.Msg, Err: err}
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "fiscal year lock release failed", slog.Int("year", year), slog.Any("error", err))
		}
	}, nil
}
