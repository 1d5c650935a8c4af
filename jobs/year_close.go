package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting"
	jobmetrics "github.com/Mugambi-md/Orion-sub000/internal/jobs"
	"github.com/Mugambi-md/Orion-sub000/internal/shared"
)

// YearLedger closes and reopens fiscal years.
type YearLedger interface {
	CloseYear(ctx context.Context, year int) (accounting.ClosingSummary, error)
	ReverseYear(ctx context.Context, year int) (accounting.ReopenSummary, error)
}

// YearCloseJob runs year-end closing outside the request path.
type YearCloseJob struct {
	Ledger  YearLedger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewYearCloseJob constructs the job handler.
func NewYearCloseJob(ledger YearLedger, logger *slog.Logger, metrics *jobmetrics.Metrics) *YearCloseJob {
	return &YearCloseJob{Ledger: ledger, Logger: logger, Metrics: metrics}
}

// Handle closes or reverses the requested year. Only a busy year is retried.
func (j *YearCloseJob) Handle(ctx context.Context, task *asynq.Task) (resultErr error) {
	if j == nil || j.Ledger == nil {
		return errors.New("year close: ledger not configured")
	}
	var payload YearClosePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("year close payload: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskYearClose)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	ctx = shared.ContextWithActor(ctx, payload.Actor)
	logger := j.log().With(slog.Int("year", payload.Year), slog.Bool("reverse", payload.Reverse))
	var err error
	if payload.Reverse {
		var summary accounting.ReopenSummary
		summary, err = j.Ledger.ReverseYear(ctx, payload.Year)
		if err == nil {
			logger.Info("fiscal year reopened", slog.Int64("entry_id", summary.EntryID), slog.Int("restored_lines", summary.RestoredLines))
		}
	} else {
		var summary accounting.ClosingSummary
		summary, err = j.Ledger.CloseYear(ctx, payload.Year)
		if err == nil {
			logger.Info("fiscal year closed", slog.Int64("entry_id", summary.OpeningEntryID), slog.Int("archived_lines", summary.ArchivedLines))
		}
	}
	if err == nil {
		return nil
	}
	if retryable(err) {
		logger.Warn("year close deferred", slog.Any("error", err))
		return err
	}
	logger.Error("year close failed", slog.Any("error", err))
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}

func (j *YearCloseJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// retryable reports whether a ledger failure may succeed on a later attempt.
func retryable(err error) bool {
	switch {
	case errors.Is(err, accounting.ErrYearLocked), errors.Is(err, accounting.ErrSerialization):
		return true
	case errors.Is(err, accounting.ErrPersistence):
		return true
	default:
		return false
	}
}
