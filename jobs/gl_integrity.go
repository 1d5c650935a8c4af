package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting"
	jobmetrics "github.com/Mugambi-md/Orion-sub000/internal/jobs"
)

// IntegrityLedger lists unbalanced entries.
type IntegrityLedger interface {
	UnbalancedEntries(ctx context.Context) ([]accounting.EntryImbalance, error)
}

// GLIntegrityJob reports live entries whose debits and credits differ.
type GLIntegrityJob struct {
	Ledger  IntegrityLedger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewGLIntegrityJob constructs the job handler.
func NewGLIntegrityJob(ledger IntegrityLedger, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{Ledger: ledger, Logger: logger, Metrics: metrics}
}

// Handle runs one sweep. Findings are reported, not repaired.
func (j *GLIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Ledger == nil {
		return errors.New("gl integrity: ledger not configured")
	}
	tracker := j.Metrics.Track(TaskGLIntegrity)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	items, err := j.Ledger.UnbalancedEntries(ctx)
	if err != nil {
		j.log().Error("gl integrity query", slog.Any("error", err))
		return err
	}
	for _, item := range items {
		j.log().Warn("unbalanced journal entry",
			slog.Int64("entry_id", item.EntryID),
			slog.String("reference", item.Reference),
			slog.String("date", item.Date.Format("2006-01-02")),
			slog.String("debit", item.Debit.StringFixed(2)),
			slog.String("credit", item.Credit.StringFixed(2)))
	}
	j.Metrics.SetIntegrityFindings(len(items))
	j.log().Info("gl integrity check executed", slog.Int("unbalanced", len(items)))
	return nil
}

func (j *GLIntegrityJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
