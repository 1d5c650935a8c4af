package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Mugambi-md/Orion-sub000/internal/integration"
	jobmetrics "github.com/Mugambi-md/Orion-sub000/internal/jobs"
	"github.com/Mugambi-md/Orion-sub000/internal/shared"
)

// IntegrationHooks posts operational events into the ledger.
type IntegrationHooks interface {
	HandleSaleCompleted(ctx context.Context, evt integration.SaleCompleted) (int64, error)
	HandleStockReceived(ctx context.Context, evt integration.StockReceived) (int64, error)
	HandlePayrollPosted(ctx context.Context, evt integration.PayrollPosted) (int64, error)
}

// IntegrationJob dispatches integration tasks to the hooks.
type IntegrationJob struct {
	Hooks   IntegrationHooks
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIntegrationJob constructs the job handler.
func NewIntegrationJob(hooks IntegrationHooks, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrationJob {
	return &IntegrationJob{Hooks: hooks, Logger: logger, Metrics: metrics}
}

// Handlers lists the task registrations served by the job.
func (j *IntegrationJob) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskSaleCompleted, Handler: j.HandleSaleCompleted},
		{Type: TaskStockReceived, Handler: j.HandleStockReceived},
		{Type: TaskPayrollPosted, Handler: j.HandlePayrollPosted},
	}
}

// HandleSaleCompleted processes TaskSaleCompleted.
func (j *IntegrationJob) HandleSaleCompleted(ctx context.Context, task *asynq.Task) error {
	return handleIntegration(ctx, j, task, func(ctx context.Context, evt integration.SaleCompleted) (int64, error) {
		return j.Hooks.HandleSaleCompleted(ctx, evt)
	})
}

// HandleStockReceived processes TaskStockReceived.
func (j *IntegrationJob) HandleStockReceived(ctx context.Context, task *asynq.Task) error {
	return handleIntegration(ctx, j, task, func(ctx context.Context, evt integration.StockReceived) (int64, error) {
		return j.Hooks.HandleStockReceived(ctx, evt)
	})
}

// HandlePayrollPosted processes TaskPayrollPosted.
func (j *IntegrationJob) HandlePayrollPosted(ctx context.Context, task *asynq.Task) error {
	return handleIntegration(ctx, j, task, func(ctx context.Context, evt integration.PayrollPosted) (int64, error) {
		return j.Hooks.HandlePayrollPosted(ctx, evt)
	})
}

func handleIntegration[T any](ctx context.Context, j *IntegrationJob, task *asynq.Task, post func(context.Context, T) (int64, error)) (resultErr error) {
	if j == nil || j.Hooks == nil {
		return errors.New("integration: hooks not configured")
	}
	var payload IntegrationPayload[T]
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(task.Type())
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	entryID, err := post(shared.ContextWithActor(ctx, payload.Actor), payload.Event)
	logger := j.log().With(slog.String("task", task.Type()))
	if err != nil {
		if retryable(err) {
			logger.Warn("integration posting deferred", slog.Any("error", err))
			return err
		}
		logger.Error("integration posting rejected", slog.Any("error", err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if entryID == 0 {
		logger.Info("integration event carried no amount")
		return nil
	}
	j.Metrics.AddPosting(task.Type())
	logger.Info("integration event posted", slog.Int64("entry_id", entryID))
	return nil
}

func (j *IntegrationJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
