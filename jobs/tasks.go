package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/Mugambi-md/Orion-sub000/internal/integration"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueLedger carries year-end work, which must not wait behind integration traffic.
	QueueLedger = "ledger"

	// TaskGLIntegrity sweeps the live journal for unbalanced entries.
	TaskGLIntegrity = "ledger:gl_integrity"
	// TaskYearClose closes or reopens a fiscal year.
	TaskYearClose = "ledger:year_close"
	// TaskSaleCompleted posts a completed sale.
	TaskSaleCompleted = "integration:sale_completed"
	// TaskStockReceived posts a goods receipt.
	TaskStockReceived = "integration:stock_received"
	// TaskPayrollPosted posts a payroll run.
	TaskPayrollPosted = "integration:payroll_posted"
)

// taskNamespace seeds deterministic task IDs so a redelivered source event
// is rejected by asynq instead of posting twice.
var taskNamespace = uuid.MustParse("8f7d0c3e-5b7a-4b0e-9a41-3c2d7f1e6a52")

// GLIntegrityPayload is empty today; it exists so the scheduler has a body to send.
type GLIntegrityPayload struct{}

// YearClosePayload selects the fiscal year and direction.
type YearClosePayload struct {
	Year    int    `json:"year"`
	Actor   string `json:"actor"`
	Reverse bool   `json:"reverse,omitempty"`
}

// IntegrationPayload wraps an operational event with the actor that raised it.
type IntegrationPayload[T any] struct {
	Actor string `json:"actor"`
	Event T      `json:"event"`
}

// NewGLIntegrityTask constructs the scheduled integrity sweep.
func NewGLIntegrityTask() (*asynq.Task, error) {
	body, err := json.Marshal(GLIntegrityPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// NewYearCloseTask constructs a close (or reverse) request for year.
func NewYearCloseTask(payload YearClosePayload) (*asynq.Task, error) {
	if payload.Year <= 0 {
		return nil, fmt.Errorf("jobs: invalid fiscal year %d", payload.Year)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskYearClose, body, asynq.Queue(QueueLedger), asynq.MaxRetry(3)), nil
}

// NewSaleCompletedTask constructs the posting task for a sale.
func NewSaleCompletedTask(actor string, evt integration.SaleCompleted) (*asynq.Task, error) {
	return newIntegrationTask(TaskSaleCompleted, evt.Number, actor, evt)
}

// NewStockReceivedTask constructs the posting task for a goods receipt.
func NewStockReceivedTask(actor string, evt integration.StockReceived) (*asynq.Task, error) {
	return newIntegrationTask(TaskStockReceived, evt.Number, actor, evt)
}

// NewPayrollPostedTask constructs the posting task for a payroll run.
func NewPayrollPostedTask(actor string, evt integration.PayrollPosted) (*asynq.Task, error) {
	return newIntegrationTask(TaskPayrollPosted, evt.Period, actor, evt)
}

func newIntegrationTask[T any](taskType, sourceKey, actor string, evt T) (*asynq.Task, error) {
	if strings.TrimSpace(sourceKey) == "" {
		return nil, fmt.Errorf("jobs: %s requires a source reference", taskType)
	}
	body, err := json.Marshal(IntegrationPayload[T]{Actor: actor, Event: evt})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body,
		asynq.Queue(QueueDefault),
		asynq.TaskID(IntegrationTaskID(taskType, sourceKey)),
		asynq.MaxRetry(5),
	), nil
}

// IntegrationTaskID derives the deduplication key for a source event.
func IntegrationTaskID(taskType, sourceKey string) string {
	return uuid.NewSHA1(taskNamespace, []byte(taskType+":"+sourceKey)).String()
}
