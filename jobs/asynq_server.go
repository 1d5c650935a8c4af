package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/Mugambi-md/Orion-sub000/internal/integration"
	"github.com/Mugambi-md/Orion-sub000/internal/platform/httpx"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Handlers  []TaskHandler
	Cron      []CronRegistration
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueLedger:  2,
			QueueDefault: 1,
		},
		Logger: asynqLogger{logger: cfg.Logger},
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: cfg.Logger}, nil
}

// Run starts processing jobs and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.server.Shutdown()
			return err
		}
	}
	w.logger.Info("worker started", slog.String("queues", QueueLedger+","+QueueDefault))
	<-ctx.Done()
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	w.server.Shutdown()
	return ctx.Err()
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueYearClose schedules CloseYear (or ReverseYear) for the worker.
func (c *Client) EnqueueYearClose(ctx context.Context, payload YearClosePayload) (*asynq.TaskInfo, error) {
	task, err := NewYearCloseTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// EnqueueGLIntegrity schedules an immediate integrity sweep.
func (c *Client) EnqueueGLIntegrity(ctx context.Context) (*asynq.TaskInfo, error) {
	task, err := NewGLIntegrityTask()
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// EnqueueSaleCompleted queues a sale for posting. Redelivering a sale number
// that is still queued or retained returns a nil TaskInfo and no error.
func (c *Client) EnqueueSaleCompleted(ctx context.Context, actor string, evt integration.SaleCompleted) (*asynq.TaskInfo, error) {
	task, err := NewSaleCompletedTask(actor, evt)
	if err != nil {
		return nil, err
	}
	return c.enqueueOnce(ctx, task)
}

// EnqueueStockReceived queues a goods receipt for posting.
func (c *Client) EnqueueStockReceived(ctx context.Context, actor string, evt integration.StockReceived) (*asynq.TaskInfo, error) {
	task, err := NewStockReceivedTask(actor, evt)
	if err != nil {
		return nil, err
	}
	return c.enqueueOnce(ctx, task)
}

// EnqueuePayrollPosted queues a payroll run for posting.
func (c *Client) EnqueuePayrollPosted(ctx context.Context, actor string, evt integration.PayrollPosted) (*asynq.TaskInfo, error) {
	task, err := NewPayrollPostedTask(actor, evt)
	if err != nil {
		return nil, err
	}
	return c.enqueueOnce(ctx, task)
}

func (c *Client) enqueueOnce(ctx context.Context, task *asynq.Task) (*asynq.TaskInfo, error) {
	info, err := c.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil, nil
	}
	return info, err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector *asynq.Inspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector *asynq.Inspector, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

type queueHealth struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
	Failed  int    `json:"failed"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	queues := []string{QueueLedger, QueueDefault}
	out := make([]queueHealth, 0, len(queues))
	for _, queue := range queues {
		item := queueHealth{Queue: queue}
		if h.inspector != nil {
			info, err := h.inspector.GetQueueInfo(queue)
			if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
				h.logger.Warn("jobs health", slog.String("queue", queue), slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "queue unavailable", queue)
				return
			}
			if info != nil {
				item.Pending = info.Pending
				item.Failed = info.Archived
			}
		}
		out = append(out, item)
	}
	httpx.JSON(w, http.StatusOK, out)
}

// asynqLogger routes asynq's internal logging through slog.
type asynqLogger struct {
	logger *slog.Logger
}

func (l asynqLogger) log() *slog.Logger {
	if l.logger != nil {
		return l.logger
	}
	return slog.Default()
}

func (l asynqLogger) Debug(args ...any) { l.log().Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log().Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log().Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log().Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log().Error(fmt.Sprint(args...)); os.Exit(1) }
