package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/Mugambi-md/Orion-sub000/jobs"
)

// JobsCLI wraps the asynq client and inspector used by ledgerctl.
type JobsCLI struct {
	*jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the helpers against the Redis instance behind asynq.
func NewJobsCLI(opts asynq.RedisClientOpt) (*JobsCLI, error) {
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &JobsCLI{Client: client, inspector: asynq.NewInspector(opts)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.Client != nil {
		if closeErr := c.Client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// InspectQueue reports the metrics of one queue. A queue that never saw a
// task reports zeros.
func (c *JobsCLI) InspectQueue(ctx context.Context, queue string) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	stats := QueueStats{Queue: queue}
	info, err := c.inspector.GetQueueInfo(queue)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return stats, nil
		}
		return QueueStats{}, err
	}
	stats.Pending = info.Pending
	stats.Active = info.Active
	stats.Scheduled = info.Scheduled
	stats.Retry = info.Retry
	stats.Archived = info.Archived
	return stats, nil
}

func newJobsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the background job queues",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "queues",
		Short: "Show pending, active, retry and archived counts per queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			if rt.Jobs == nil {
				return errNoQueue
			}
			var out []QueueStats
			for _, queue := range []string{jobs.QueueLedger, jobs.QueueDefault} {
				stats, err := rt.Jobs.InspectQueue(ctx, queue)
				if err != nil {
					return fmt.Errorf("queue %s: %w", queue, err)
				}
				out = append(out, stats)
			}
			return opts.emit(cmd, out, func(w io.Writer) {
				fmt.Fprintln(w, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
				for _, s := range out {
					fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
				}
			})
		},
	})
	return cmd
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			if rt.Migrate == nil {
				return errors.New("ledgerctl: migrations unavailable")
			}
			applied, err := rt.Migrate(ctx)
			if err != nil {
				return err
			}
			return opts.emit(cmd, map[string]int{"applied": applied}, func(w io.Writer) {
				fmt.Fprintf(w, "%d migrations applied\n", applied)
			})
		},
	}
}
