// Package cli implements the ledgerctl operator commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting"
	"github.com/Mugambi-md/Orion-sub000/internal/accounting/reports"
	"github.com/Mugambi-md/Orion-sub000/internal/audit"
	"github.com/Mugambi-md/Orion-sub000/internal/shared"
	"github.com/Mugambi-md/Orion-sub000/jobs"
)

// Ledger is the part of the ledger service the CLI drives.
type Ledger interface {
	CreateAccount(ctx context.Context, in accounting.CreateAccountInput) (accounting.Account, error)
	SeedChart(ctx context.Context, defs []accounting.CreateAccountInput) (int, error)
	FindByNameOrCode(ctx context.Context, value string) (accounting.Account, error)
	ListAccounts(ctx context.Context) ([]accounting.Account, error)
	RecordEntry(ctx context.Context, in accounting.EntryInput) (int64, error)
	RecordOpeningBalance(ctx context.Context, in accounting.OpeningBalanceInput) (int64, error)
	GetEntry(ctx context.Context, id int64) (accounting.JournalEntry, error)
	ListEntries(ctx context.Context, filter accounting.EntryFilter) ([]accounting.JournalEntry, error)
	ReverseEntry(ctx context.Context, id int64) (int64, error)
	DeleteEntry(ctx context.Context, id int64) error
	Report(ctx context.Context, name string, filter accounting.ReportFilter) (reports.Table, error)
	UnbalancedEntries(ctx context.Context) ([]accounting.EntryImbalance, error)
	ListFiscalYears(ctx context.Context) ([]accounting.FiscalYear, error)
	CloseYear(ctx context.Context, year int) (accounting.ClosingSummary, error)
	ReverseYear(ctx context.Context, year int) (accounting.ReopenSummary, error)
}

// JobQueue hands ledger work to the background worker.
type JobQueue interface {
	EnqueueYearClose(ctx context.Context, payload jobs.YearClosePayload) (*asynq.TaskInfo, error)
	EnqueueGLIntegrity(ctx context.Context) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context, queue string) (QueueStats, error)
}

// AuditTrail pages through the audit log.
type AuditTrail interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
}

// Runtime carries the connected collaborators of one CLI invocation.
type Runtime struct {
	Ledger  Ledger
	Jobs    JobQueue
	Audit   AuditTrail
	Migrate func(ctx context.Context) (int, error)
	Close   func()
}

// Connector opens a Runtime. Commands connect lazily so --help never dials.
type Connector func(ctx context.Context) (*Runtime, error)

var errNoQueue = errors.New("ledgerctl: job queue not configured")

type options struct {
	actor   string
	json    bool
	connect Connector
	rt      *Runtime
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand(connect Connector) *cobra.Command {
	opts := &options{connect: connect}

	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the Orion double-entry ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.rt != nil && opts.rt.Close != nil {
				opts.rt.Close()
			}
			opts.rt = nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.actor, "actor", os.Getenv("USER"), "actor recorded in the audit log")
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(
		newAccountsCommand(opts),
		newEntriesCommand(opts),
		newReportCommand(opts),
		newYearsCommand(opts),
		newIntegrityCommand(opts),
		newAuditCommand(opts),
		newJobsCommand(opts),
		newMigrateCommand(opts),
	)

	return rootCmd
}

// runtime connects on first use and returns a context carrying the actor.
func (o *options) runtime(cmd *cobra.Command) (*Runtime, context.Context, error) {
	ctx := cmd.Context()
	if o.rt == nil {
		if o.connect == nil {
			return nil, nil, errors.New("ledgerctl: no connector")
		}
		rt, err := o.connect(ctx)
		if err != nil {
			return nil, nil, err
		}
		o.rt = rt
	}
	return o.rt, shared.ContextWithActor(ctx, o.actor), nil
}

// emit writes data as JSON, or as a table drawn by render.
func (o *options) emit(cmd *cobra.Command, data any, render func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if o.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	render(tw)
	return tw.Flush()
}
