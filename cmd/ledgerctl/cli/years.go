package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Mugambi-md/Orion-sub000/jobs"
)

func newYearsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "years",
		Short: "Close, reopen and list fiscal years",
	}
	cmd.AddCommand(
		newYearsListCommand(opts),
		newYearTransitionCommand(opts, false),
		newYearTransitionCommand(opts, true),
	)
	return cmd
}

func newYearsListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List fiscal years and their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			years, err := rt.Ledger.ListFiscalYears(ctx)
			if err != nil {
				return err
			}
			return opts.emit(cmd, years, func(w io.Writer) {
				fmt.Fprintln(w, "YEAR\tSTATUS\tCLOSED AT\tCLOSED BY")
				for _, y := range years {
					closedAt := ""
					if y.ClosedAt != nil {
						closedAt = y.ClosedAt.Format("2006-01-02 15:04")
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", y.Year, y.Status, closedAt, y.ClosedBy)
				}
			})
		},
	}
}

// newYearTransitionCommand builds "years close" or, with reverse set, "years reverse".
func newYearTransitionCommand(opts *options, reverse bool) *cobra.Command {
	var async bool

	use, short := "close <year>", "Archive a year and carry balances into the next"
	if reverse {
		use, short = "reverse <year>", "Undo the close of a year"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil || year <= 0 {
				return fmt.Errorf("year %q: expected a positive integer", args[0])
			}
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			if async {
				if rt.Jobs == nil {
					return errNoQueue
				}
				info, err := rt.Jobs.EnqueueYearClose(ctx, jobs.YearClosePayload{Year: year, Actor: opts.actor, Reverse: reverse})
				if err != nil {
					return err
				}
				return printEnqueued(opts, cmd, info.ID, info.Queue)
			}
			if reverse {
				summary, err := rt.Ledger.ReverseYear(ctx, year)
				if err != nil {
					return err
				}
				return opts.emit(cmd, summary, func(w io.Writer) {
					fmt.Fprintf(w, "Year %d reopened: %d lines restored as entry #%d, %d lines and %d entries removed\n",
						summary.Year, summary.RestoredLines, summary.EntryID, summary.RemovedLines, summary.RemovedEntries)
				})
			}
			summary, err := rt.Ledger.CloseYear(ctx, year)
			if err != nil {
				return err
			}
			return opts.emit(cmd, summary, func(w io.Writer) {
				fmt.Fprintf(w, "Year %d closed: %d lines archived, %d accounts carried forward in entry #%d, retained earnings %s\n",
					summary.Year, summary.ArchivedLines, summary.CarriedAccounts, summary.OpeningEntryID, summary.RetainedEarnings.StringFixed(2))
			})
		},
	}

	cmd.Flags().BoolVar(&async, "async", false, "enqueue the job on the worker instead of running it here")

	return cmd
}

func printEnqueued(opts *options, cmd *cobra.Command, id, queue string) error {
	return opts.emit(cmd, map[string]string{"task_id": id, "queue": queue}, func(w io.Writer) {
		fmt.Fprintf(w, "Enqueued task %s on queue %s\n", id, queue)
	})
}
