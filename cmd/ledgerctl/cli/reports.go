package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting"
)

func newReportCommand(opts *options) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "report <name>",
		Short: "Print a derived report",
		Long: "Print a derived report over the live journal. Names: " + strings.Join([]string{
			accounting.ReportTrialBalance,
			accounting.ReportIncomeStatement,
			accounting.ReportBalanceSheet,
			accounting.ReportCashFlow,
		}, ", ") + ".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := parseWindow(from, to)
			if err != nil {
				return err
			}
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			table, err := rt.Ledger.Report(ctx, args[0], window)
			if err != nil {
				return err
			}
			return opts.emit(cmd, table, func(w io.Writer) {
				fmt.Fprintln(w, table.Title)
				fmt.Fprintln(w, strings.ToUpper(strings.Join(table.Columns, "\t")))
				for _, row := range table.Rows {
					cells := make([]string, len(table.Columns))
					for i, col := range table.Columns {
						cells[i] = row[col]
					}
					fmt.Fprintln(w, strings.Join(cells, "\t"))
				}
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first entry date YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last entry date YYYY-MM-DD")

	return cmd
}

func newIntegrityCommand(opts *options) *cobra.Command {
	var async bool

	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "List live entries whose debits and credits differ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			if async {
				if rt.Jobs == nil {
					return errNoQueue
				}
				info, err := rt.Jobs.EnqueueGLIntegrity(ctx)
				if err != nil {
					return err
				}
				return printEnqueued(opts, cmd, info.ID, info.Queue)
			}
			items, err := rt.Ledger.UnbalancedEntries(ctx)
			if err != nil {
				return err
			}
			return opts.emit(cmd, items, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintln(w, "Journal is balanced")
					return
				}
				fmt.Fprintln(w, "ID\tDATE\tREFERENCE\tDEBIT\tCREDIT")
				for _, item := range items {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", item.EntryID, item.Date.Format(dateLayout), item.Reference,
						item.Debit.StringFixed(2), item.Credit.StringFixed(2))
				}
			})
		},
	}

	cmd.Flags().BoolVar(&async, "async", false, "run the check on the worker instead")

	return cmd
}
