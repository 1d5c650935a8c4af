package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Mugambi-md/Orion-sub000/internal/audit"
)

func newAuditCommand(opts *options) *cobra.Command {
	var from, to string
	var filters audit.TimelineFilters

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Page through the ledger audit trail, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if from != "" {
				t, err := parseDate(from)
				if err != nil {
					return err
				}
				filters.From = t
			}
			if to != "" {
				t, err := parseDate(to)
				if err != nil {
					return err
				}
				filters.To = t
			}
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			if rt.Audit == nil {
				return errors.New("ledgerctl: audit trail unavailable")
			}
			result, err := rt.Audit.Timeline(ctx, filters)
			if err != nil {
				return err
			}
			return opts.emit(cmd, result, func(w io.Writer) {
				fmt.Fprintln(w, "AT\tACTOR\tACTION")
				for _, row := range result.Rows {
					fmt.Fprintf(w, "%s\t%s\t%s\n", row.At.Format("2006-01-02 15:04:05"), row.Actor, row.Action)
				}
				if result.Paging.HasNext {
					fmt.Fprintf(w, "more rows: --page %d\n", result.Paging.NextPage)
				}
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day YYYY-MM-DD")
	cmd.Flags().StringVar(&filters.Actor, "by", "", "only rows written by this actor")
	cmd.Flags().StringVar(&filters.Action, "action", "", "only rows with this exact action")
	cmd.Flags().IntVar(&filters.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&filters.PageSize, "page-size", audit.DefaultPageSize, "rows per page")

	return cmd
}
