package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting"
)

const dateLayout = "2006-01-02"

func newEntriesCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Record, inspect, reverse and delete journal entries",
	}
	cmd.AddCommand(
		newEntriesRecordCommand(opts),
		newEntriesOpeningCommand(opts),
		newEntriesListCommand(opts),
		newEntriesShowCommand(opts),
		newEntriesReverseCommand(opts),
		newEntriesDeleteCommand(opts),
	)
	return cmd
}

// lineFlags collects --debit/--credit CODE=AMOUNT pairs.
type lineFlags struct {
	debits  []string
	credits []string
	memo    string
}

func (f *lineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.debits, "debit", nil, "debit line as CODE=AMOUNT (repeatable)")
	cmd.Flags().StringArrayVar(&f.credits, "credit", nil, "credit line as CODE=AMOUNT (repeatable)")
	cmd.Flags().StringVar(&f.memo, "memo", "", "description stored on every line")
}

func (f *lineFlags) lines() ([]accounting.LineInput, error) {
	out := make([]accounting.LineInput, 0, len(f.debits)+len(f.credits))
	for _, raw := range f.debits {
		code, amount, err := parseLine(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, accounting.LineInput{AccountCode: code, Description: f.memo, Debit: amount})
	}
	for _, raw := range f.credits {
		code, amount, err := parseLine(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, accounting.LineInput{AccountCode: code, Description: f.memo, Credit: amount})
	}
	return out, nil
}

func parseLine(raw string) (string, decimal.Decimal, error) {
	code, amount, ok := strings.Cut(raw, "=")
	code = strings.TrimSpace(code)
	if !ok || code == "" {
		return "", decimal.Zero, fmt.Errorf("line %q: expected CODE=AMOUNT", raw)
	}
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("line %q: invalid amount: %w", raw, err)
	}
	return code, value, nil
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("entry id %q: expected a positive integer", value)
	}
	return id, nil
}

func newEntriesRecordCommand(opts *options) *cobra.Command {
	var date, reference string
	var lf lineFlags

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a balanced journal entry",
		Example: "  ledgerctl entries record --date 2024-03-01 --ref INV-7 \\\n" +
			"    --debit 1001=250.00 --credit 4001=250.00 --memo \"Cash sale\"",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entryDate, err := parseDate(date)
			if err != nil {
				return err
			}
			lines, err := lf.lines()
			if err != nil {
				return err
			}
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			id, err := rt.Ledger.RecordEntry(ctx, accounting.EntryInput{Reference: reference, Date: entryDate, Lines: lines})
			if err != nil {
				return err
			}
			return opts.emit(cmd, map[string]int64{"entry_id": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Journal entry #%d recorded\n", id)
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "entry date YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("date")
	cmd.Flags().StringVar(&reference, "ref", "", "entry reference")
	lf.register(cmd)

	return cmd
}

func newEntriesOpeningCommand(opts *options) *cobra.Command {
	var date string
	var lf lineFlags

	cmd := &cobra.Command{
		Use:   "opening",
		Short: "Record the opening balance of a fiscal year (once per year)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var entryDate time.Time
			if date != "" {
				parsed, err := parseDate(date)
				if err != nil {
					return err
				}
				entryDate = parsed
			}
			lines, err := lf.lines()
			if err != nil {
				return err
			}
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			id, err := rt.Ledger.RecordOpeningBalance(ctx, accounting.OpeningBalanceInput{Date: entryDate, Lines: lines})
			if err != nil {
				return err
			}
			return opts.emit(cmd, map[string]int64{"entry_id": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Opening balance recorded as entry #%d\n", id)
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "opening date YYYY-MM-DD (defaults to today)")
	lf.register(cmd)

	return cmd
}

func newEntriesListCommand(opts *options) *cobra.Command {
	var from, to string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries in a date window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := parseWindow(from, to)
			if err != nil {
				return err
			}
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			entries, err := rt.Ledger.ListEntries(ctx, accounting.EntryFilter{From: window.From, To: window.To, Limit: limit})
			if err != nil {
				return err
			}
			return opts.emit(cmd, entries, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tDATE\tREFERENCE")
				for _, e := range entries {
					fmt.Fprintf(w, "%d\t%s\t%s\n", e.ID, e.Date.Format(dateLayout), e.Reference)
				}
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date YYYY-MM-DD")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries")

	return cmd
}

func newEntriesShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an entry with its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			entry, err := rt.Ledger.GetEntry(ctx, id)
			if err != nil {
				return err
			}
			return opts.emit(cmd, entry, func(w io.Writer) {
				fmt.Fprintf(w, "#%d\t%s\t%s\n", entry.ID, entry.Date.Format(dateLayout), entry.Reference)
				fmt.Fprintln(w, "ACCOUNT\tDESCRIPTION\tDEBIT\tCREDIT")
				for _, line := range entry.Lines {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", line.AccountCode, line.Description, line.Debit.StringFixed(2), line.Credit.StringFixed(2))
				}
				fmt.Fprintf(w, "\t\t%s\t%s\n", entry.TotalDebit().StringFixed(2), entry.TotalCredit().StringFixed(2))
			})
		},
	}
}

func newEntriesReverseCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <id>",
		Short: "Post a mirror entry that nets the original to zero",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			reversal, err := rt.Ledger.ReverseEntry(ctx, id)
			if err != nil {
				return err
			}
			return opts.emit(cmd, map[string]int64{"entry_id": id, "reversal_id": reversal}, func(w io.Writer) {
				fmt.Fprintf(w, "Entry #%d reversed by #%d\n", id, reversal)
			})
		},
	}
}

func newEntriesDeleteCommand(opts *options) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry and its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !confirmed {
				return fmt.Errorf("refusing to delete entry #%d without --yes", id)
			}
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			if err := rt.Ledger.DeleteEntry(ctx, id); err != nil {
				return err
			}
			return opts.emit(cmd, map[string]int64{"deleted": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Entry #%d deleted\n", id)
			})
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the deletion")

	return cmd
}

func parseWindow(from, to string) (accounting.ReportFilter, error) {
	var filter accounting.ReportFilter
	if from != "" {
		t, err := parseDate(from)
		if err != nil {
			return filter, err
		}
		filter.From = &t
	}
	if to != "" {
		t, err := parseDate(to)
		if err != nil {
			return filter, err
		}
		filter.To = &t
	}
	return filter, nil
}
