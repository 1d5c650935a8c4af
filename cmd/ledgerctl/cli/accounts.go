package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting"
	"github.com/Mugambi-md/Orion-sub000/internal/accounting/chart"
)

func newAccountsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(
		newAccountsListCommand(opts),
		newAccountsFindCommand(opts),
		newAccountsCreateCommand(opts),
		newAccountsSeedCommand(opts),
	)
	return cmd
}

func newAccountsListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts ordered by code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			accounts, err := rt.Ledger.ListAccounts(ctx)
			if err != nil {
				return err
			}
			return opts.emit(cmd, accounts, func(w io.Writer) {
				printAccounts(w, accounts...)
			})
		},
	}
}

func newAccountsFindCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "find <name-or-code>",
		Short: "Look an account up by name or code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			account, err := rt.Ledger.FindByNameOrCode(ctx, args[0])
			if err != nil {
				return err
			}
			return opts.emit(cmd, account, func(w io.Writer) {
				printAccounts(w, account)
			})
		},
	}
}

func newAccountsCreateCommand(opts *options) *cobra.Command {
	var name, accountType, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account; the code is issued by the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := accounting.ParseAccountType(accountType)
			if err != nil {
				return err
			}
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			account, err := rt.Ledger.CreateAccount(ctx, accounting.CreateAccountInput{
				Name:        name,
				Type:        parsed,
				Description: description,
			})
			if err != nil {
				return err
			}
			return opts.emit(cmd, account, func(w io.Writer) {
				fmt.Fprintf(w, "Account %s created with code %s\n", account.Name, account.Code)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "account name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&accountType, "type", "", "asset, liability, equity, revenue or expense (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")

	return cmd
}

func newAccountsSeedCommand(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default chart accounts that do not exist yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := loadChart(file)
			if err != nil {
				return err
			}
			inputs, err := chart.Inputs(defs)
			if err != nil {
				return err
			}
			rt, ctx, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			created, err := rt.Ledger.SeedChart(ctx, inputs)
			if err != nil {
				return err
			}
			return opts.emit(cmd, map[string]int{"created": created, "defined": len(inputs)}, func(w io.Writer) {
				fmt.Fprintf(w, "%d of %d chart accounts created\n", created, len(inputs))
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML chart file (defaults to the built-in retail chart)")

	return cmd
}

func loadChart(file string) ([]chart.Definition, error) {
	if file == "" {
		return chart.Default()
	}
	return chart.LoadFile(file)
}

func printAccounts(w io.Writer, accounts ...accounting.Account) {
	fmt.Fprintln(w, "CODE\tNAME\tTYPE\tDESCRIPTION")
	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Code, a.Name, a.Type, a.Description)
	}
}
