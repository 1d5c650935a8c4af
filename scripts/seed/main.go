// Command seed loads a demo ledger: the default chart, an opening balance and
// a few months of retail activity posted through the integration hooks.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting"
	"github.com/Mugambi-md/Orion-sub000/internal/accounting/chart"
	"github.com/Mugambi-md/Orion-sub000/internal/app"
	"github.com/Mugambi-md/Orion-sub000/internal/integration"
	"github.com/Mugambi-md/Orion-sub000/internal/platform/db"
	"github.com/Mugambi-md/Orion-sub000/internal/shared"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := shared.ContextWithActor(context.Background(), "seed")
	pool, err := db.New(ctx, cfg.Postgres("orion-seed"))
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if _, err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ledger, closeLedger, err := app.NewLedger(app.LedgerParams{Config: cfg, Logger: app.NewLogger(cfg), Pool: pool})
	if err != nil {
		log.Fatalf("init ledger: %v", err)
	}
	defer closeLedger()

	fmt.Println("→ Seeding chart of accounts...")
	defs, err := chart.Default()
	if err != nil {
		log.Fatalf("load chart: %v", err)
	}
	inputs, err := chart.Inputs(defs)
	if err != nil {
		log.Fatalf("chart inputs: %v", err)
	}
	created, err := ledger.SeedChart(ctx, inputs)
	if err != nil {
		log.Fatalf("seed chart: %v", err)
	}
	fmt.Printf("  %d accounts created\n", created)

	year := time.Now().Year() - 1
	fmt.Printf("→ Seeding opening balance %d...\n", year)
	if err := seedOpening(ctx, ledger, cfg.IntegrationAccounts(), year); err != nil {
		log.Fatalf("seed opening balance: %v", err)
	}

	fmt.Println("→ Seeding retail activity...")
	if err := seedActivity(ctx, integration.NewHooks(ledger, cfg.IntegrationAccounts()), year); err != nil {
		log.Fatalf("seed activity: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedOpening(ctx context.Context, ledger *accounting.Service, accounts integration.Accounts, year int) error {
	capital, err := ledger.FindByNameOrCode(ctx, "Owner Capital")
	if err != nil {
		return err
	}
	_, err = ledger.RecordOpeningBalance(ctx, accounting.OpeningBalanceInput{
		Date: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		Lines: []accounting.LineInput{
			{AccountCode: accounts.Cash, Description: "Owner investment", Debit: decimal.NewFromInt(20000)},
			{AccountCode: capital.Code, Description: "Owner investment", Credit: decimal.NewFromInt(20000)},
		},
	})
	if errors.Is(err, accounting.ErrDuplicateOpeningBalance) {
		fmt.Println("  opening balance already present")
		return nil
	}
	return err
}

func seedActivity(ctx context.Context, hooks *integration.Hooks, year int) error {
	for month := time.January; month <= time.March; month++ {
		received := time.Date(year, month, 3, 9, 0, 0, 0, time.UTC)
		if _, err := hooks.HandleStockReceived(ctx, integration.StockReceived{
			Number:     fmt.Sprintf("GRN-%d%02d", year, month),
			Supplier:   "Acme Wholesale",
			ReceivedAt: received,
			Lines: []integration.StockLine{
				{SKU: "TEA-250", Qty: decimal.NewFromInt(40), UnitCost: decimal.RequireFromString("3.75")},
				{SKU: "MUG-01", Qty: decimal.NewFromInt(12), UnitCost: decimal.RequireFromString("6.20")},
			},
		}); err != nil {
			return err
		}
		for day := 10; day <= 25; day += 5 {
			if _, err := hooks.HandleSaleCompleted(ctx, integration.SaleCompleted{
				Number:      fmt.Sprintf("R-%d%02d%02d", year, month, day),
				CompletedAt: time.Date(year, month, day, 17, 30, 0, 0, time.UTC),
				Total:       decimal.NewFromInt(int64(180 + day*7)),
			}); err != nil {
				return err
			}
		}
		if _, err := hooks.HandlePayrollPosted(ctx, integration.PayrollPosted{
			Period: fmt.Sprintf("%d-%02d", year, month),
			PaidAt: time.Date(year, month, 28, 12, 0, 0, 0, time.UTC),
			Gross:  decimal.NewFromInt(1450),
		}); err != nil {
			return err
		}
	}
	return nil
}
