package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting"
)

// Ledger exposes the journal posting operation required by integrations.
type Ledger interface {
	RecordEntry(ctx context.Context, in accounting.EntryInput) (int64, error)
}

// Accounts maps each integration posting onto chart codes.
type Accounts struct {
	Cash            string
	SalesRevenue    string
	Inventory       string
	AccountsPayable string
	SalariesExpense string
}

// SaleCompleted is emitted by the point of sale once a receipt is paid.
type SaleCompleted struct {
	Number      string          `json:"number"`
	CompletedAt time.Time       `json:"completed_at"`
	Total       decimal.Decimal `json:"total"`
}

// StockLine is one received item.
type StockLine struct {
	SKU      string          `json:"sku"`
	Qty      decimal.Decimal `json:"qty"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// StockReceived is emitted when a supplier delivery is booked into stock on credit.
type StockReceived struct {
	Number     string      `json:"number"`
	Supplier   string      `json:"supplier"`
	ReceivedAt time.Time   `json:"received_at"`
	Lines      []StockLine `json:"lines"`
}

// PayrollPosted is emitted when a payroll run is paid out.
type PayrollPosted struct {
	Period string          `json:"period"`
	PaidAt time.Time       `json:"paid_at"`
	Gross  decimal.Decimal `json:"gross"`
}

// Hooks wires events from operational modules into the general ledger.
type Hooks struct {
	ledger   Ledger
	accounts Accounts
}

// NewHooks constructs integration hooks.
func NewHooks(ledger Ledger, accounts Accounts) *Hooks {
	return &Hooks{ledger: ledger, accounts: accounts}
}

func (h *Hooks) post(ctx context.Context, date time.Time, reference string, debit, credit accounting.LineInput, amount decimal.Decimal) (int64, error) {
	if strings.TrimSpace(debit.AccountCode) == "" || strings.TrimSpace(credit.AccountCode) == "" {
		return 0, errors.New("integration: account mapping missing")
	}
	debit.Debit = amount
	credit.Credit = amount
	return h.ledger.RecordEntry(ctx, accounting.EntryInput{
		Reference: reference,
		Date:      date,
		Lines:     []accounting.LineInput{debit, credit},
	})
}

// HandleSaleCompleted debits cash and credits sales revenue. A zero total posts nothing.
func (h *Hooks) HandleSaleCompleted(ctx context.Context, evt SaleCompleted) (int64, error) {
	if h == nil || h.ledger == nil {
		return 0, nil
	}
	if evt.CompletedAt.IsZero() {
		return 0, errors.New("integration: sale completion date required")
	}
	amount := round2(evt.Total)
	if !amount.IsPositive() {
		return 0, nil
	}
	memo := fmt.Sprintf("Sale %s", evt.Number)
	return h.post(ctx, evt.CompletedAt, memo,
		accounting.LineInput{AccountCode: h.accounts.Cash, Description: memo},
		accounting.LineInput{AccountCode: h.accounts.SalesRevenue, Description: memo},
		amount)
}

// HandleStockReceived debits inventory and credits accounts payable for the
// delivery value.
func (h *Hooks) HandleStockReceived(ctx context.Context, evt StockReceived) (int64, error) {
	if h == nil || h.ledger == nil {
		return 0, nil
	}
	if evt.ReceivedAt.IsZero() {
		return 0, errors.New("integration: stock received date required")
	}
	total := decimal.Zero
	for _, line := range evt.Lines {
		total = total.Add(monetary(line.Qty, line.UnitCost))
	}
	total = round2(total)
	if !total.IsPositive() {
		return 0, nil
	}
	memo := fmt.Sprintf("Goods received %s", evt.Number)
	if evt.Supplier != "" {
		memo += " from " + evt.Supplier
	}
	return h.post(ctx, evt.ReceivedAt, fmt.Sprintf("GRN %s", evt.Number),
		accounting.LineInput{AccountCode: h.accounts.Inventory, Description: memo},
		accounting.LineInput{AccountCode: h.accounts.AccountsPayable, Description: memo},
		total)
}

// HandlePayrollPosted debits salaries expense and credits cash.
func (h *Hooks) HandlePayrollPosted(ctx context.Context, evt PayrollPosted) (int64, error) {
	if h == nil || h.ledger == nil {
		return 0, nil
	}
	if evt.PaidAt.IsZero() {
		return 0, errors.New("integration: payroll payment date required")
	}
	amount := round2(evt.Gross)
	if !amount.IsPositive() {
		return 0, nil
	}
	memo := fmt.Sprintf("Payroll %s", evt.Period)
	return h.post(ctx, evt.PaidAt, memo,
		accounting.LineInput{AccountCode: h.accounts.SalariesExpense, Description: memo},
		accounting.LineInput{AccountCode: h.accounts.Cash, Description: memo},
		amount)
}
