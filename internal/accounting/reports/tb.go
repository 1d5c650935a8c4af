package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Account type labels as stored on the chart.
const (
	TypeAsset     = "ASSET"
	TypeLiability = "LIABILITY"
	TypeEquity    = "EQUITY"
	TypeRevenue   = "REVENUE"
	TypeExpense   = "EXPENSE"
)

// AccountBalance models a ledger account with aggregated journal activity.
type AccountBalance struct {
	Code   string
	Name   string
	Type   string
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Balance returns debit minus credit.
func (a AccountBalance) Balance() decimal.Decimal {
	return a.Debit.Sub(a.Credit)
}

// TrialBalanceRow represents one account in the trial balance.
type TrialBalanceRow struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// TrialBalance lists every account, including those without activity.
type TrialBalance struct {
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
}

// Row returns the row for code.
func (tb TrialBalance) Row(code string) (TrialBalanceRow, bool) {
	for _, row := range tb.Rows {
		if row.Code == code {
			return row, true
		}
	}
	return TrialBalanceRow{}, false
}

// Balanced reports whether both sides agree.
func (tb TrialBalance) Balanced() bool {
	return tb.TotalDebit.Equal(tb.TotalCredit)
}

// BuildTrialBalance converts account balances into trial balance rows ordered by code.
func BuildTrialBalance(accounts []AccountBalance) TrialBalance {
	result := TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, acc := range accounts {
		result.Rows = append(result.Rows, TrialBalanceRow{
			Code:        acc.Code,
			Name:        acc.Name,
			Type:        acc.Type,
			TotalDebit:  acc.Debit,
			TotalCredit: acc.Credit,
			Balance:     acc.Balance(),
		})
		result.TotalDebit = result.TotalDebit.Add(acc.Debit)
		result.TotalCredit = result.TotalCredit.Add(acc.Credit)
	}
	sort.SliceStable(result.Rows, func(i, j int) bool { return result.Rows[i].Code < result.Rows[j].Code })
	return result
}
