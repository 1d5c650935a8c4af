package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Income statement categories.
const (
	CategoryRevenue = "Revenue"
	CategoryExpense = "Expense"
)

// IncomeStatementRow represents a revenue or expense account summary.
type IncomeStatementRow struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// IncomeStatementSection groups accounts by nature.
type IncomeStatementSection struct {
	Label string               `json:"label"`
	Rows  []IncomeStatementRow `json:"rows"`
	Total decimal.Decimal      `json:"total"`
}

// IncomeStatement contains the structured output for the report.
type IncomeStatement struct {
	Revenue   IncomeStatementSection `json:"revenue"`
	Expense   IncomeStatementSection `json:"expense"`
	NetIncome decimal.Decimal        `json:"net_income"`
}

// Rows returns revenue rows followed by expense rows.
func (s IncomeStatement) Rows() []IncomeStatementRow {
	out := make([]IncomeStatementRow, 0, len(s.Revenue.Rows)+len(s.Expense.Rows))
	out = append(out, s.Revenue.Rows...)
	return append(out, s.Expense.Rows...)
}

// BuildIncomeStatement aggregates accounts into revenue and expense sections.
// Revenue is credit minus debit; expense is debit minus credit.
func BuildIncomeStatement(accounts []AccountBalance) IncomeStatement {
	revenue := IncomeStatementSection{Label: CategoryRevenue, Total: decimal.Zero}
	expense := IncomeStatementSection{Label: CategoryExpense, Total: decimal.Zero}

	for _, acc := range accounts {
		switch strings.ToUpper(acc.Type) {
		case TypeRevenue:
			row := IncomeStatementRow{Code: acc.Code, Name: acc.Name, Category: CategoryRevenue, Amount: acc.Credit.Sub(acc.Debit)}
			revenue.Rows = append(revenue.Rows, row)
			revenue.Total = revenue.Total.Add(row.Amount)
		case TypeExpense:
			row := IncomeStatementRow{Code: acc.Code, Name: acc.Name, Category: CategoryExpense, Amount: acc.Balance()}
			expense.Rows = append(expense.Rows, row)
			expense.Total = expense.Total.Add(row.Amount)
		}
	}

	sort.Slice(revenue.Rows, func(i, j int) bool { return revenue.Rows[i].Code < revenue.Rows[j].Code })
	sort.Slice(expense.Rows, func(i, j int) bool { return expense.Rows[i].Code < expense.Rows[j].Code })

	return IncomeStatement{
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total.Sub(expense.Total),
	}
}
