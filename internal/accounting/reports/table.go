package reports

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Table is the tabular form handed to export and print collaborators.
// Columns fix the order; every row carries a value for each column.
type Table struct {
	Title   string              `json:"title"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// TypeLabel renders a stored account type such as "ASSET" as "Asset".
// A Caser keeps state between calls, so each call gets its own.
func TypeLabel(accountType string) string {
	return cases.Title(language.English).String(accountType)
}

func money(v decimal.Decimal) string {
	return v.StringFixed(2)
}

// Table renders the trial balance.
func (tb TrialBalance) Table() Table {
	t := Table{Title: "Trial Balance", Columns: []string{"Code", "Account", "Type", "Debit", "Credit", "Balance"}}
	for _, row := range tb.Rows {
		t.Rows = append(t.Rows, map[string]string{
			"Code":    row.Code,
			"Account": row.Name,
			"Type":    TypeLabel(row.Type),
			"Debit":   money(row.TotalDebit),
			"Credit":  money(row.TotalCredit),
			"Balance": money(row.Balance),
		})
	}
	t.Rows = append(t.Rows, map[string]string{
		"Code": "", "Account": "Total", "Type": "",
		"Debit":   money(tb.TotalDebit),
		"Credit":  money(tb.TotalCredit),
		"Balance": money(tb.TotalDebit.Sub(tb.TotalCredit)),
	})
	return t
}

// Table renders the income statement.
func (s IncomeStatement) Table() Table {
	t := Table{Title: "Income Statement", Columns: []string{"Category", "Code", "Account", "Amount"}}
	for _, section := range []IncomeStatementSection{s.Revenue, s.Expense} {
		for _, row := range section.Rows {
			t.Rows = append(t.Rows, map[string]string{
				"Category": row.Category,
				"Code":     row.Code,
				"Account":  row.Name,
				"Amount":   money(row.Amount),
			})
		}
		t.Rows = append(t.Rows, map[string]string{"Category": section.Label, "Code": "", "Account": "Total " + section.Label, "Amount": money(section.Total)})
	}
	t.Rows = append(t.Rows, map[string]string{"Category": "", "Code": "", "Account": "Net Income", "Amount": money(s.NetIncome)})
	return t
}

// Table renders the balance sheet.
func (bs BalanceSheet) Table() Table {
	t := Table{Title: "Balance Sheet", Columns: []string{"Section", "Code", "Account", "Balance"}}
	for _, section := range []BalanceSheetSection{bs.Assets, bs.Liabilities, bs.Equity} {
		for _, row := range section.Rows {
			t.Rows = append(t.Rows, map[string]string{
				"Section": section.Label,
				"Code":    row.Code,
				"Account": row.Name,
				"Balance": money(row.Balance),
			})
		}
		t.Rows = append(t.Rows, map[string]string{"Section": section.Label, "Code": "", "Account": "Total " + section.Label, "Balance": money(section.Total)})
	}
	t.Rows = append(t.Rows, map[string]string{"Section": "", "Code": "", "Account": "Total Liabilities and Equity", "Balance": money(bs.TotalLiabilitiesAndEquity)})
	return t
}

// Table renders the cash flow statement.
func (cf CashFlow) Table() Table {
	t := Table{Title: "Cash Flow", Columns: []string{"Activity", "Code", "Account", "Flow", "Amount"}}
	for _, section := range cf.Sections() {
		for _, row := range section.Rows {
			t.Rows = append(t.Rows, map[string]string{
				"Activity": row.Activity,
				"Code":     row.Code,
				"Account":  row.Name,
				"Flow":     row.Flow,
				"Amount":   money(row.Amount),
			})
		}
		t.Rows = append(t.Rows, map[string]string{"Activity": section.Label, "Code": "", "Account": "Net " + section.Label, "Flow": "", "Amount": money(section.Total)})
	}
	t.Rows = append(t.Rows, map[string]string{"Activity": "", "Code": "", "Account": "Net Change", "Flow": "", "Amount": money(cf.NetChange)})
	return t
}
