package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// BalanceSheetRow summarises an account for assets, liabilities, or equity.
type BalanceSheetRow struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and subtotal for a classification.
type BalanceSheetSection struct {
	Label string            `json:"label"`
	Rows  []BalanceSheetRow `json:"rows"`
	Total decimal.Decimal   `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
}

// Balanced reports whether assets equal liabilities plus equity.
func (bs BalanceSheet) Balanced() bool {
	return bs.Assets.Total.Equal(bs.TotalLiabilitiesAndEquity)
}

// BuildBalanceSheet aggregates balances into assets, liabilities, and equity sections.
// Assets are debit minus credit; liabilities and equity are credit minus debit.
func BuildBalanceSheet(accounts []AccountBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets", Total: decimal.Zero}
	liabilities := BalanceSheetSection{Label: "Liabilities", Total: decimal.Zero}
	equity := BalanceSheetSection{Label: "Equity", Total: decimal.Zero}

	for _, acc := range accounts {
		var section *BalanceSheetSection
		balance := acc.Credit.Sub(acc.Debit)
		switch strings.ToUpper(acc.Type) {
		case TypeAsset:
			section = &assets
			balance = acc.Balance()
		case TypeLiability:
			section = &liabilities
		case TypeEquity:
			section = &equity
		default:
			continue
		}
		section.Rows = append(section.Rows, BalanceSheetRow{Code: acc.Code, Name: acc.Name, Balance: balance})
		section.Total = section.Total.Add(balance)
	}

	for _, section := range []*BalanceSheetSection{&assets, &liabilities, &equity} {
		rows := section.Rows
		sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	}

	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		TotalLiabilitiesAndEquity: liabilities.Total.Add(equity.Total),
	}
}
