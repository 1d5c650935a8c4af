package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Cash flow buckets and directions.
const (
	ActivityOperating = "Operating Activity"
	ActivityFinancing = "Financing Activity"
	ActivityInvesting = "Investing Activity"

	FlowInflow  = "inflow"
	FlowOutflow = "outflow"
)

// CashFlowRow classifies one account's movement.
type CashFlowRow struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Activity string          `json:"activity"`
	Flow     string          `json:"flow"`
	Amount   decimal.Decimal `json:"amount"`
}

// CashFlowSection holds one activity bucket.
type CashFlowSection struct {
	Label string          `json:"label"`
	Rows  []CashFlowRow   `json:"rows"`
	Total decimal.Decimal `json:"total"`
}

// CashFlow is a simplified direct view: every account is bucketed by type and
// its credit minus debit decides the direction. It is not an indirect-method
// statement.
type CashFlow struct {
	Operating CashFlowSection `json:"operating"`
	Financing CashFlowSection `json:"financing"`
	Investing CashFlowSection `json:"investing"`
	NetChange decimal.Decimal `json:"net_change"`
}

// Sections returns the buckets in presentation order.
func (cf CashFlow) Sections() []CashFlowSection {
	return []CashFlowSection{cf.Operating, cf.Financing, cf.Investing}
}

// BuildCashFlow buckets accounts into operating, financing and investing activity.
// Revenue and expense accounts named like "Depreciation" are left out.
func BuildCashFlow(accounts []AccountBalance) CashFlow {
	operating := CashFlowSection{Label: ActivityOperating, Total: decimal.Zero}
	financing := CashFlowSection{Label: ActivityFinancing, Total: decimal.Zero}
	investing := CashFlowSection{Label: ActivityInvesting, Total: decimal.Zero}

	for _, acc := range accounts {
		var section *CashFlowSection
		switch strings.ToUpper(acc.Type) {
		case TypeRevenue, TypeExpense:
			if strings.Contains(acc.Name, "Depreciation") {
				continue
			}
			section = &operating
		case TypeEquity, TypeLiability:
			section = &financing
		case TypeAsset:
			section = &investing
		default:
			continue
		}
		amount := acc.Credit.Sub(acc.Debit)
		flow := FlowInflow
		if amount.IsNegative() {
			flow = FlowOutflow
		}
		section.Rows = append(section.Rows, CashFlowRow{
			Code:     acc.Code,
			Name:     acc.Name,
			Activity: section.Label,
			Flow:     flow,
			Amount:   amount,
		})
		section.Total = section.Total.Add(amount)
	}

	for _, section := range []*CashFlowSection{&operating, &financing, &investing} {
		rows := section.Rows
		sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	}

	return CashFlow{
		Operating: operating,
		Financing: financing,
		Investing: investing,
		NetChange: operating.Total.Add(financing.Total).Add(investing.Total),
	}
}
