package accountinghttp

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting"
)

const dateLayout = "2006-01-02"

type response struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Kind    accounting.ErrorKind `json:"kind,omitempty"`
	Data    any                  `json:"data,omitempty"`
}

type createAccountRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Type        string `json:"type" validate:"required"`
	Description string `json:"description" validate:"max=500"`
}

type lineRequest struct {
	AccountCode string          `json:"account_code" validate:"required,max=16"`
	Description string          `json:"description" validate:"max=255"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type entryRequest struct {
	Reference string        `json:"reference" validate:"max=120"`
	Date      string        `json:"date" validate:"required,datetime=2006-01-02"`
	Lines     []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type openingBalanceRequest struct {
	Date  string        `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Lines []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type accountView struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type lineView struct {
	AccountCode string          `json:"account_code"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type entryView struct {
	ID        int64      `json:"id"`
	Date      string     `json:"date"`
	Reference string     `json:"reference"`
	Lines     []lineView `json:"lines,omitempty"`
}

type fiscalYearView struct {
	Year     int        `json:"year"`
	Status   string     `json:"status"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
	ClosedBy string     `json:"closed_by,omitempty"`
}

type imbalanceView struct {
	EntryID   int64           `json:"entry_id"`
	Reference string          `json:"reference"`
	Date      string          `json:"date"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

func toLines(in []lineRequest) []accounting.LineInput {
	out := make([]accounting.LineInput, 0, len(in))
	for _, line := range in {
		out = append(out, accounting.LineInput{
			AccountCode: line.AccountCode,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}
	return out
}

func toAccountView(a accounting.Account) accountView {
	return accountView{Code: a.Code, Name: a.Name, Type: string(a.Type), Description: a.Description}
}

func toEntryView(e accounting.JournalEntry) entryView {
	view := entryView{ID: e.ID, Date: e.Date.Format(dateLayout), Reference: e.Reference}
	for _, line := range e.Lines {
		view.Lines = append(view.Lines, lineView{
			AccountCode: line.AccountCode,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}
	return view
}
