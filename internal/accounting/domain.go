package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// AccountTypes lists every type in code-digit order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

// CodeDigit returns the leading digit used when issuing codes for the type.
func (t AccountType) CodeDigit() int {
	switch t {
	case AccountTypeAsset:
		return 1
	case AccountTypeLiability:
		return 2
	case AccountTypeEquity:
		return 3
	case AccountTypeRevenue:
		return 4
	case AccountTypeExpense:
		return 5
	default:
		return 0
	}
}

// Valid reports whether the type is part of the chart.
func (t AccountType) Valid() bool {
	return t.CodeDigit() != 0
}

// IsBalanceSheet reports whether balances of this type carry forward across years.
func (t AccountType) IsBalanceSheet() bool {
	return t == AccountTypeAsset || t == AccountTypeLiability || t == AccountTypeEquity
}

// ParseAccountType normalises user input such as "asset" or "Revenue".
func ParseAccountType(value string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(value)))
	if !t.Valid() {
		return "", validationf("unknown account type %q", value)
	}
	return t, nil
}

// FormatAccountCode combines the type digit with a sequence number.
func FormatAccountCode(t AccountType, seq int) string {
	return fmt.Sprintf("%d%03d", t.CodeDigit(), seq)
}

const (
	// RetainedEarningsCode is the fixed code of the retained earnings account.
	RetainedEarningsCode = "3000"
	// RetainedEarningsName is the display name of the retained earnings account.
	RetainedEarningsName = "Retained Earnings"
)

// Account models a chart of accounts node. Code never changes once issued.
type Account struct {
	Code        string
	Name        string
	Type        AccountType
	Description string
}

// JournalEntry is a dated transaction header.
type JournalEntry struct {
	ID        int64
	Date      time.Time
	Reference string
	Lines     []JournalLine
}

// TotalDebit sums the debit side of the loaded lines.
func (e JournalEntry) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		total = total.Add(line.Debit)
	}
	return total
}

// TotalCredit sums the credit side of the loaded lines.
func (e JournalEntry) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		total = total.Add(line.Credit)
	}
	return total
}

// JournalLine stores a debit or credit amount for an account.
type JournalLine struct {
	ID          int64
	EntryID     int64
	AccountCode string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// ArchiveRecord is a frozen journal line of a closed fiscal year.
type ArchiveRecord struct {
	ID            int64
	Date          time.Time
	AccountCode   string
	AccountName   string
	Description   string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	PeriodEndYear int
}

// FiscalYearStatus enumerates closing states. A CLOSING year refuses
// postings while CloseYear runs.
type FiscalYearStatus string

const (
	FiscalYearOpen    FiscalYearStatus = "OPEN"
	FiscalYearClosing FiscalYearStatus = "CLOSING"
	FiscalYearClosed  FiscalYearStatus = "CLOSED"
)

// FiscalYear tracks the closing state of a calendar year.
type FiscalYear struct {
	Year     int
	Status   FiscalYearStatus
	ClosedAt *time.Time
	ClosedBy string
}

// AccountBalance aggregates journal activity for an account.
type AccountBalance struct {
	Account
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Net returns debit minus credit.
func (b AccountBalance) Net() decimal.Decimal {
	return b.Debit.Sub(b.Credit)
}

// EntryImbalance describes a live entry whose sides differ.
type EntryImbalance struct {
	EntryID   int64
	Reference string
	Date      time.Time
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// CreateAccountInput describes a new chart entry.
type CreateAccountInput struct {
	Name        string
	Type        AccountType
	Description string
}

// Validate ensures the account definition is usable.
func (in CreateAccountInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return validationf("account name required")
	}
	if !in.Type.Valid() {
		return validationf("unknown account type %q", in.Type)
	}
	if in.Type != AccountTypeEquity && strings.EqualFold(strings.TrimSpace(in.Name), RetainedEarningsName) {
		return &Error{Kind: KindValidation, Msg: ErrReservedAccountName.Msg, Err: fmt.Errorf("type %s", in.Type)}
	}
	return nil
}

// LineInput describes a journal line supplied by a caller.
type LineInput struct {
	AccountCode string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// EntryInput groups fields required to record a journal entry.
type EntryInput struct {
	Reference string
	Date      time.Time
	Lines     []LineInput
}

// Validate checks amounts and balance before anything is persisted.
func (in EntryInput) Validate() error {
	if in.Date.IsZero() {
		return validationf("entry date required")
	}
	return validateLines(in.Lines)
}

// OpeningBalanceInput carries the starting position of a fiscal year.
type OpeningBalanceInput struct {
	Date  time.Time
	Lines []LineInput
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return ErrNoLines
	}
	debit, credit := decimal.Zero, decimal.Zero
	for idx, line := range lines {
		if strings.TrimSpace(line.AccountCode) == "" {
			return validationf("line %d missing account", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return validationf("line %d negative amount", idx)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return validationf("line %d has neither debit nor credit", idx)
		}
		if !line.Debit.IsZero() && !line.Credit.IsZero() {
			return validationf("line %d cannot be both debit and credit", idx)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Round(2).Equal(credit.Round(2)) {
		return ErrUnbalanced
	}
	return nil
}

// EntryFilter narrows entry listings.
type EntryFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

// ReportFilter restricts reports to a date window on the entry date.
type ReportFilter struct {
	From *time.Time
	To   *time.Time
}

// Key renders the filter for cache keys.
func (f ReportFilter) Key() string {
	from, to := "-", "-"
	if f.From != nil {
		from = f.From.Format("2006-01-02")
	}
	if f.To != nil {
		to = f.To.Format("2006-01-02")
	}
	return from + ":" + to
}

// ClosingSummary reports what CloseYear changed.
type ClosingSummary struct {
	Year             int
	OpeningEntryID   int64
	ArchivedLines    int
	CarriedAccounts  int
	RetainedEarnings decimal.Decimal
}

// ReopenSummary reports what ReverseYear changed.
type ReopenSummary struct {
	Year           int
	EntryID        int64
	RestoredLines  int
	RemovedLines   int
	RemovedEntries int
}

// RetainedEarningsMode selects how closing posts profit or loss into equity.
type RetainedEarningsMode string

const (
	// RetainedEarningsPerAccount posts one line per revenue or expense account.
	RetainedEarningsPerAccount RetainedEarningsMode = "per_account"
	// RetainedEarningsSingle posts the accumulated figure once.
	RetainedEarningsSingle RetainedEarningsMode = "single"
	// RetainedEarningsRunning posts the running accumulated figure after every
	// revenue or expense account. The opening entry only balances when a single
	// account contributes.
	RetainedEarningsRunning RetainedEarningsMode = "running"
)

// ParseRetainedEarningsMode maps configuration values onto a mode; blank selects per_account.
func ParseRetainedEarningsMode(value string) (RetainedEarningsMode, error) {
	switch mode := RetainedEarningsMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return RetainedEarningsPerAccount, nil
	case RetainedEarningsPerAccount, RetainedEarningsSingle, RetainedEarningsRunning:
		return mode, nil
	default:
		return "", validationf("unknown retained earnings mode %q", value)
	}
}

func openingBalanceReference(year int) string {
	return fmt.Sprintf("OB-%d", year)
}

func reversalReference(entryID int64) string {
	return fmt.Sprintf("Reversal of #%d", entryID)
}

func closingReference(year int) string {
	return fmt.Sprintf("Opening Balance %d", year+1)
}

func carryForwardDescription(year int) string {
	return fmt.Sprintf("Opening balance %d", year+1)
}

func retainedEarningsDescription(year int) string {
	return fmt.Sprintf("Retained earnings %d", year)
}

func yearReversalReference(year int) string {
	return fmt.Sprintf("Reversal of year %d", year)
}
