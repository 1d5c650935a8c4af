package accounting

import (
	"context"

	"github.com/Mugambi-md/Orion-sub000/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the ledger tables inside a single transaction.
type TxRepository interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	FindAccount(ctx context.Context, nameOrCode string) (Account, error)
	GetAccountByCode(ctx context.Context, code string) (Account, error)
	AccountNameExists(ctx context.Context, name string) (bool, error)
	NextAccountSequence(ctx context.Context, accountType AccountType) (int, error)
	InsertAccount(ctx context.Context, account Account) error

	InsertJournalEntry(ctx context.Context, entry JournalEntry) (int64, error)
	InsertJournalLines(ctx context.Context, entryID int64, lines []LineInput) error
	GetJournalWithLines(ctx context.Context, entryID int64) (JournalEntry, error)
	ListJournalEntries(ctx context.Context, filter EntryFilter) ([]JournalEntry, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	DeleteJournalLines(ctx context.Context, entryID int64) (int, error)
	DeleteJournalEntry(ctx context.Context, entryID int64) error

	AccountBalances(ctx context.Context, filter ReportFilter) ([]AccountBalance, error)
	UnbalancedEntries(ctx context.Context) ([]EntryImbalance, error)

	LockFiscalYear(ctx context.Context, year int) (FiscalYear, error)
	ShareFiscalYear(ctx context.Context, year int) (FiscalYear, error)
	SetFiscalYearStatus(ctx context.Context, year int, status FiscalYearStatus, actor string) error
	ListFiscalYears(ctx context.Context) ([]FiscalYear, error)
	ArchiveYear(ctx context.Context, year int) (int, error)
	DeleteYearJournal(ctx context.Context, year int) (lines int, entries int, err error)
	ListArchive(ctx context.Context, year int) ([]ArchiveRecord, error)
	DeleteArchive(ctx context.Context, year int) (int, error)
	DeleteLinesByDescription(ctx context.Context, descriptions ...string) (int, error)
	DeleteEmptyEntries(ctx context.Context, year int, reference string) (int, error)

	RecordAudit(ctx context.Context, log shared.AuditLog) error
}
