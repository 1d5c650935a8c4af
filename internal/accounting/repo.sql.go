package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Mugambi-md/Orion-sub000/internal/platform/db"
	"github.com/Mugambi-md/Orion-sub000/internal/shared"
)

const (
	pgUniqueViolation       = "23505"
	pgForeignKeyViolation   = "23503"
	pgSerializationFailure  = "40001"
	pgDeadlockDetected      = "40P01"
	constraintAccountsPK    = "accounts_pkey"
	constraintAccountsName  = "uq_accounts_name"
	constraintOpeningRef    = "uq_journal_entries_opening"
	constraintLineAccountFK = "journal_entry_lines_account_code_fkey"
)

// errCodeTaken signals a lost race on the account code; the service retries.
var errCodeTaken = &Error{Kind: KindConcurrency, Msg: "account code already issued"}

// Repository persists ledger entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("accounting repository not initialised")
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
	return mapPgError(err)
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected:
		return &Error{Kind: KindConcurrency, Msg: ErrSerialization.Msg, Err: err}
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintAccountsPK:
			return errCodeTaken
		case constraintAccountsName:
			return ErrDuplicateAccount
		case constraintOpeningRef:
			return ErrDuplicateOpeningBalance
		}
		return &Error{Kind: KindDuplicate, Err: err}
	case pgForeignKeyViolation:
		if pgErr.ConstraintName == constraintLineAccountFK {
			return ErrUnknownAccountCode
		}
	}
	return err
}

func (r *txRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT code, name, type, description FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.Code, &a.Name, &a.Type, &a.Description); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *txRepository) FindAccount(ctx context.Context, nameOrCode string) (Account, error) {
	var a Account
	err := r.tx.QueryRow(ctx, `SELECT code, name, type, description FROM accounts
WHERE code=$1 OR lower(name)=lower($1) ORDER BY (code=$1) DESC LIMIT 1`, nameOrCode).
		Scan(&a.Code, &a.Name, &a.Type, &a.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	var a Account
	err := r.tx.QueryRow(ctx, `SELECT code, name, type, description FROM accounts WHERE code=$1`, code).
		Scan(&a.Code, &a.Name, &a.Type, &a.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) AccountNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(name)=lower($1))`, name).Scan(&exists)
	return exists, err
}

// NextAccountSequence bumps the per-type counter, seeding it from the highest
// issued code the first time a type is used.
func (r *txRepository) NextAccountSequence(ctx context.Context, accountType AccountType) (int, error) {
	var seq int
	err := r.tx.QueryRow(ctx, `INSERT INTO account_code_sequences (account_type, last_seq)
VALUES ($1, (SELECT COALESCE(MAX(CAST(SUBSTRING(code FROM 2) AS INTEGER)), 0) + 1 FROM accounts WHERE type=$1))
ON CONFLICT (account_type) DO UPDATE SET last_seq = account_code_sequences.last_seq + 1
RETURNING last_seq`, string(accountType)).Scan(&seq)
	return seq, err
}

func (r *txRepository) InsertAccount(ctx context.Context, account Account) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO accounts (code, name, type, description) VALUES ($1,$2,$3,$4)`,
		account.Code, account.Name, string(account.Type), account.Description)
	return mapPgError(err)
}

func (r *txRepository) InsertJournalEntry(ctx context.Context, entry JournalEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (date, reference) VALUES ($1,$2) RETURNING id`,
		entry.Date, entry.Reference).Scan(&id)
	if err != nil {
		return 0, mapPgError(err)
	}
	return id, nil
}

func (r *txRepository) InsertJournalLines(ctx context.Context, entryID int64, lines []LineInput) error {
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(`INSERT INTO journal_entry_lines (entry_id, account_code, description, debit, credit) VALUES ($1,$2,$3,$4,$5)`,
			entryID, line.AccountCode, line.Description, toNumeric(line.Debit), toNumeric(line.Credit))
	}
	results := r.tx.SendBatch(ctx, batch)
	for range lines {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return mapPgError(err)
		}
	}
	return results.Close()
}

func (r *txRepository) GetJournalWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := r.tx.QueryRow(ctx, `SELECT id, date, reference FROM journal_entries WHERE id=$1`, entryID).
		Scan(&entry.ID, &entry.Date, &entry.Reference)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, entry_id, account_code, description, debit::text, credit::text
FROM journal_entry_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			line          JournalLine
			debit, credit string
		)
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountCode, &line.Description, &debit, &credit); err != nil {
			return JournalEntry{}, err
		}
		if line.Debit, line.Credit, err = parsePair(debit, credit); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) ListJournalEntries(ctx context.Context, filter EntryFilter) ([]JournalEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.tx.Query(ctx, `SELECT id, date, reference FROM journal_entries
WHERE ($1::date IS NULL OR date >= $1) AND ($2::date IS NULL OR date <= $2)
ORDER BY date DESC, id DESC LIMIT $3`, filter.From, filter.To, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.Date, &e.Reference); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *txRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE reference=$1)`, reference).Scan(&exists)
	return exists, err
}

func (r *txRepository) DeleteJournalLines(ctx context.Context, entryID int64) (int, error) {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entry_lines WHERE entry_id=$1`, entryID)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *txRepository) DeleteJournalEntry(ctx context.Context, entryID int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrJournalNotFound
	}
	return nil
}

func (r *txRepository) AccountBalances(ctx context.Context, filter ReportFilter) ([]AccountBalance, error) {
	rows, err := r.tx.Query(ctx, `SELECT a.code, a.name, a.type, a.description,
       COALESCE(SUM(l.debit), 0)::text, COALESCE(SUM(l.credit), 0)::text
FROM accounts a
LEFT JOIN (journal_entry_lines l
    JOIN journal_entries e ON e.id = l.entry_id
     AND ($1::date IS NULL OR e.date >= $1)
     AND ($2::date IS NULL OR e.date <= $2))
  ON l.account_code = a.code
GROUP BY a.code, a.name, a.type, a.description
ORDER BY a.code`, filter.From, filter.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []AccountBalance
	for rows.Next() {
		var (
			b             AccountBalance
			debit, credit string
		)
		if err := rows.Scan(&b.Code, &b.Name, &b.Type, &b.Description, &debit, &credit); err != nil {
			return nil, err
		}
		if b.Debit, b.Credit, err = parsePair(debit, credit); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (r *txRepository) UnbalancedEntries(ctx context.Context) ([]EntryImbalance, error) {
	rows, err := r.tx.Query(ctx, `SELECT e.id, e.reference, e.date,
       COALESCE(SUM(l.debit), 0)::text, COALESCE(SUM(l.credit), 0)::text
FROM journal_entries e
LEFT JOIN journal_entry_lines l ON l.entry_id = e.id
GROUP BY e.id, e.reference, e.date
HAVING COALESCE(SUM(l.debit), 0) <> COALESCE(SUM(l.credit), 0)
ORDER BY e.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EntryImbalance
	for rows.Next() {
		var (
			item          EntryImbalance
			debit, credit string
		)
		if err := rows.Scan(&item.EntryID, &item.Reference, &item.Date, &debit, &credit); err != nil {
			return nil, err
		}
		if item.Debit, item.Credit, err = parsePair(debit, credit); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// LockFiscalYear materialises the year row if needed and holds it FOR UPDATE
// until the transaction ends.
func (r *txRepository) LockFiscalYear(ctx context.Context, year int) (FiscalYear, error) {
	if _, err := r.tx.Exec(ctx, `INSERT INTO fiscal_years (year, status) VALUES ($1, 'OPEN') ON CONFLICT (year) DO NOTHING`, year); err != nil {
		return FiscalYear{}, err
	}
	var fy FiscalYear
	err := r.tx.QueryRow(ctx, `SELECT year, status, closed_at, COALESCE(closed_by, '') FROM fiscal_years WHERE year=$1 FOR UPDATE`, year).
		Scan(&fy.Year, &fy.Status, &fy.ClosedAt, &fy.ClosedBy)
	if err != nil {
		return FiscalYear{}, mapPgError(err)
	}
	return fy, nil
}

// ShareFiscalYear reads the year row FOR SHARE so postings conflict with a
// concurrent close instead of slipping past it.
func (r *txRepository) ShareFiscalYear(ctx context.Context, year int) (FiscalYear, error) {
	if _, err := r.tx.Exec(ctx, `INSERT INTO fiscal_years (year, status) VALUES ($1, 'OPEN') ON CONFLICT (year) DO NOTHING`, year); err != nil {
		return FiscalYear{}, err
	}
	var fy FiscalYear
	err := r.tx.QueryRow(ctx, `SELECT year, status, closed_at, COALESCE(closed_by, '') FROM fiscal_years WHERE year=$1 FOR SHARE`, year).
		Scan(&fy.Year, &fy.Status, &fy.ClosedAt, &fy.ClosedBy)
	if err != nil {
		return FiscalYear{}, mapPgError(err)
	}
	return fy, nil
}

func (r *txRepository) SetFiscalYearStatus(ctx context.Context, year int, status FiscalYearStatus, actor string) error {
	var (
		closedAt *time.Time
		closedBy *string
	)
	if status == FiscalYearClosed {
		now := time.Now().UTC()
		closedAt = &now
		closedBy = &actor
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE fiscal_years SET status=$2, closed_at=$3, closed_by=$4, updated_at=NOW() WHERE year=$1`,
		year, string(status), closedAt, closedBy)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return notFoundf("fiscal year %d not found", year)
	}
	return nil
}

func (r *txRepository) ListFiscalYears(ctx context.Context) ([]FiscalYear, error) {
	rows, err := r.tx.Query(ctx, `SELECT year, status, closed_at, COALESCE(closed_by, '') FROM fiscal_years ORDER BY year`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var years []FiscalYear
	for rows.Next() {
		var fy FiscalYear
		if err := rows.Scan(&fy.Year, &fy.Status, &fy.ClosedAt, &fy.ClosedBy); err != nil {
			return nil, err
		}
		years = append(years, fy)
	}
	return years, rows.Err()
}

func (r *txRepository) ArchiveYear(ctx context.Context, year int) (int, error) {
	cmd, err := r.tx.Exec(ctx, `INSERT INTO journal_archive (date, account_code, account_name, description, debit, credit, period_end_year)
SELECT e.date, l.account_code, a.name, l.description, l.debit, l.credit, $1::int
FROM journal_entry_lines l
JOIN journal_entries e ON e.id = l.entry_id
JOIN accounts a ON a.code = l.account_code
WHERE EXTRACT(YEAR FROM e.date) = $1::int
ORDER BY e.date, l.id`, year)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *txRepository) DeleteYearJournal(ctx context.Context, year int) (int, int, error) {
	lines, err := r.tx.Exec(ctx, `DELETE FROM journal_entry_lines l USING journal_entries e
WHERE l.entry_id = e.id AND EXTRACT(YEAR FROM e.date) = $1::int`, year)
	if err != nil {
		return 0, 0, err
	}
	entries, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE EXTRACT(YEAR FROM date) = $1::int`, year)
	if err != nil {
		return 0, 0, err
	}
	return int(lines.RowsAffected()), int(entries.RowsAffected()), nil
}

func (r *txRepository) ListArchive(ctx context.Context, year int) ([]ArchiveRecord, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, date, account_code, account_name, description, debit::text, credit::text, period_end_year
FROM journal_archive WHERE period_end_year=$1 ORDER BY date, id`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []ArchiveRecord
	for rows.Next() {
		var (
			rec           ArchiveRecord
			debit, credit string
		)
		if err := rows.Scan(&rec.ID, &rec.Date, &rec.AccountCode, &rec.AccountName, &rec.Description, &debit, &credit, &rec.PeriodEndYear); err != nil {
			return nil, err
		}
		if rec.Debit, rec.Credit, err = parsePair(debit, credit); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *txRepository) DeleteArchive(ctx context.Context, year int) (int, error) {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_archive WHERE period_end_year=$1`, year)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *txRepository) DeleteLinesByDescription(ctx context.Context, descriptions ...string) (int, error) {
	if len(descriptions) == 0 {
		return 0, nil
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entry_lines WHERE description = ANY($1)`, descriptions)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *txRepository) DeleteEmptyEntries(ctx context.Context, year int, reference string) (int, error) {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries e
WHERE (EXTRACT(YEAR FROM e.date) = $1::int OR e.reference = $2)
  AND NOT EXISTS (SELECT 1 FROM journal_entry_lines l WHERE l.entry_id = e.id)`, year, reference)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *txRepository) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.NewAuditLogger(r.tx).Record(ctx, log)
}

func toNumeric(v decimal.Decimal) any {
	return v.StringFixed(2)
}

func parsePair(debit, credit string) (decimal.Decimal, decimal.Decimal, error) {
	d, err := decimal.NewFromString(debit)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse debit %q: %w", debit, err)
	}
	c, err := decimal.NewFromString(credit)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse credit %q: %w", credit, err)
	}
	return d, c, nil
}
