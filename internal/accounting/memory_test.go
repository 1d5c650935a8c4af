package accounting

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mugambi-md/Orion-sub000/internal/shared"
)

type memState struct {
	accounts    map[string]Account
	seqs        map[AccountType]int
	entries     map[int64]JournalEntry
	lines       []JournalLine
	archive     []ArchiveRecord
	years       map[int]FiscalYear
	audits      []shared.AuditLog
	nextEntry   int64
	nextLine    int64
	nextArchive int64
}

func (s *memState) clone() *memState {
	out := &memState{
		accounts:    make(map[string]Account, len(s.accounts)),
		seqs:        make(map[AccountType]int, len(s.seqs)),
		entries:     make(map[int64]JournalEntry, len(s.entries)),
		lines:       append([]JournalLine(nil), s.lines...),
		archive:     append([]ArchiveRecord(nil), s.archive...),
		years:       make(map[int]FiscalYear, len(s.years)),
		audits:      append([]shared.AuditLog(nil), s.audits...),
		nextEntry:   s.nextEntry,
		nextLine:    s.nextLine,
		nextArchive: s.nextArchive,
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.seqs {
		out.seqs[k] = v
	}
	for k, v := range s.entries {
		out.entries[k] = v
	}
	for k, v := range s.years {
		out.years[k] = v
	}
	return out
}

// memRepository is an in-memory RepositoryPort. Each transaction works on a
// copy of the state that replaces it only when fn succeeds.
type memRepository struct {
	mu    sync.Mutex
	state *memState

	// codeRaces makes the next n InsertAccount calls report a taken code.
	codeRaces int
	// failAudit makes RecordAudit fail once it has been called n times in a tx.
	failAudit int
	txCount   int
	// beforeTx runs ahead of every transaction, outside the state lock.
	beforeTx func(ctx context.Context) error
}

func newMemRepository() *memRepository {
	return &memRepository{state: &memState{
		accounts: map[string]Account{},
		seqs:     map[AccountType]int{},
		entries:  map[int64]JournalEntry{},
		years:    map[int]FiscalYear{},
	}}
}

func (r *memRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.beforeTx != nil {
		if err := r.beforeTx(ctx); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txCount++
	tx := &memTx{repo: r, state: r.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

func (r *memRepository) snapshot() *memState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

type memTx struct {
	repo   *memRepository
	state  *memState
	audits int
}

func (t *memTx) ListAccounts(context.Context) ([]Account, error) {
	out := make([]Account, 0, len(t.state.accounts))
	for _, a := range t.state.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (t *memTx) FindAccount(_ context.Context, nameOrCode string) (Account, error) {
	if a, ok := t.state.accounts[nameOrCode]; ok {
		return a, nil
	}
	for _, a := range t.state.accounts {
		if strings.EqualFold(a.Name, nameOrCode) {
			return a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (t *memTx) GetAccountByCode(_ context.Context, code string) (Account, error) {
	a, ok := t.state.accounts[code]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (t *memTx) AccountNameExists(_ context.Context, name string) (bool, error) {
	for _, a := range t.state.accounts {
		if strings.EqualFold(a.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) NextAccountSequence(_ context.Context, accountType AccountType) (int, error) {
	seq, ok := t.state.seqs[accountType]
	if !ok {
		for code, a := range t.state.accounts {
			if a.Type != accountType {
				continue
			}
			var n int
			for _, ch := range code[1:] {
				n = n*10 + int(ch-'0')
			}
			if n > seq {
				seq = n
			}
		}
	}
	seq++
	t.state.seqs[accountType] = seq
	return seq, nil
}

func (t *memTx) InsertAccount(_ context.Context, account Account) error {
	if t.repo.codeRaces > 0 {
		t.repo.codeRaces--
		return errCodeTaken
	}
	if _, ok := t.state.accounts[account.Code]; ok {
		return errCodeTaken
	}
	for _, a := range t.state.accounts {
		if strings.EqualFold(a.Name, account.Name) {
			return ErrDuplicateAccount
		}
	}
	t.state.accounts[account.Code] = account
	return nil
}

func (t *memTx) InsertJournalEntry(_ context.Context, entry JournalEntry) (int64, error) {
	if strings.HasPrefix(entry.Reference, "OB-") {
		for _, e := range t.state.entries {
			if e.Reference == entry.Reference {
				return 0, ErrDuplicateOpeningBalance
			}
		}
	}
	t.state.nextEntry++
	entry.ID = t.state.nextEntry
	entry.Lines = nil
	t.state.entries[entry.ID] = entry
	return entry.ID, nil
}

func (t *memTx) InsertJournalLines(_ context.Context, entryID int64, lines []LineInput) error {
	if _, ok := t.state.entries[entryID]; !ok {
		return errors.New("entry missing")
	}
	for _, line := range lines {
		if _, ok := t.state.accounts[line.AccountCode]; !ok {
			return ErrUnknownAccountCode
		}
		t.state.nextLine++
		t.state.lines = append(t.state.lines, JournalLine{
			ID:          t.state.nextLine,
			EntryID:     entryID,
			AccountCode: line.AccountCode,
			Description: line.Description,
			Debit:       line.Debit.Round(2),
			Credit:      line.Credit.Round(2),
		})
	}
	return nil
}

func (t *memTx) GetJournalWithLines(_ context.Context, entryID int64) (JournalEntry, error) {
	entry, ok := t.state.entries[entryID]
	if !ok {
		return JournalEntry{}, ErrJournalNotFound
	}
	for _, line := range t.state.lines {
		if line.EntryID == entryID {
			entry.Lines = append(entry.Lines, line)
		}
	}
	return entry, nil
}

func (t *memTx) ListJournalEntries(_ context.Context, filter EntryFilter) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range t.state.entries {
		if inWindow(e.Date, filter.From, filter.To) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (t *memTx) ReferenceExists(_ context.Context, reference string) (bool, error) {
	for _, e := range t.state.entries {
		if e.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) DeleteJournalLines(_ context.Context, entryID int64) (int, error) {
	return t.removeLines(func(l JournalLine) bool { return l.EntryID == entryID }), nil
}

func (t *memTx) DeleteJournalEntry(_ context.Context, entryID int64) error {
	if _, ok := t.state.entries[entryID]; !ok {
		return ErrJournalNotFound
	}
	delete(t.state.entries, entryID)
	t.removeLines(func(l JournalLine) bool { return l.EntryID == entryID })
	return nil
}

func (t *memTx) AccountBalances(_ context.Context, filter ReportFilter) ([]AccountBalance, error) {
	accounts, _ := t.ListAccounts(context.Background())
	out := make([]AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		b := AccountBalance{Account: a, Debit: decimal.Zero, Credit: decimal.Zero}
		for _, line := range t.state.lines {
			if line.AccountCode != a.Code || !inWindow(t.state.entries[line.EntryID].Date, filter.From, filter.To) {
				continue
			}
			b.Debit = b.Debit.Add(line.Debit)
			b.Credit = b.Credit.Add(line.Credit)
		}
		out = append(out, b)
	}
	return out, nil
}

func (t *memTx) UnbalancedEntries(context.Context) ([]EntryImbalance, error) {
	var out []EntryImbalance
	for id := range t.state.entries {
		entry, _ := t.GetJournalWithLines(context.Background(), id)
		if !entry.TotalDebit().Equal(entry.TotalCredit()) {
			out = append(out, EntryImbalance{
				EntryID:   id,
				Reference: entry.Reference,
				Date:      entry.Date,
				Debit:     entry.TotalDebit(),
				Credit:    entry.TotalCredit(),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out, nil
}

func (t *memTx) LockFiscalYear(_ context.Context, year int) (FiscalYear, error) {
	return t.fiscalYear(year), nil
}

func (t *memTx) ShareFiscalYear(_ context.Context, year int) (FiscalYear, error) {
	return t.fiscalYear(year), nil
}

func (t *memTx) fiscalYear(year int) FiscalYear {
	fy, ok := t.state.years[year]
	if !ok {
		fy = FiscalYear{Year: year, Status: FiscalYearOpen}
		t.state.years[year] = fy
	}
	return fy
}

func (t *memTx) SetFiscalYearStatus(_ context.Context, year int, status FiscalYearStatus, actor string) error {
	fy, ok := t.state.years[year]
	if !ok {
		return notFoundf("fiscal year %d not found", year)
	}
	fy.Status = status
	fy.ClosedAt, fy.ClosedBy = nil, ""
	if status == FiscalYearClosed {
		now := time.Now().UTC()
		fy.ClosedAt = &now
		fy.ClosedBy = actor
	}
	t.state.years[year] = fy
	return nil
}

func (t *memTx) ListFiscalYears(context.Context) ([]FiscalYear, error) {
	out := make([]FiscalYear, 0, len(t.state.years))
	for _, fy := range t.state.years {
		out = append(out, fy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

func (t *memTx) ArchiveYear(_ context.Context, year int) (int, error) {
	var batch []ArchiveRecord
	for _, line := range t.state.lines {
		entry := t.state.entries[line.EntryID]
		if entry.Date.Year() != year {
			continue
		}
		batch = append(batch, ArchiveRecord{
			Date:          entry.Date,
			AccountCode:   line.AccountCode,
			AccountName:   t.state.accounts[line.AccountCode].Name,
			Description:   line.Description,
			Debit:         line.Debit,
			Credit:        line.Credit,
			PeriodEndYear: year,
		})
	}
	sort.SliceStable(batch, func(i, j int) bool { return batch[i].Date.Before(batch[j].Date) })
	for _, rec := range batch {
		t.state.nextArchive++
		rec.ID = t.state.nextArchive
		t.state.archive = append(t.state.archive, rec)
	}
	return len(batch), nil
}

func (t *memTx) DeleteYearJournal(_ context.Context, year int) (int, int, error) {
	lines := t.removeLines(func(l JournalLine) bool { return t.state.entries[l.EntryID].Date.Year() == year })
	entries := 0
	for id, e := range t.state.entries {
		if e.Date.Year() == year {
			delete(t.state.entries, id)
			entries++
		}
	}
	return lines, entries, nil
}

func (t *memTx) ListArchive(_ context.Context, year int) ([]ArchiveRecord, error) {
	var out []ArchiveRecord
	for _, rec := range t.state.archive {
		if rec.PeriodEndYear == year {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (t *memTx) DeleteArchive(_ context.Context, year int) (int, error) {
	kept := t.state.archive[:0:0]
	removed := 0
	for _, rec := range t.state.archive {
		if rec.PeriodEndYear == year {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	t.state.archive = kept
	return removed, nil
}

func (t *memTx) DeleteLinesByDescription(_ context.Context, descriptions ...string) (int, error) {
	set := make(map[string]struct{}, len(descriptions))
	for _, d := range descriptions {
		set[d] = struct{}{}
	}
	return t.removeLines(func(l JournalLine) bool {
		_, ok := set[l.Description]
		return ok
	}), nil
}

func (t *memTx) DeleteEmptyEntries(_ context.Context, year int, reference string) (int, error) {
	used := make(map[int64]bool)
	for _, line := range t.state.lines {
		used[line.EntryID] = true
	}
	removed := 0
	for id, e := range t.state.entries {
		if used[id] || (e.Date.Year() != year && e.Reference != reference) {
			continue
		}
		delete(t.state.entries, id)
		removed++
	}
	return removed, nil
}

func (t *memTx) RecordAudit(_ context.Context, log shared.AuditLog) error {
	t.audits++
	if t.repo.failAudit > 0 && t.audits >= t.repo.failAudit {
		return errors.New("audit store unavailable")
	}
	t.state.audits = append(t.state.audits, log)
	return nil
}

func (t *memTx) removeLines(match func(JournalLine) bool) int {
	kept := t.state.lines[:0:0]
	removed := 0
	for _, line := range t.state.lines {
		if match(line) {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	t.state.lines = kept
	return removed
}

func inWindow(date time.Time, from, to *time.Time) bool {
	if from != nil && date.Before(*from) {
		return false
	}
	if to != nil && date.After(*to) {
		return false
	}
	return true
}
