package accounting

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting/reports"
	"github.com/Mugambi-md/Orion-sub000/internal/events"
	"github.com/Mugambi-md/Orion-sub000/internal/locks"
	"github.com/Mugambi-md/Orion-sub000/internal/shared"
)

var testNow = time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, cfg ServiceConfig) (*Service, *memRepository) {
	t.Helper()
	repo := newMemRepository()
	svc := NewService(repo, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.WithNow(func() time.Time { return testNow })
	return svc, repo
}

func actorCtx() context.Context {
	return shared.ContextWithActor(context.Background(), "alice")
}

func mustAccount(t *testing.T, svc *Service, name string, typ AccountType) Account {
	t.Helper()
	account, err := svc.CreateAccount(actorCtx(), CreateAccountInput{Name: name, Type: typ})
	require.NoError(t, err)
	return account
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func cashSale(date time.Time, value int64) EntryInput {
	return EntryInput{
		Reference: "INV-1",
		Date:      date,
		Lines: []LineInput{
			{AccountCode: "1001", Description: "till", Debit: amount(value)},
			{AccountCode: "4001", Description: "sale", Credit: amount(value)},
		},
	}
}

func requireRow(t *testing.T, tb reports.TrialBalance, code string, debit, credit int64) {
	t.Helper()
	row, ok := tb.Row(code)
	require.True(t, ok, "row %s missing", code)
	require.True(t, row.TotalDebit.Equal(amount(debit)), "%s debit %s", code, row.TotalDebit)
	require.True(t, row.TotalCredit.Equal(amount(credit)), "%s credit %s", code, row.TotalCredit)
}

func TestCreateAccountIssuesSequentialCodes(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})

	require.Equal(t, "1001", mustAccount(t, svc, "Cash", AccountTypeAsset).Code)
	require.Equal(t, "1002", mustAccount(t, svc, " Bank ", "asset").Code)
	require.Equal(t, "4001", mustAccount(t, svc, "Sales", AccountTypeRevenue).Code)
	require.Equal(t, RetainedEarningsCode, mustAccount(t, svc, "retained earnings", AccountTypeEquity).Code)
	require.Equal(t, "3001", mustAccount(t, svc, "Owner Capital", AccountTypeEquity).Code)

	_, err := svc.CreateAccount(actorCtx(), CreateAccountInput{Name: "cash", Type: AccountTypeExpense})
	require.ErrorIs(t, err, ErrDuplicateAccount)
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = svc.CreateAccount(actorCtx(), CreateAccountInput{Name: "Stock", Type: "INVENTORY"})
	require.ErrorIs(t, err, ErrValidation)

	state := repo.snapshot()
	require.Len(t, state.accounts, 5)
	require.Len(t, state.audits, 5)
	require.Equal(t, "alice", state.audits[0].Actor)
	require.Equal(t, shared.AuditSectionAccounting, state.audits[0].Section)
	require.Contains(t, state.audits[1].Action, "1002 Bank")
}

func TestCreateAccountRetriesLostCodeRace(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	repo.codeRaces = 2
	account, err := svc.CreateAccount(actorCtx(), CreateAccountInput{Name: "Cash", Type: AccountTypeAsset})
	require.NoError(t, err)
	require.Equal(t, "1001", account.Code)

	repo.codeRaces = maxCodeAttempts
	_, err = svc.CreateAccount(actorCtx(), CreateAccountInput{Name: "Bank", Type: AccountTypeAsset})
	require.ErrorIs(t, err, ErrCodeContention)
	require.Equal(t, KindConcurrency, KindOf(err))
}

func TestSeedChartSkipsExistingNames(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)

	created, err := svc.SeedChart(actorCtx(), []CreateAccountInput{
		{Name: "Cash", Type: AccountTypeAsset},
		{Name: "Inventory", Type: AccountTypeAsset},
		{Name: "Retained Earnings", Type: AccountTypeEquity},
	})
	require.NoError(t, err)
	require.Equal(t, 2, created)

	account, err := svc.FindByNameOrCode(actorCtx(), "inventory")
	require.NoError(t, err)
	require.Equal(t, "1002", account.Code)

	_, err = svc.SeedChart(actorCtx(), []CreateAccountInput{{Name: "", Type: AccountTypeAsset}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestFindByNameOrCode(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)

	byCode, err := svc.FindByNameOrCode(actorCtx(), "1001")
	require.NoError(t, err)
	require.Equal(t, "Cash", byCode.Name)

	_, err = svc.FindByNameOrCode(actorCtx(), "Petty Cash")
	require.ErrorIs(t, err, ErrAccountNotFound)
	require.Equal(t, KindNotFound, KindOf(err))

	_, err = svc.FindByNameOrCode(actorCtx(), "  ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestRecordEntryFeedsTrialBalance(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)

	id, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.March, 1), 500))
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	tb, err := svc.TrialBalance(context.Background(), ReportFilter{})
	require.NoError(t, err)
	requireRow(t, tb, "1001", 500, 0)
	requireRow(t, tb, "4001", 0, 500)
	require.True(t, tb.Balanced())

	entry, err := svc.GetEntry(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "INV-1", entry.Reference)
	require.Len(t, entry.Lines, 2)
	require.True(t, entry.TotalDebit().Equal(entry.TotalCredit()))

	state := repo.snapshot()
	posted := 0
	for _, log := range state.audits {
		if strings.HasPrefix(log.Action, "Posted") {
			posted++
		}
	}
	require.Equal(t, 2, posted)

	pl, err := svc.IncomeStatement(context.Background(), ReportFilter{})
	require.NoError(t, err)
	require.True(t, pl.NetIncome.Equal(amount(500)))
}

func TestRecordEntryRejectsInvalidInput(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)

	unbalanced := cashSale(day(2024, time.March, 1), 500)
	unbalanced.Lines[1].Credit = amount(400)
	_, err := svc.RecordEntry(actorCtx(), unbalanced)
	require.ErrorIs(t, err, ErrUnbalanced)

	_, err = svc.RecordEntry(actorCtx(), EntryInput{Date: day(2024, time.March, 1)})
	require.ErrorIs(t, err, ErrNoLines)

	both := cashSale(day(2024, time.March, 1), 500)
	both.Lines[0].Credit = amount(1)
	_, err = svc.RecordEntry(actorCtx(), both)
	require.ErrorIs(t, err, ErrValidation)

	negative := cashSale(day(2024, time.March, 1), 500)
	negative.Lines[0].Debit = amount(-500)
	_, err = svc.RecordEntry(actorCtx(), negative)
	require.ErrorIs(t, err, ErrValidation)

	unknown := cashSale(day(2024, time.March, 1), 500)
	unknown.Lines[1].AccountCode = "4999"
	_, err = svc.RecordEntry(actorCtx(), unknown)
	require.ErrorIs(t, err, ErrUnknownAccountCode)

	require.Empty(t, repo.snapshot().entries)
}

func TestRecordEntryRollsBackOnAuditFailure(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	before := len(repo.snapshot().audits)

	repo.failAudit = 2
	_, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.March, 1), 500))
	require.ErrorIs(t, err, ErrPersistence)

	state := repo.snapshot()
	require.Empty(t, state.entries)
	require.Empty(t, state.lines)
	require.Len(t, state.audits, before)
}

func TestDeleteEntryRestoresZeroBalances(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	id, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.March, 1), 500))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEntry(actorCtx(), id))

	tb, err := svc.TrialBalance(context.Background(), ReportFilter{})
	require.NoError(t, err)
	requireRow(t, tb, "1001", 0, 0)
	requireRow(t, tb, "4001", 0, 0)

	deleted := 0
	for _, log := range repo.snapshot().audits {
		if strings.HasPrefix(log.Action, "Deleted line") {
			deleted++
		}
	}
	require.Equal(t, 2, deleted)

	err = svc.DeleteEntry(actorCtx(), id)
	require.ErrorIs(t, err, ErrJournalNotFound)
}

func TestDeleteEntryRequiresReversalWhenConfigured(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{RequireReversalBeforeDelete: true})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	id, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.March, 1), 500))
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteEntry(actorCtx(), id), ErrReversalRequired)

	_, err = svc.ReverseEntry(actorCtx(), id)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteEntry(actorCtx(), id))
}

func TestReverseEntryNetsToZero(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	id, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.December, 1), 500))
	require.NoError(t, err)

	reversalID, err := svc.ReverseEntry(actorCtx(), id)
	require.NoError(t, err)

	reversal, err := svc.GetEntry(context.Background(), reversalID)
	require.NoError(t, err)
	require.Equal(t, "Reversal of #1", reversal.Reference)
	require.Equal(t, testNow, reversal.Date)
	require.Equal(t, "Reversal of #1: till", reversal.Lines[0].Description)
	require.True(t, reversal.Lines[0].Credit.Equal(amount(500)))

	tb, err := svc.TrialBalance(context.Background(), ReportFilter{})
	require.NoError(t, err)
	for _, row := range tb.Rows {
		require.True(t, row.Balance.IsZero(), "%s balance %s", row.Code, row.Balance)
	}

	_, err = svc.ReverseEntry(actorCtx(), 99)
	require.ErrorIs(t, err, ErrJournalNotFound)
}

func TestRecordOpeningBalanceOncePerYear(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Owner Capital", AccountTypeEquity)
	lines := []LineInput{
		{AccountCode: "1001", Debit: amount(1000)},
		{AccountCode: "3001", Credit: amount(1000)},
	}

	id, err := svc.RecordOpeningBalance(actorCtx(), OpeningBalanceInput{Lines: lines})
	require.NoError(t, err)
	entry, err := svc.GetEntry(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "OB-2025", entry.Reference)

	_, err = svc.RecordOpeningBalance(actorCtx(), OpeningBalanceInput{Date: day(2025, time.June, 1), Lines: lines})
	require.ErrorIs(t, err, ErrDuplicateOpeningBalance)

	_, err = svc.RecordOpeningBalance(actorCtx(), OpeningBalanceInput{Date: day(2024, time.January, 1), Lines: lines})
	require.NoError(t, err)
}

func TestListEntriesWindow(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	for _, d := range []time.Time{day(2024, time.January, 5), day(2024, time.February, 5), day(2024, time.March, 5)} {
		_, err := svc.RecordEntry(actorCtx(), cashSale(d, 10))
		require.NoError(t, err)
	}

	from, to := day(2024, time.February, 1), day(2024, time.March, 31)
	entries, err := svc.ListEntries(context.Background(), EntryFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, int64(3), entries[0].ID)

	_, err = svc.ListEntries(context.Background(), EntryFilter{From: &to, To: &from})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCloseYearCarriesBalancesAndRetainedEarnings(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	_, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 500))
	require.NoError(t, err)

	summary, err := svc.CloseYear(actorCtx(), 2024)
	require.NoError(t, err)
	require.Equal(t, 2, summary.ArchivedLines)
	require.Equal(t, 1, summary.CarriedAccounts)
	require.True(t, summary.RetainedEarnings.Equal(amount(500)))

	opening, err := svc.GetEntry(context.Background(), summary.OpeningEntryID)
	require.NoError(t, err)
	require.Equal(t, "Opening Balance 2025", opening.Reference)
	require.Len(t, opening.Lines, 2)
	require.Equal(t, "1001", opening.Lines[0].AccountCode)
	require.True(t, opening.Lines[0].Debit.Equal(amount(500)))
	require.Equal(t, RetainedEarningsCode, opening.Lines[1].AccountCode)
	require.True(t, opening.Lines[1].Credit.Equal(amount(500)))

	state := repo.snapshot()
	require.Len(t, state.entries, 1)
	require.Len(t, state.archive, 2)
	require.Equal(t, "Cash", state.archive[0].AccountName)
	require.Equal(t, FiscalYearClosed, state.years[2024].Status)
	require.Equal(t, "alice", state.years[2024].ClosedBy)

	bs, err := svc.BalanceSheet(context.Background(), ReportFilter{})
	require.NoError(t, err)
	require.True(t, bs.Balanced())
	require.True(t, bs.Assets.Total.Equal(amount(500)))

	_, err = svc.CloseYear(actorCtx(), 2024)
	require.ErrorIs(t, err, ErrYearClosed)

	_, err = svc.RecordEntry(actorCtx(), cashSale(day(2024, time.July, 1), 10))
	require.ErrorIs(t, err, ErrClosedYearPosting)
}

func TestCloseYearWithoutLinesFails(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	_, err := svc.CloseYear(actorCtx(), 2023)
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, repo.snapshot().accounts)

	_, err = svc.CloseYear(actorCtx(), 12)
	require.ErrorIs(t, err, ErrValidation)
}

func TestReverseYearRestoresClosedYear(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	_, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 500))
	require.NoError(t, err)
	_, err = svc.CloseYear(actorCtx(), 2024)
	require.NoError(t, err)

	summary, err := svc.ReverseYear(actorCtx(), 2024)
	require.NoError(t, err)
	require.Equal(t, 2, summary.RestoredLines)
	require.Equal(t, 2, summary.RemovedLines)
	require.Equal(t, 1, summary.RemovedEntries)

	tb, err := svc.TrialBalance(context.Background(), ReportFilter{})
	require.NoError(t, err)
	requireRow(t, tb, "1001", 500, 0)
	requireRow(t, tb, "4001", 0, 500)
	requireRow(t, tb, RetainedEarningsCode, 0, 0)

	restored, err := svc.GetEntry(context.Background(), summary.EntryID)
	require.NoError(t, err)
	require.Equal(t, day(2024, time.June, 1), restored.Date)

	state := repo.snapshot()
	require.Empty(t, state.archive)
	require.Equal(t, FiscalYearOpen, state.years[2024].Status)

	_, err = svc.ReverseYear(actorCtx(), 2024)
	require.ErrorIs(t, err, ErrNothingToReverse)

	_, err = svc.CloseYear(actorCtx(), 2024)
	require.NoError(t, err)
}

func TestReverseYearBlockedByClosedSuccessor(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	_, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 500))
	require.NoError(t, err)
	_, err = svc.CloseYear(actorCtx(), 2024)
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return day(2026, time.January, 3) })
	_, err = svc.CloseYear(actorCtx(), 2025)
	require.NoError(t, err)

	_, err = svc.ReverseYear(actorCtx(), 2024)
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, FiscalYearClosed, repo.snapshot().years[2024].Status)
}

func TestClosingLinesRetainedEarningsModes(t *testing.T) {
	balances := []AccountBalance{
		{Account: Account{Code: "1001", Type: AccountTypeAsset}, Debit: amount(400), Credit: decimal.Zero},
		{Account: Account{Code: "4001", Type: AccountTypeRevenue}, Debit: decimal.Zero, Credit: amount(300)},
		{Account: Account{Code: "4002", Type: AccountTypeRevenue}, Debit: decimal.Zero, Credit: amount(200)},
		{Account: Account{Code: "5001", Type: AccountTypeExpense}, Debit: amount(100), Credit: decimal.Zero},
	}
	credits := func(lines []LineInput) []string {
		var out []string
		for _, line := range lines[1:] {
			require.Equal(t, RetainedEarningsCode, line.AccountCode)
			out = append(out, line.Credit.Sub(line.Debit).String())
		}
		return out
	}

	cases := map[RetainedEarningsMode][]string{
		RetainedEarningsPerAccount: {"300", "200", "-100"},
		RetainedEarningsSingle:     {"400"},
		RetainedEarningsRunning:    {"300", "500", "400"},
	}
	for mode, want := range cases {
		svc := NewService(newMemRepository(), ServiceConfig{RetainedEarningsMode: mode}, nil)
		lines, carried, total := svc.closingLines(2024, RetainedEarningsCode, balances)
		require.Equal(t, 1, carried, mode)
		require.True(t, total.Equal(amount(400)), mode)
		require.Equal(t, "1001", lines[0].AccountCode)
		require.Equal(t, want, credits(lines), mode)
	}
}

func TestParseRetainedEarningsMode(t *testing.T) {
	mode, err := ParseRetainedEarningsMode("")
	require.NoError(t, err)
	require.Equal(t, RetainedEarningsPerAccount, mode)

	mode, err = ParseRetainedEarningsMode(" Running ")
	require.NoError(t, err)
	require.Equal(t, RetainedEarningsRunning, mode)

	_, err = ParseRetainedEarningsMode("average")
	require.ErrorIs(t, err, ErrValidation)
}

type heldLocker struct{}

func (heldLocker) Acquire(context.Context, int) (func(context.Context) error, error) {
	return nil, locks.ErrHeld
}

type recordingLocker struct {
	acquired, released []int
}

func (l *recordingLocker) Acquire(_ context.Context, year int) (func(context.Context) error, error) {
	l.acquired = append(l.acquired, year)
	return func(context.Context) error {
		l.released = append(l.released, year)
		return nil
	}, nil
}

func TestYearOperationsHonourLock(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	svc.WithLocker(heldLocker{})
	_, err := svc.CloseYear(actorCtx(), 2024)
	require.ErrorIs(t, err, ErrYearLocked)
	_, err = svc.ReverseYear(actorCtx(), 2024)
	require.ErrorIs(t, err, ErrYearLocked)

	locker := &recordingLocker{}
	svc.WithLocker(locker)
	_, err = svc.CloseYear(actorCtx(), 2024)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, []int{2024}, locker.acquired)
	require.Equal(t, []int{2024}, locker.released)
}

type recordingPublisher struct {
	events []events.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.LedgerEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func TestCommittedMutationsPublishEvents(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc.WithPublisher(pub)

	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	id, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 500))
	require.NoError(t, err)
	_, err = svc.CloseYear(actorCtx(), 2024)
	require.NoError(t, err)

	_, err = svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 5))
	require.Error(t, err)

	require.Len(t, pub.events, 4)
	require.Equal(t, events.TypeAccountCreated, pub.events[0].Type)
	require.Equal(t, "1001", pub.events[0].AccountCode)
	require.Equal(t, events.TypeEntryRecorded, pub.events[2].Type)
	require.Equal(t, id, pub.events[2].EntryID)
	require.Equal(t, events.TypeYearClosed, pub.events[3].Type)
	require.Equal(t, 2024, pub.events[3].Year)
	require.Equal(t, "alice", pub.events[3].Actor)
}

func TestReportsServedFromCacheUntilBumped(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, repo := newTestService(t, ServiceConfig{})
	svc.WithReportCache(reports.NewCache(client, time.Minute))
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)

	_, err := svc.TrialBalance(context.Background(), ReportFilter{})
	require.NoError(t, err)
	calls := repo.txCount
	cached, err := svc.TrialBalance(context.Background(), ReportFilter{})
	require.NoError(t, err)
	require.Equal(t, calls, repo.txCount)
	require.Len(t, cached.Rows, 2)

	_, err = svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 500))
	require.NoError(t, err)

	fresh, err := svc.TrialBalance(context.Background(), ReportFilter{})
	require.NoError(t, err)
	requireRow(t, fresh, "1001", 500, 0)

	mr.Close()
	degraded, err := svc.TrialBalance(context.Background(), ReportFilter{})
	require.NoError(t, err)
	requireRow(t, degraded, "4001", 0, 500)
}

func TestReportByName(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)

	table, err := svc.Report(context.Background(), ReportCashFlow, ReportFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, table.Columns)

	_, err = svc.Report(context.Background(), "aging", ReportFilter{})
	require.ErrorIs(t, err, ErrNotFound)

	from, to := day(2024, time.December, 31), day(2024, time.January, 1)
	_, err = svc.BalanceSheet(context.Background(), ReportFilter{From: &from, To: &to})
	require.ErrorIs(t, err, ErrValidation)
}

type countingObserver struct {
	outcomes map[string]string
}

func (o *countingObserver) ObserveOperation(op, outcome string, _ time.Duration) {
	o.outcomes[op] = outcome
}

func TestObserverSeesOutcomes(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	obs := &countingObserver{outcomes: map[string]string{}}
	svc.WithObserver(obs)

	mustAccount(t, svc, "Cash", AccountTypeAsset)
	_, err := svc.GetEntry(context.Background(), 7)
	require.Error(t, err)

	require.Equal(t, "success", obs.outcomes["create_account"])
	require.Equal(t, "not_found", obs.outcomes["get_entry"])
}

func TestUnbalancedEntriesReportsDrift(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	id, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 500))
	require.NoError(t, err)

	items, err := svc.UnbalancedEntries(context.Background())
	require.NoError(t, err)
	require.Empty(t, items)

	repo.mu.Lock()
	repo.state.lines = repo.state.lines[:1]
	repo.mu.Unlock()

	items, err = svc.UnbalancedEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, id, items[0].EntryID)
}

func TestCloseYearFreezesPostingsFirst(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	_, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 500))
	require.NoError(t, err)

	var (
		statuses []FiscalYearStatus
		late     error
		nested   bool
	)
	repo.beforeTx = func(context.Context) error {
		if nested {
			return nil
		}
		statuses = append(statuses, repo.snapshot().years[2024].Status)
		if len(statuses) == 2 {
			nested = true
			_, late = svc.RecordEntry(actorCtx(), cashSale(day(2024, time.December, 31), 70))
			nested = false
		}
		return nil
	}

	summary, err := svc.CloseYear(actorCtx(), 2024)
	require.NoError(t, err)
	require.Equal(t, []FiscalYearStatus{FiscalYearOpen, FiscalYearClosing}, statuses)
	require.ErrorIs(t, late, ErrClosedYearPosting)
	require.Equal(t, 2, summary.ArchivedLines)

	state := repo.snapshot()
	require.Len(t, state.entries, 1)
	for _, line := range state.lines {
		require.Equal(t, summary.OpeningEntryID, line.EntryID)
	}
	require.Equal(t, FiscalYearClosed, state.years[2024].Status)
}

func TestClosingYearRefusesPostingsAndResumes(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	_, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 500))
	require.NoError(t, err)

	repo.mu.Lock()
	repo.state.years[2024] = FiscalYear{Year: 2024, Status: FiscalYearClosing}
	repo.mu.Unlock()

	_, err = svc.RecordEntry(actorCtx(), cashSale(day(2024, time.July, 1), 10))
	require.ErrorIs(t, err, ErrClosedYearPosting)

	_, err = svc.ReverseYear(actorCtx(), 2023)
	require.ErrorIs(t, err, ErrYearLocked)

	summary, err := svc.CloseYear(actorCtx(), 2024)
	require.NoError(t, err)
	require.Equal(t, 2, summary.ArchivedLines)
	require.Equal(t, FiscalYearClosed, repo.snapshot().years[2024].Status)
}

func TestCloseYearRollsBackOnAuditFailure(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	_, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 500))
	require.NoError(t, err)
	before := repo.snapshot()

	// The first audit records the retained earnings account; the second is
	// the close itself, after the year has been archived.
	repo.failAudit = 2
	_, err = svc.CloseYear(actorCtx(), 2024)
	require.ErrorIs(t, err, ErrPersistence)

	after := repo.snapshot()
	require.Equal(t, before.lines, after.lines)
	require.Equal(t, before.entries, after.entries)
	require.Equal(t, before.accounts, after.accounts)
	require.Empty(t, after.archive)
	require.Len(t, after.audits, len(before.audits))
	require.Equal(t, FiscalYearOpen, after.years[2024].Status)

	repo.failAudit = 0
	_, err = svc.RecordEntry(actorCtx(), cashSale(day(2024, time.July, 1), 10))
	require.NoError(t, err)
	summary, err := svc.CloseYear(actorCtx(), 2024)
	require.NoError(t, err)
	require.Equal(t, 4, summary.ArchivedLines)
}

func TestReverseYearRollsBackOnAuditFailure(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	_, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 500))
	require.NoError(t, err)
	_, err = svc.CloseYear(actorCtx(), 2024)
	require.NoError(t, err)
	before := repo.snapshot()

	repo.failAudit = 1
	_, err = svc.ReverseYear(actorCtx(), 2024)
	require.ErrorIs(t, err, ErrPersistence)

	after := repo.snapshot()
	require.Equal(t, before.lines, after.lines)
	require.Equal(t, before.entries, after.entries)
	require.Equal(t, before.archive, after.archive)
	require.Equal(t, before.accounts, after.accounts)
	require.Equal(t, before.years, after.years)
	require.Equal(t, FiscalYearClosed, after.years[2024].Status)
}

func TestCloseYearBalancesSeveralResultAccounts(t *testing.T) {
	for _, mode := range []RetainedEarningsMode{RetainedEarningsPerAccount, RetainedEarningsSingle} {
		t.Run(string(mode), func(t *testing.T) {
			svc, _ := newTestService(t, ServiceConfig{RetainedEarningsMode: mode})
			mustAccount(t, svc, "Cash", AccountTypeAsset)
			mustAccount(t, svc, "Bank", AccountTypeAsset)
			mustAccount(t, svc, "Sales", AccountTypeRevenue)
			mustAccount(t, svc, "Services", AccountTypeRevenue)
			mustAccount(t, svc, "Rent", AccountTypeExpense)
			entries := []EntryInput{
				cashSale(day(2024, time.March, 1), 500),
				{Reference: "SRV-1", Date: day(2024, time.April, 1), Lines: []LineInput{
					{AccountCode: "1002", Description: "transfer", Debit: amount(300)},
					{AccountCode: "4002", Description: "consulting", Credit: amount(300)},
				}},
				{Reference: "RENT-1", Date: day(2024, time.May, 1), Lines: []LineInput{
					{AccountCode: "5001", Description: "rent", Debit: amount(200)},
					{AccountCode: "1001", Description: "till", Credit: amount(200)},
				}},
			}
			for _, in := range entries {
				_, err := svc.RecordEntry(actorCtx(), in)
				require.NoError(t, err)
			}

			summary, err := svc.CloseYear(actorCtx(), 2024)
			require.NoError(t, err)
			require.Equal(t, 2, summary.CarriedAccounts)
			require.True(t, summary.RetainedEarnings.Equal(amount(600)))

			bs, err := svc.BalanceSheet(context.Background(), ReportFilter{})
			require.NoError(t, err)
			require.True(t, bs.Balanced())
			require.True(t, bs.Assets.Total.Equal(amount(600)))
			require.True(t, bs.TotalLiabilitiesAndEquity.Equal(amount(600)))

			tb, err := svc.TrialBalance(context.Background(), ReportFilter{})
			require.NoError(t, err)
			requireRow(t, tb, "4001", 0, 0)
			requireRow(t, tb, "5001", 0, 0)
		})
	}
}

func TestReportBuildOutlivesCancelledCaller(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	_, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 500))
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	loadErr := make(chan error, 1)
	var once sync.Once
	repo.beforeTx = func(ctx context.Context) error {
		once.Do(func() {
			close(started)
			<-release
			loadErr <- ctx.Err()
		})
		return ctx.Err()
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderDone := make(chan error, 1)
	go func() {
		_, err := svc.TrialBalance(leaderCtx, ReportFilter{})
		leaderDone <- err
	}()
	<-started
	cancel()
	require.ErrorIs(t, <-leaderDone, context.Canceled)

	var tb reports.TrialBalance
	followerDone := make(chan error, 1)
	go func() {
		var err error
		tb, err = svc.TrialBalance(context.Background(), ReportFilter{})
		followerDone <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, <-loadErr)
	require.NoError(t, <-followerDone)
	requireRow(t, tb, "1001", 500, 0)
}

func TestRetainedEarningsNameReservedForEquity(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	_, err := svc.CreateAccount(actorCtx(), CreateAccountInput{Name: "retained earnings", Type: AccountTypeLiability})
	require.ErrorIs(t, err, ErrReservedAccountName)
	require.Equal(t, KindValidation, KindOf(err))

	_, err = svc.SeedChart(actorCtx(), []CreateAccountInput{{Name: "Retained Earnings", Type: AccountTypeLiability}})
	require.ErrorIs(t, err, ErrReservedAccountName)
	require.Empty(t, repo.snapshot().accounts)

	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	_, err = svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 500))
	require.NoError(t, err)

	repo.mu.Lock()
	repo.state.accounts["2001"] = Account{Code: "2001", Name: RetainedEarningsName, Type: AccountTypeLiability}
	repo.mu.Unlock()

	_, err = svc.CloseYear(actorCtx(), 2024)
	require.ErrorIs(t, err, ErrReservedAccountName)
	require.Equal(t, FiscalYearOpen, repo.snapshot().years[2024].Status)
}

func TestCloseYearReusesNamedEquityAccount(t *testing.T) {
	svc, repo := newTestService(t, ServiceConfig{})
	mustAccount(t, svc, "Cash", AccountTypeAsset)
	mustAccount(t, svc, "Sales", AccountTypeRevenue)
	_, err := svc.RecordEntry(actorCtx(), cashSale(day(2024, time.June, 1), 500))
	require.NoError(t, err)

	repo.mu.Lock()
	repo.state.accounts["3005"] = Account{Code: "3005", Name: RetainedEarningsName, Type: AccountTypeEquity}
	repo.mu.Unlock()

	summary, err := svc.CloseYear(actorCtx(), 2024)
	require.NoError(t, err)
	opening, err := svc.GetEntry(context.Background(), summary.OpeningEntryID)
	require.NoError(t, err)
	require.Equal(t, "3005", opening.Lines[1].AccountCode)

	_, ok := repo.snapshot().accounts[RetainedEarningsCode]
	require.False(t, ok)
}

func TestSeedChartLeavesDefinitionsUntouched(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	defs := []CreateAccountInput{{Name: "  Cash ", Type: "asset", Description: " till "}}

	created, err := svc.SeedChart(actorCtx(), defs)
	require.NoError(t, err)
	require.Equal(t, 1, created)
	require.Equal(t, CreateAccountInput{Name: "  Cash ", Type: "asset", Description: " till "}, defs[0])

	account, err := svc.FindByNameOrCode(actorCtx(), "cash")
	require.NoError(t, err)
	require.Equal(t, "Cash", account.Name)
}
