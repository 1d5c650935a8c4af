package accounting

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting/reports"
)

// Report names used for cache keys and metrics.
const (
	ReportTrialBalance    = "trial_balance"
	ReportIncomeStatement = "income_statement"
	ReportBalanceSheet    = "balance_sheet"
	ReportCashFlow        = "cash_flow"
)

// TrialBalance lists every account with its debit, credit and net balance.
func (s *Service) TrialBalance(ctx context.Context, filter ReportFilter) (reports.TrialBalance, error) {
	return buildReport(ctx, s, ReportTrialBalance, filter, reports.BuildTrialBalance)
}

// IncomeStatement lists revenue and expense accounts with the net income.
func (s *Service) IncomeStatement(ctx context.Context, filter ReportFilter) (reports.IncomeStatement, error) {
	return buildReport(ctx, s, ReportIncomeStatement, filter, reports.BuildIncomeStatement)
}

// BalanceSheet buckets balance sheet accounts into assets, liabilities and equity.
func (s *Service) BalanceSheet(ctx context.Context, filter ReportFilter) (reports.BalanceSheet, error) {
	return buildReport(ctx, s, ReportBalanceSheet, filter, reports.BuildBalanceSheet)
}

// CashFlow classifies accounts into operating, financing and investing activity.
func (s *Service) CashFlow(ctx context.Context, filter ReportFilter) (reports.CashFlow, error) {
	return buildReport(ctx, s, ReportCashFlow, filter, reports.BuildCashFlow)
}

// Report renders any named report into the export table contract.
func (s *Service) Report(ctx context.Context, name string, filter ReportFilter) (reports.Table, error) {
	switch name {
	case ReportTrialBalance:
		out, err := s.TrialBalance(ctx, filter)
		return out.Table(), err
	case ReportIncomeStatement:
		out, err := s.IncomeStatement(ctx, filter)
		return out.Table(), err
	case ReportBalanceSheet:
		out, err := s.BalanceSheet(ctx, filter)
		return out.Table(), err
	case ReportCashFlow:
		out, err := s.CashFlow(ctx, filter)
		return out.Table(), err
	default:
		return reports.Table{}, notFoundf("unknown report %q", name)
	}
}

// UnbalancedEntries lists live entries whose debit and credit totals differ.
func (s *Service) UnbalancedEntries(ctx context.Context) ([]EntryImbalance, error) {
	var out []EntryImbalance
	err := s.execute(ctx, "unbalanced_entries", func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = tx.UnbalancedEntries(ctx)
		return err
	})
	return out, err
}

// ListFiscalYears returns every year that has been closed or touched by closing.
func (s *Service) ListFiscalYears(ctx context.Context) ([]FiscalYear, error) {
	var out []FiscalYear
	err := s.execute(ctx, "list_fiscal_years", func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = tx.ListFiscalYears(ctx)
		return err
	})
	return out, err
}

func (s *Service) balances(ctx context.Context, op string, filter ReportFilter) ([]reports.AccountBalance, error) {
	var rows []AccountBalance
	err := s.execute(ctx, op, func(ctx context.Context, tx TxRepository) error {
		var err error
		rows, err = tx.AccountBalances(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]reports.AccountBalance, 0, len(rows))
	for _, row := range rows {
		out = append(out, reports.AccountBalance{
			Code:   row.Code,
			Name:   row.Name,
			Type:   string(row.Type),
			Debit:  row.Debit,
			Credit: row.Credit,
		})
	}
	return out, nil
}

// buildReport deduplicates concurrent identical builds and serves cached
// copies while no mutation has bumped the cache version.
func buildReport[T any](ctx context.Context, s *Service, name string, filter ReportFilter, build func([]reports.AccountBalance) T) (T, error) {
	var zero T
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return zero, validationf("from date after to date")
	}
	load := func(ctx context.Context) (any, error) {
		balances, err := s.balances(ctx, name, filter)
		if err != nil {
			return nil, err
		}
		return build(balances), nil
	}
	// The shared build outlives any single caller; each caller still stops
	// waiting on its own context below.
	detached := context.WithoutCancel(ctx)
	resultChan := s.reports.DoChan(name+":"+filter.Key(), func() (any, error) {
		ctx := detached
		if s.cache == nil {
			return load(ctx)
		}
		var out T
		key, err := s.cache.BuildKey(ctx, name, filter.Key())
		if err == nil {
			err = s.cache.FetchJSON(ctx, key, &out, load)
			if err == nil {
				return out, nil
			}
		}
		var ledgerErr *Error
		if errors.As(err, &ledgerErr) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "report cache unavailable", slog.String("report", name), slog.Any("error", err))
		return load(ctx)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
