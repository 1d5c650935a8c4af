package accounting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Mugambi-md/Orion-sub000/internal/events"
	"github.com/Mugambi-md/Orion-sub000/internal/shared"
)

const (
	minFiscalYear = 1900
	maxFiscalYear = 9998
)

// CloseYear archives every line dated in year, removes them from the live
// journal and opens year+1 with carried balances and retained earnings.
// Postings into year are frozen first; the close itself commits or rolls
// back as one unit and a failed close reopens the year.
func (s *Service) CloseYear(ctx context.Context, year int) (ClosingSummary, error) {
	if err := validateYear(year); err != nil {
		return ClosingSummary{}, err
	}
	release, err := s.lockYear(ctx, year)
	if err != nil {
		return ClosingSummary{}, err
	}
	defer release()

	frozen, err := s.freezeYear(ctx, year)
	if err != nil {
		return ClosingSummary{}, err
	}

	summary := ClosingSummary{Year: year}
	err = s.execute(ctx, "close_year", func(ctx context.Context, tx TxRepository) error {
		summary = ClosingSummary{Year: year}
		fy, err := tx.LockFiscalYear(ctx, year)
		if err != nil {
			return err
		}
		switch fy.Status {
		case FiscalYearClosing:
		case FiscalYearClosed:
			return ErrYearClosed
		default:
			return &Error{Kind: KindConcurrency, Msg: ErrSerialization.Msg, Err: fmt.Errorf("fiscal year %d reopened during close", year)}
		}
		retained, err := s.ensureRetainedEarnings(ctx, tx)
		if err != nil {
			return err
		}
		from, to := yearBounds(year)
		balances, err := tx.AccountBalances(ctx, ReportFilter{From: &from, To: &to})
		if err != nil {
			return err
		}
		archived, err := tx.ArchiveYear(ctx, year)
		if err != nil {
			return err
		}
		if archived == 0 {
			return notFoundf("fiscal year %d has no journal lines to close", year)
		}
		summary.ArchivedLines = archived
		if _, _, err := tx.DeleteYearJournal(ctx, year); err != nil {
			return err
		}

		lines, carried, retainedTotal := s.closingLines(year, retained.Code, balances)
		summary.CarriedAccounts = carried
		summary.RetainedEarnings = retainedTotal

		entryID, err := tx.InsertJournalEntry(ctx, JournalEntry{Date: s.now(), Reference: closingReference(year)})
		if err != nil {
			return err
		}
		summary.OpeningEntryID = entryID
		if len(lines) > 0 {
			if err := tx.InsertJournalLines(ctx, entryID, lines); err != nil {
				return err
			}
		}
		action := fmt.Sprintf("Closed fiscal year %d: archived %d lines, carried %d accounts, retained earnings %s on entry #%d",
			year, archived, carried, retainedTotal.StringFixed(2), entryID)
		if err := s.audit(ctx, tx, action, map[string]any{"year": year, "entry_id": entryID}); err != nil {
			return err
		}
		return tx.SetFiscalYearStatus(ctx, year, FiscalYearClosed, shared.ActorFromContext(ctx))
	})
	if err != nil {
		if frozen {
			s.thawYear(ctx, year)
		}
		return ClosingSummary{}, err
	}
	ev := s.event(ctx, events.TypeYearClosed)
	ev.Year = year
	ev.EntryID = summary.OpeningEntryID
	s.committed(ctx, ev)
	return summary, nil
}

// freezeYear marks year CLOSING in its own transaction. Postings holding the
// year row commit before the mark and later ones are refused, so the closing
// transaction starts from a snapshot that already holds every line of the
// year. It reports whether this call moved the year out of OPEN; a year left
// CLOSING by an interrupted close is picked up as is.
func (s *Service) freezeYear(ctx context.Context, year int) (bool, error) {
	var frozen bool
	err := s.execute(ctx, "freeze_year", func(ctx context.Context, tx TxRepository) error {
		frozen = false
		fy, err := tx.LockFiscalYear(ctx, year)
		if err != nil {
			return err
		}
		switch fy.Status {
		case FiscalYearClosed:
			return ErrYearClosed
		case FiscalYearClosing:
			return nil
		}
		frozen = true
		return tx.SetFiscalYearStatus(ctx, year, FiscalYearClosing, shared.ActorFromContext(ctx))
	})
	return frozen, err
}

// thawYear puts a frozen year back to OPEN after a failed close.
func (s *Service) thawYear(ctx context.Context, year int) {
	ctx = context.WithoutCancel(ctx)
	err := s.execute(ctx, "thaw_year", func(ctx context.Context, tx TxRepository) error {
		fy, err := tx.LockFiscalYear(ctx, year)
		if err != nil {
			return err
		}
		if fy.Status != FiscalYearClosing {
			return nil
		}
		return tx.SetFiscalYearStatus(ctx, year, FiscalYearOpen, shared.ActorFromContext(ctx))
	})
	if err != nil {
		s.logger.WarnContext(ctx, "fiscal year thaw failed", slog.Int("year", year), slog.Any("error", err))
	}
}

// closingLines builds the opening entry of year+1. Balance sheet accounts
// carry their net; revenue and expense accounts feed retained earnings in
// the configured mode. It returns the lines, the number of carried accounts
// and the accumulated profit (positive) or loss (negative).
func (s *Service) closingLines(year int, retainedCode string, balances []AccountBalance) ([]LineInput, int, decimal.Decimal) {
	var (
		carry    []LineInput
		retained []LineInput
		total    = decimal.Zero
	)
	carryDesc := carryForwardDescription(year)
	retainedDesc := retainedEarningsDescription(year)
	for _, b := range balances {
		switch {
		case b.Type.IsBalanceSheet():
			net := b.Net()
			if net.IsZero() {
				continue
			}
			carry = append(carry, sidedLine(b.Code, carryDesc, net))
		case b.Type == AccountTypeRevenue || b.Type == AccountTypeExpense:
			contribution := b.Credit.Sub(b.Debit)
			total = total.Add(contribution)
			switch s.cfg.RetainedEarningsMode {
			case RetainedEarningsSingle:
			case RetainedEarningsRunning:
				if !total.IsZero() {
					retained = append(retained, sidedLine(retainedCode, retainedDesc, total.Neg()))
				}
			default:
				if !contribution.IsZero() {
					retained = append(retained, sidedLine(retainedCode, retainedDesc, contribution.Neg()))
				}
			}
		}
	}
	if s.cfg.RetainedEarningsMode == RetainedEarningsSingle && !total.IsZero() {
		retained = append(retained, sidedLine(retainedCode, retainedDesc, total.Neg()))
	}
	return append(carry, retained...), len(carry), total
}

// sidedLine posts a positive net as a debit and a negative one as a credit.
func sidedLine(code, description string, net decimal.Decimal) LineInput {
	line := LineInput{AccountCode: code, Description: description, Debit: decimal.Zero, Credit: decimal.Zero}
	if net.IsPositive() {
		line.Debit = net
	} else {
		line.Credit = net.Abs()
	}
	return line
}

func validateYear(year int) error {
	if year < minFiscalYear || year > maxFiscalYear {
		return validationf("fiscal year %d out of range", year)
	}
	return nil
}
