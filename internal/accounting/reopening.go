package accounting

import (
	"context"
	"fmt"

	"github.com/Mugambi-md/Orion-sub000/internal/events"
	"github.com/Mugambi-md/Orion-sub000/internal/shared"
)

// ReverseYear restores the archived lines of year into the live journal and
// removes what CloseYear posted for year+1.
func (s *Service) ReverseYear(ctx context.Context, year int) (ReopenSummary, error) {
	if err := validateYear(year); err != nil {
		return ReopenSummary{}, err
	}
	release, err := s.lockYear(ctx, year)
	if err != nil {
		return ReopenSummary{}, err
	}
	defer release()

	summary := ReopenSummary{Year: year}
	err = s.execute(ctx, "reverse_year", func(ctx context.Context, tx TxRepository) error {
		summary = ReopenSummary{Year: year}
		if _, err := tx.LockFiscalYear(ctx, year); err != nil {
			return err
		}
		next, err := tx.LockFiscalYear(ctx, year+1)
		if err != nil {
			return err
		}
		switch next.Status {
		case FiscalYearClosed:
			return validationf("fiscal year %d is closed; reverse it first", year+1)
		case FiscalYearClosing:
			return &Error{Kind: KindConcurrency, Msg: ErrYearLocked.Msg, Err: fmt.Errorf("fiscal year %d is closing", year+1)}
		}
		records, err := tx.ListArchive(ctx, year)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return &Error{Kind: KindNotFound, Msg: ErrNothingToReverse.Msg, Err: fmt.Errorf("fiscal year %d", year)}
		}

		lines := make([]LineInput, 0, len(records))
		for _, rec := range records {
			lines = append(lines, LineInput{
				AccountCode: rec.AccountCode,
				Description: rec.Description,
				Debit:       rec.Debit,
				Credit:      rec.Credit,
			})
		}
		restoreDate := records[len(records)-1].Date
		entryID, err := tx.InsertJournalEntry(ctx, JournalEntry{Date: restoreDate, Reference: yearReversalReference(year)})
		if err != nil {
			return err
		}
		if err := tx.InsertJournalLines(ctx, entryID, lines); err != nil {
			return err
		}
		summary.EntryID = entryID
		summary.RestoredLines = len(lines)

		removed, err := tx.DeleteLinesByDescription(ctx, carryForwardDescription(year), retainedEarningsDescription(year))
		if err != nil {
			return err
		}
		summary.RemovedLines = removed
		if _, err := tx.DeleteArchive(ctx, year); err != nil {
			return err
		}
		orphans, err := tx.DeleteEmptyEntries(ctx, year+1, closingReference(year))
		if err != nil {
			return err
		}
		summary.RemovedEntries = orphans

		action := fmt.Sprintf("Reversed closing of fiscal year %d: restored %d lines on entry #%d, removed %d lines and %d entries",
			year, summary.RestoredLines, entryID, removed, orphans)
		if err := s.audit(ctx, tx, action, map[string]any{"year": year, "entry_id": entryID}); err != nil {
			return err
		}
		return tx.SetFiscalYearStatus(ctx, year, FiscalYearOpen, shared.ActorFromContext(ctx))
	})
	if err != nil {
		return ReopenSummary{}, err
	}
	ev := s.event(ctx, events.TypeYearReopened)
	ev.Year = year
	ev.EntryID = summary.EntryID
	s.committed(ctx, ev)
	return summary, nil
}
