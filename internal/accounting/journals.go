package accounting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mugambi-md/Orion-sub000/internal/events"
)

// RecordEntry validates and persists a balanced journal entry with one audit
// record per line.
func (s *Service) RecordEntry(ctx context.Context, in EntryInput) (int64, error) {
	in.Reference = strings.TrimSpace(in.Reference)
	in.Lines = normaliseLines(in.Lines)
	if err := in.Validate(); err != nil {
		return 0, err
	}
	var entryID int64
	err := s.execute(ctx, "record_entry", func(ctx context.Context, tx TxRepository) error {
		id, err := s.postEntry(ctx, tx, JournalEntry{Date: in.Date, Reference: in.Reference}, in.Lines)
		entryID = id
		return err
	})
	if err != nil {
		return 0, err
	}
	ev := s.event(ctx, events.TypeEntryRecorded)
	ev.EntryID = entryID
	s.committed(ctx, ev)
	return entryID, nil
}

// RecordOpeningBalance posts the starting position of the fiscal year of
// in.Date (today when zero). A year accepts one opening balance only.
func (s *Service) RecordOpeningBalance(ctx context.Context, in OpeningBalanceInput) (int64, error) {
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	in.Lines = normaliseLines(in.Lines)
	if err := validateLines(in.Lines); err != nil {
		return 0, err
	}
	year := in.Date.Year()
	reference := openingBalanceReference(year)
	var entryID int64
	err := s.execute(ctx, "record_opening_balance", func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.ReferenceExists(ctx, reference)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateOpeningBalance
		}
		entryID, err = s.postEntry(ctx, tx, JournalEntry{Date: in.Date, Reference: reference}, in.Lines)
		return err
	})
	if err != nil {
		return 0, err
	}
	ev := s.event(ctx, events.TypeEntryRecorded)
	ev.EntryID = entryID
	ev.Year = year
	s.committed(ctx, ev)
	return entryID, nil
}

// GetEntry loads an entry with its lines.
func (s *Service) GetEntry(ctx context.Context, entryID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.execute(ctx, "get_entry", func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = tx.GetJournalWithLines(ctx, entryID)
		return err
	})
	return entry, err
}

// ListEntries returns entry headers, newest first.
func (s *Service) ListEntries(ctx context.Context, filter EntryFilter) ([]JournalEntry, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, validationf("from date after to date")
	}
	var entries []JournalEntry
	err := s.execute(ctx, "list_entries", func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = tx.ListJournalEntries(ctx, filter)
		return err
	})
	return entries, err
}

// ReverseEntry posts a new entry, dated today, that swaps debit and credit on
// every line of the original.
func (s *Service) ReverseEntry(ctx context.Context, entryID int64) (int64, error) {
	var reversalID int64
	err := s.execute(ctx, "reverse_entry", func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetJournalWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if len(original.Lines) == 0 {
			return &Error{Kind: KindValidation, Msg: ErrNoLines.Msg, Err: fmt.Errorf("entry #%d", entryID)}
		}
		header := JournalEntry{Date: s.now(), Reference: reversalReference(entryID)}
		reversalID, err = s.postEntry(ctx, tx, header, reverseLines(original))
		return err
	})
	if err != nil {
		return 0, err
	}
	ev := s.event(ctx, events.TypeEntryReversed)
	ev.EntryID = reversalID
	s.committed(ctx, ev)
	return reversalID, nil
}

// DeleteEntry removes an entry and its lines. When the service requires
// reversal before deletion, only entries with a posted reversal can go.
func (s *Service) DeleteEntry(ctx context.Context, entryID int64) error {
	err := s.execute(ctx, "delete_entry", func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetJournalWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if s.cfg.RequireReversalBeforeDelete {
			reversed, err := tx.ReferenceExists(ctx, reversalReference(entryID))
			if err != nil {
				return err
			}
			if !reversed {
				return ErrReversalRequired
			}
		}
		if _, err := tx.DeleteJournalLines(ctx, entryID); err != nil {
			return err
		}
		if err := tx.DeleteJournalEntry(ctx, entryID); err != nil {
			return err
		}
		for _, line := range entry.Lines {
			action := fmt.Sprintf("Deleted line %s debit %s credit %s from entry #%d (%s)",
				line.AccountCode, line.Debit.StringFixed(2), line.Credit.StringFixed(2), entryID, entry.Reference)
			if err := s.audit(ctx, tx, action, map[string]any{"entry_id": entryID, "account_code": line.AccountCode}); err != nil {
				return err
			}
		}
		if len(entry.Lines) == 0 {
			return s.audit(ctx, tx, fmt.Sprintf("Deleted empty entry #%d (%s)", entryID, entry.Reference),
				map[string]any{"entry_id": entryID})
		}
		return nil
	})
	if err != nil {
		return err
	}
	ev := s.event(ctx, events.TypeEntryDeleted)
	ev.EntryID = entryID
	s.committed(ctx, ev)
	return nil
}

// postEntry resolves every account, refuses years that are not open, then writes the
// header, its lines and one audit record per line.
func (s *Service) postEntry(ctx context.Context, tx TxRepository, header JournalEntry, lines []LineInput) (int64, error) {
	fy, err := tx.ShareFiscalYear(ctx, header.Date.Year())
	if err != nil {
		return 0, err
	}
	if fy.Status != FiscalYearOpen {
		return 0, &Error{Kind: KindValidation, Msg: ErrClosedYearPosting.Msg, Err: fmt.Errorf("fiscal year %d", fy.Year)}
	}
	names := make(map[string]string, len(lines))
	for _, line := range lines {
		if _, ok := names[line.AccountCode]; ok {
			continue
		}
		account, err := tx.GetAccountByCode(ctx, line.AccountCode)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return 0, &Error{Kind: KindValidation, Msg: ErrUnknownAccountCode.Msg, Err: fmt.Errorf("account %q", line.AccountCode)}
			}
			return 0, err
		}
		names[line.AccountCode] = account.Name
	}
	entryID, err := tx.InsertJournalEntry(ctx, header)
	if err != nil {
		return 0, err
	}
	if err := tx.InsertJournalLines(ctx, entryID, lines); err != nil {
		return 0, err
	}
	for _, line := range lines {
		action := fmt.Sprintf("Posted %s %s debit %s credit %s on entry #%d (%s)",
			line.AccountCode, names[line.AccountCode], line.Debit.StringFixed(2), line.Credit.StringFixed(2), entryID, header.Reference)
		if err := s.audit(ctx, tx, action, map[string]any{"entry_id": entryID, "account_code": line.AccountCode}); err != nil {
			return 0, err
		}
	}
	return entryID, nil
}

func reverseLines(entry JournalEntry) []LineInput {
	out := make([]LineInput, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		description := reversalReference(entry.ID)
		if line.Description != "" {
			description = description + ": " + line.Description
		}
		out = append(out, LineInput{
			AccountCode: line.AccountCode,
			Description: description,
			Debit:       line.Credit,
			Credit:      line.Debit,
		})
	}
	return out
}

func normaliseLines(lines []LineInput) []LineInput {
	out := make([]LineInput, len(lines))
	for idx, line := range lines {
		line.AccountCode = strings.TrimSpace(line.AccountCode)
		line.Description = strings.TrimSpace(line.Description)
		line.Debit = line.Debit.Round(2)
		line.Credit = line.Credit.Round(2)
		out[idx] = line
	}
	return out
}

// yearBounds returns the first and last day of year.
func yearBounds(year int) (time.Time, time.Time) {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}
