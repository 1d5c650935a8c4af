package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types emitted after a ledger mutation commits.
const (
	TypeAccountCreated = "account.created"
	TypeEntryRecorded  = "entry.recorded"
	TypeEntryReversed  = "entry.reversed"
	TypeEntryDeleted   = "entry.deleted"
	TypeYearClosed     = "year.closed"
	TypeYearReopened   = "year.reopened"
)

// DefaultTopic receives every ledger event.
const DefaultTopic = "ledger.events"

// LedgerEvent is the JSON payload published for downstream consumers.
type LedgerEvent struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	EntryID     int64     `json:"entry_id,omitempty"`
	AccountCode string    `json:"account_code,omitempty"`
	Year        int       `json:"year,omitempty"`
	Actor       string    `json:"actor"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// New stamps a fresh event.
func New(eventType, actor string, at time.Time) LedgerEvent {
	return LedgerEvent{ID: uuid.New(), Type: eventType, Actor: actor, OccurredAt: at.UTC()}
}

// Publisher delivers committed ledger events.
type Publisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, LedgerEvent) error { return nil }
