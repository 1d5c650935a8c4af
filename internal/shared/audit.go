package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// AuditSectionAccounting tags every record written by the ledger.
const AuditSectionAccounting = "Accounting"

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	Actor   string
	Section string
	Action  string
	Meta    map[string]any
	At      time.Time
}

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	db Execer
}

// NewAuditLogger returns a new AuditLogger. Pass a transaction to make the
// record part of the surrounding unit of work.
func NewAuditLogger(db Execer) *AuditLogger {
	return &AuditLogger{db: db}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.db == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Actor == "" || log.Section == "" || log.Action == "" {
		return errors.New("audit log requires actor/section/action")
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	_, err = l.db.Exec(ctx, `INSERT INTO audit_logs (actor, section, action, meta, occurred_at) VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`,
		log.Actor, log.Section, log.Action, metaJSON, at)
	return err
}
