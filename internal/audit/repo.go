package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgRepository reads audit_logs from PostgreSQL.
type PgRepository struct {
	db Querier
}

// NewRepository constructs a PostgreSQL-backed audit repository.
func NewRepository(db Querier) *PgRepository {
	return &PgRepository{db: db}
}

const timelineWindowSQL = `
SELECT id, occurred_at, actor, section, action, meta
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at < $2)
  AND ($3::text IS NULL OR actor = $3)
  AND ($4::text IS NULL OR section = $4)
  AND ($5::text IS NULL OR action = $5)
ORDER BY occurred_at DESC, id DESC
OFFSET $6
LIMIT $7`

// Window implements Repository.
func (r *PgRepository) Window(ctx context.Context, params WindowParams) ([]TimelineRow, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	rows, err := r.db.Query(ctx, timelineWindowSQL,
		toPgTime(params.From),
		toPgTime(params.Until),
		optionalText(params.Actor),
		optionalText(params.Section),
		optionalText(params.Action),
		params.Offset,
		optionalLimit(params.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline query: %w", err)
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var (
			row  TimelineRow
			at   pgtype.Timestamptz
			meta []byte
		)
		if err := rows.Scan(&row.ID, &at, &row.Actor, &row.Section, &row.Action, &meta); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		if at.Valid {
			row.At = at.Time
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta of %d: %w", row.ID, err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

// optionalLimit maps 0 to SQL NULL, which PostgreSQL reads as LIMIT ALL.
func optionalLimit(limit int) pgtype.Int8 {
	if limit <= 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: int64(limit), Valid: true}
}
