package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
)

// EventRepository persists search and summarize events consumed by the worker.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker replicas.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025103001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS search_events (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	question TEXT,
	tier TEXT,
	fallback BOOLEAN NOT NULL DEFAULT FALSE,
	result_count INTEGER NOT NULL DEFAULT 0,
	payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_events_occurred_at ON search_events(occurred_at DESC);
CREATE INDEX IF NOT EXISTS idx_search_events_kind ON search_events(kind);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Record inserts the event. Redelivered events with a known id are ignored.
func (r *EventRepository) Record(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO search_events (id, kind, occurred_at, question, tier, fallback, result_count, payload)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO NOTHING
`,
		event.ID, string(event.Kind), event.Timestamp, event.Question, string(event.Tier),
		event.Fallback, event.ResultCount, payload,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// CountByTier returns how many search events each tier produced.
func (r *EventRepository) CountByTier(ctx context.Context) (map[domain.Tier]int, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT tier, COUNT(*)
FROM search_events
WHERE kind = $1
GROUP BY tier
`, string(domain.EventSearch))
	if err != nil {
		return nil, fmt.Errorf("query tier counts: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Tier]int)
	for rows.Next() {
		var tier string
		var count int
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, fmt.Errorf("scan tier count: %w", err)
		}
		out[domain.Tier(tier)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tier counts: %w", err)
	}
	return out, nil
}
