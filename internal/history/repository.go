// Package history keeps an activity trail of terminal batch and upload
// outcomes in PostgreSQL. The browsing engine works without it; the
// repository is an optional recorder.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Kind distinguishes what produced a record.
type Kind string

const (
	KindBatch  Kind = "batch"
	KindUpload Kind = "upload"
)

// Record is one terminal operation outcome.
type Record struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	Kind       Kind      `json:"kind"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	ItemCount  int       `json:"item_count"`
	TotalBytes int64     `json:"total_bytes"`
	Target     string    `json:"target,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository provides access to operation history storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a history repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts an outcome row.
func (r *Repository) Record(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	query := `
INSERT INTO operation_history (id, session_id, kind, action, status, item_count, total_bytes, target, message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.SessionID,
		string(rec.Kind),
		rec.Action,
		rec.Status,
		rec.ItemCount,
		rec.TotalBytes,
		rec.Target,
		rec.Message,
	)
	if err != nil {
		return fmt.Errorf("record operation: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	query := `
SELECT id, session_id, kind, action, status, item_count, total_bytes, target, message, created_at
FROM operation_history
ORDER BY created_at DESC
LIMIT $1;`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var kind string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &kind, &rec.Action, &rec.Status, &rec.ItemCount, &rec.TotalBytes, &rec.Target, &rec.Message, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		rec.Kind = Kind(kind)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}
