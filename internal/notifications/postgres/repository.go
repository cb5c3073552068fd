// Package postgres provides the PostgreSQL implementation of the notification queue.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/haloline/slawatch/internal/notifications"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements notifications.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const queueColumns = `
	id, user_id, kind, payload, status, attempts, max_attempts,
	next_attempt_at, last_error, created_at, updated_at, sent_at
`

// Enqueue inserts a notification into the queue.
func (r *Repository) Enqueue(ctx context.Context, item *notifications.QueueItem) error {
	query := `
		INSERT INTO notification_queue (user_id, kind, payload, status, max_attempts, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		item.UserID,
		item.Kind,
		item.Payload,
		item.Status,
		item.MaxAttempts,
		item.NextAttemptAt,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// FetchPending claims up to limit due items, moving them to processing in the
// same statement. SKIP LOCKED keeps concurrent workers from claiming the same
// rows.
func (r *Repository) FetchPending(ctx context.Context, limit int) ([]*notifications.QueueItem, error) {
	query := `
		UPDATE notification_queue
		SET status = 'processing', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM notification_queue
			WHERE status = 'pending' AND next_attempt_at <= NOW()
			ORDER BY next_attempt_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + queueColumns

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending notifications: %w", err)
	}
	defer rows.Close()

	items := make([]*notifications.QueueItem, 0)
	for rows.Next() {
		var item notifications.QueueItem
		err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Kind,
			&item.Payload,
			&item.Status,
			&item.Attempts,
			&item.MaxAttempts,
			&item.NextAttemptAt,
			&item.LastError,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

// MarkAsSent marks a queue item as sent.
func (r *Repository) MarkAsSent(ctx context.Context, id string) error {
	query := `
		UPDATE notification_queue
		SET status = 'sent', attempts = attempts + 1, sent_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark as sent: %w", err)
	}
	return nil
}

// MarkAsFailed marks a queue item as permanently failed.
func (r *Repository) MarkAsFailed(ctx context.Context, id string, cause error) error {
	query := `
		UPDATE notification_queue
		SET status = 'failed', attempts = attempts + 1, last_error = $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id, cause.Error()); err != nil {
		return fmt.Errorf("mark as failed: %w", err)
	}
	return nil
}

// MarkForRetry returns a queue item to pending with a future attempt time.
func (r *Repository) MarkForRetry(ctx context.Context, id string, cause error, nextAttemptAt time.Time) error {
	query := `
		UPDATE notification_queue
		SET status = 'pending', attempts = attempts + 1, last_error = $2,
		    next_attempt_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id, cause.Error(), nextAttemptAt); err != nil {
		return fmt.Errorf("mark for retry: %w", err)
	}
	return nil
}

// GetQueueStats returns queue size counts by status.
func (r *Repository) GetQueueStats(ctx context.Context) (*notifications.QueueStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM notification_queue
	`
	var stats notifications.QueueStats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.Pending,
		&stats.Processing,
		&stats.Sent,
		&stats.Failed,
	)
	if err != nil {
		return nil, fmt.Errorf("get queue stats: %w", err)
	}
	return &stats, nil
}
