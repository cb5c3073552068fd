// Package notifications provides queued, fire-and-forget notification
// delivery for the SLA engine.
package notifications

import (
	"context"
	"time"
)

// Repository defines the interface for the notification queue.
type Repository interface {
	Enqueue(ctx context.Context, item *QueueItem) error
	// FetchPending claims up to limit due items and moves them to
	// processing. Claimed rows are skipped by concurrent workers.
	FetchPending(ctx context.Context, limit int) ([]*QueueItem, error)
	MarkAsSent(ctx context.Context, id string) error
	MarkAsFailed(ctx context.Context, id string, cause error) error
	MarkForRetry(ctx context.Context, id string, cause error, nextAttemptAt time.Time) error
	GetQueueStats(ctx context.Context) (*QueueStats, error)
}

// Notification is a rendered message ready for a sender.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers rendered notifications over one transport.
type Sender interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}
