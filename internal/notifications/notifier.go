package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Notifier enqueues notifications for asynchronous delivery. Enqueue is the
// only thing callers wait for; delivery happens in the worker.
type Notifier struct {
	repo        Repository
	maxAttempts int
	now         func() time.Time
}

// NewNotifier creates a new notifier.
func NewNotifier(repo Repository, maxAttempts int) *Notifier {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Notifier{repo: repo, maxAttempts: maxAttempts, now: time.Now}
}

// Notify queues a notification addressed to a directory user. Callers treat
// failures as log-and-continue; a lost notification never invalidates the
// state change that produced it.
func (n *Notifier) Notify(ctx context.Context, userID string, kind Kind, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	item := &QueueItem{
		UserID:        userID,
		Kind:          kind,
		Payload:       raw,
		Status:        QueueStatusPending,
		MaxAttempts:   n.maxAttempts,
		NextAttemptAt: n.now(),
	}

	if err := n.repo.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}
