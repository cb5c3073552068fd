package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/haloline/slawatch/internal/domain"
)

// WorkerConfig contains worker configuration.
type WorkerConfig struct {
	BatchSize         int
	PollInterval      time.Duration
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	NumWorkers        int
}

// DefaultWorkerConfig returns default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:         100,
		PollInterval:      5 * time.Second,
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        5 * time.Minute,
		BackoffMultiplier: 2.0,
		NumWorkers:        3,
	}
}

// UserResolver resolves directory users to delivery addresses.
type UserResolver interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Worker delivers queued notifications.
type Worker struct {
	config   WorkerConfig
	repo     Repository
	users    UserResolver
	renderer *Renderer
	senders  []Sender

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorker creates a new notification worker.
func NewWorker(config WorkerConfig, repo Repository, users UserResolver, renderer *Renderer, senders ...Sender) *Worker {
	return &Worker{
		config:   config,
		repo:     repo,
		users:    users,
		renderer: renderer,
		senders:  senders,
		stopCh:   make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("starting notification worker",
		"workers", w.config.NumWorkers,
		"batch_size", w.config.BatchSize,
		"poll_interval", w.config.PollInterval,
	)

	for i := 0; i < w.config.NumWorkers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	slog.Info("notification worker stopped")
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.processBatch(ctx, workerID)
		}
	}
}

func (w *Worker) processBatch(ctx context.Context, workerID int) {
	items, err := w.repo.FetchPending(ctx, w.config.BatchSize)
	if err != nil {
		slog.Error("failed to fetch pending notifications", "worker", workerID, "error", err)
		return
	}

	if len(items) == 0 {
		return
	}

	slog.Debug("processing notifications", "worker", workerID, "count", len(items))
	recordQueueProcessed(len(items))

	for _, item := range items {
		w.processItem(ctx, item)
	}
}

func (w *Worker) processItem(ctx context.Context, item *QueueItem) {
	start := time.Now()

	user, err := w.users.GetUser(ctx, item.UserID)
	if err != nil {
		slog.Error("recipient not found in directory", "user_id", item.UserID, "error", err)
		w.markFailed(ctx, item, err)
		recordNotificationSent(string(item.Kind), "failed")
		return
	}

	subject, body, err := w.renderer.Render(item.Kind, item.Payload)
	if err != nil {
		slog.Error("failed to render", "item_id", item.ID, "error", err)
		w.markFailed(ctx, item, err)
		recordNotificationSent(string(item.Kind), "failed")
		return
	}

	notification := Notification{
		To:      user.Email,
		Subject: subject,
		Body:    body,
	}

	var sendErr error
	for _, sender := range w.senders {
		if err := sender.Send(ctx, notification); err != nil {
			slog.Error("sender failed",
				"sender", sender.Name(),
				"item_id", item.ID,
				"error", err,
			)
			sendErr = err
		}
	}

	duration := time.Since(start)

	if sendErr != nil {
		w.handleSendError(ctx, item, sendErr)
		return
	}

	if err := w.repo.MarkAsSent(ctx, item.ID); err != nil {
		slog.Error("failed to mark as sent", "item_id", item.ID, "error", err)
	}

	recordNotificationSent(string(item.Kind), "success")
	recordNotificationDuration(string(item.Kind), duration)

	slog.Debug("notification sent",
		"item_id", item.ID,
		"kind", item.Kind,
		"duration", duration,
	)
}

func (w *Worker) handleSendError(ctx context.Context, item *QueueItem, err error) {
	slog.Warn("send failed",
		"item_id", item.ID,
		"attempt", item.Attempts+1,
		"max_attempts", item.MaxAttempts,
		"error", err,
	)

	if !isRetryable(err) {
		w.markFailed(ctx, item, err)
		recordNotificationSent(string(item.Kind), "failed")
		return
	}

	if item.Attempts+1 >= item.MaxAttempts {
		w.markFailed(ctx, item, fmt.Errorf("max attempts exceeded: %w", err))
		recordNotificationSent(string(item.Kind), "failed")
		return
	}

	nextAttempt := w.calculateNextAttempt(item.Attempts + 1)
	if markErr := w.repo.MarkForRetry(ctx, item.ID, err, nextAttempt); markErr != nil {
		slog.Error("failed to mark for retry", "item_id", item.ID, "error", markErr)
	}
	recordNotificationSent(string(item.Kind), "retry")

	slog.Info("notification scheduled for retry",
		"item_id", item.ID,
		"next_attempt", nextAttempt,
	)
}

func (w *Worker) markFailed(ctx context.Context, item *QueueItem, cause error) {
	if err := w.repo.MarkAsFailed(ctx, item.ID, cause); err != nil {
		slog.Error("failed to mark as failed", "item_id", item.ID, "error", err)
	}
}

func (w *Worker) calculateNextAttempt(attempt int) time.Time {
	backoff := float64(w.config.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= w.config.BackoffMultiplier
	}

	if backoff > float64(w.config.MaxBackoff) {
		backoff = float64(w.config.MaxBackoff)
	}

	return time.Now().Add(time.Duration(backoff))
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	var r *RetryableError
	if errors.As(err, &r) {
		return r.Retryable
	}

	// Default: retry unknown errors
	return true
}

// RetryableError wraps an error and marks it as retryable or not.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

// IsRetryable returns whether the error is retryable.
func (e *RetryableError) IsRetryable() bool {
	return e.Retryable
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a retryable error.
func NewRetryableError(err error) *RetryableError {
	return &RetryableError{Err: err, Retryable: true}
}

// NewNonRetryableError creates a non-retryable error.
func NewNonRetryableError(err error) *RetryableError {
	return &RetryableError{Err: err, Retryable: false}
}
