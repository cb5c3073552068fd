package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/haloline/slawatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockQueueRepo implements Repository for testing.
type mockQueueRepo struct {
	items      []*QueueItem
	sent       []string
	failed     map[string]string
	retried    map[string]time.Time
	enqueueErr error
}

func newMockQueueRepo() *mockQueueRepo {
	return &mockQueueRepo{
		failed:  make(map[string]string),
		retried: make(map[string]time.Time),
	}
}

func (m *mockQueueRepo) Enqueue(_ context.Context, item *QueueItem) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	item.ID = "queued-1"
	m.items = append(m.items, item)
	return nil
}

func (m *mockQueueRepo) FetchPending(_ context.Context, _ int) ([]*QueueItem, error) {
	return m.items, nil
}

func (m *mockQueueRepo) MarkAsSent(_ context.Context, id string) error {
	m.sent = append(m.sent, id)
	return nil
}

func (m *mockQueueRepo) MarkAsFailed(_ context.Context, id string, cause error) error {
	m.failed[id] = cause.Error()
	return nil
}

func (m *mockQueueRepo) MarkForRetry(_ context.Context, id string, _ error, nextAttemptAt time.Time) error {
	m.retried[id] = nextAttemptAt
	return nil
}

func (m *mockQueueRepo) GetQueueStats(_ context.Context) (*QueueStats, error) {
	return &QueueStats{}, nil
}

// mockUsers implements UserResolver for testing.
type mockUsers struct {
	users map[string]*domain.User
}

func (m *mockUsers) GetUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

// mockSender implements Sender for testing.
type mockSender struct {
	sent    []Notification
	sendErr error
}

func (m *mockSender) Name() string { return "mock" }

func (m *mockSender) Send(_ context.Context, n Notification) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, n)
	return nil
}

func escalationItem(t *testing.T) *QueueItem {
	t.Helper()
	payload, err := json.Marshal(EscalationPayload{
		TicketID:       "ticket-1",
		TicketNumber:   "TKT-20260301-ABCD1234",
		Subject:        "Checkout is down",
		Priority:       "high",
		BreachType:     "response",
		Deadline:       time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		EscalatedAt:    time.Date(2026, 3, 1, 10, 50, 0, 0, time.UTC),
		MinutesOverdue: 20,
	})
	require.NoError(t, err)
	return &QueueItem{
		ID:          "item-1",
		UserID:      "manager-1",
		Kind:        KindEscalation,
		Payload:     payload,
		Status:      QueueStatusProcessing,
		MaxAttempts: 3,
	}
}

func newTestWorker(repo Repository, users UserResolver, senders ...Sender) *Worker {
	renderer, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return NewWorker(DefaultWorkerConfig(), repo, users, renderer, senders...)
}

func TestProcessItem_Sent(t *testing.T) {
	repo := newMockQueueRepo()
	users := &mockUsers{users: map[string]*domain.User{
		"manager-1": {ID: "manager-1", DisplayName: "Dana", Email: "dana@example.com"},
	}}
	sender := &mockSender{}

	w := newTestWorker(repo, users, sender)
	w.processItem(context.Background(), escalationItem(t))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "dana@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Subject, "TKT-20260301-ABCD1234")
	assert.Equal(t, []string{"item-1"}, repo.sent)
	assert.Empty(t, repo.failed)
}

func TestProcessItem_UnknownRecipientFails(t *testing.T) {
	repo := newMockQueueRepo()
	users := &mockUsers{users: map[string]*domain.User{}}
	sender := &mockSender{}

	w := newTestWorker(repo, users, sender)
	w.processItem(context.Background(), escalationItem(t))

	assert.Empty(t, sender.sent)
	assert.Contains(t, repo.failed, "item-1")
}

func TestProcessItem_RetryableSendError(t *testing.T) {
	repo := newMockQueueRepo()
	users := &mockUsers{users: map[string]*domain.User{
		"manager-1": {ID: "manager-1", Email: "dana@example.com"},
	}}
	sender := &mockSender{sendErr: NewRetryableError(errors.New("smtp timeout"))}

	w := newTestWorker(repo, users, sender)
	w.processItem(context.Background(), escalationItem(t))

	assert.Empty(t, repo.sent)
	assert.Empty(t, repo.failed)
	assert.Contains(t, repo.retried, "item-1")
}

func TestProcessItem_NonRetryableSendError(t *testing.T) {
	repo := newMockQueueRepo()
	users := &mockUsers{users: map[string]*domain.User{
		"manager-1": {ID: "manager-1", Email: "dana@example.com"},
	}}
	sender := &mockSender{sendErr: NewNonRetryableError(errors.New("mailbox does not exist"))}

	w := newTestWorker(repo, users, sender)
	w.processItem(context.Background(), escalationItem(t))

	assert.Empty(t, repo.sent)
	assert.Empty(t, repo.retried)
	assert.Contains(t, repo.failed, "item-1")
}

func TestProcessItem_MaxAttemptsExceeded(t *testing.T) {
	repo := newMockQueueRepo()
	users := &mockUsers{users: map[string]*domain.User{
		"manager-1": {ID: "manager-1", Email: "dana@example.com"},
	}}
	sender := &mockSender{sendErr: NewRetryableError(errors.New("smtp timeout"))}

	item := escalationItem(t)
	item.Attempts = 2 // third attempt is the last

	w := newTestWorker(repo, users, sender)
	w.processItem(context.Background(), item)

	assert.Empty(t, repo.retried)
	assert.Contains(t, repo.failed, "item-1")
	assert.Contains(t, repo.failed["item-1"], "max attempts exceeded")
}

func TestWorker_CalculateNextAttempt(t *testing.T) {
	config := WorkerConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        5 * time.Minute,
		BackoffMultiplier: 2.0,
	}

	worker := &Worker{config: config}

	tests := []struct {
		name            string
		attempt         int
		expectedBackoff time.Duration
	}{
		{"first retry", 1, 1 * time.Second},
		{"second retry", 2, 2 * time.Second},
		{"third retry", 3, 4 * time.Second},
		{"fourth retry", 4, 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := time.Now()
			result := worker.calculateNextAttempt(tt.attempt)
			after := time.Now()

			expectedMin := before.Add(tt.expectedBackoff)
			expectedMax := after.Add(tt.expectedBackoff)

			assert.True(t, result.After(expectedMin) || result.Equal(expectedMin),
				"result %v should be >= %v", result, expectedMin)
			assert.True(t, result.Before(expectedMax) || result.Equal(expectedMax),
				"result %v should be <= %v", result, expectedMax)
		})
	}
}

func TestWorker_CalculateNextAttempt_MaxBackoff(t *testing.T) {
	config := WorkerConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}

	worker := &Worker{config: config}

	before := time.Now()
	result := worker.calculateNextAttempt(100)

	expectedMin := before.Add(config.MaxBackoff)
	assert.True(t, result.After(expectedMin) || result.Equal(expectedMin),
		"result should be at least %v after now", config.MaxBackoff)

	expectedMax := time.Now().Add(config.MaxBackoff + time.Second)
	assert.True(t, result.Before(expectedMax),
		"result should not exceed MaxBackoff")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable error",
			err:      NewRetryableError(errors.New("temporary error")),
			expected: true,
		},
		{
			name:     "non-retryable error",
			err:      NewNonRetryableError(errors.New("permanent error")),
			expected: false,
		},
		{
			name:     "generic error defaults to retryable",
			err:      errors.New("unknown error"),
			expected: true,
		},
		{
			name:     "wrapped non-retryable error",
			err:      errors.Join(errors.New("context"), NewNonRetryableError(errors.New("permanent"))),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}

func TestRetryableError(t *testing.T) {
	originalErr := errors.New("original error")

	t.Run("retryable error", func(t *testing.T) {
		err := NewRetryableError(originalErr)

		assert.Equal(t, "original error", err.Error())
		assert.True(t, err.IsRetryable())
		assert.Equal(t, originalErr, errors.Unwrap(err))
	})

	t.Run("non-retryable error", func(t *testing.T) {
		err := NewNonRetryableError(originalErr)

		assert.Equal(t, "original error", err.Error())
		assert.False(t, err.IsRetryable())
		assert.Equal(t, originalErr, errors.Unwrap(err))
	})
}

func TestNotifier_Enqueue(t *testing.T) {
	repo := newMockQueueRepo()
	notifier := NewNotifier(repo, 3)

	err := notifier.Notify(context.Background(), "manager-1", KindEscalation, EscalationPayload{
		TicketID: "ticket-1",
	})
	require.NoError(t, err)

	require.Len(t, repo.items, 1)
	item := repo.items[0]
	assert.Equal(t, "manager-1", item.UserID)
	assert.Equal(t, KindEscalation, item.Kind)
	assert.Equal(t, QueueStatusPending, item.Status)
	assert.Equal(t, 3, item.MaxAttempts)

	var payload EscalationPayload
	require.NoError(t, json.Unmarshal(item.Payload, &payload))
	assert.Equal(t, "ticket-1", payload.TicketID)
}
