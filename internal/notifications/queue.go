package notifications

import (
	"encoding/json"
	"time"
)

// Kind identifies the notification template to render.
type Kind string

// Notification kinds.
const (
	KindEscalation  Kind = "sla_escalation"
	KindBreachAlert Kind = "sla_breach"
)

// QueueStatus represents the status of a queue item.
type QueueStatus string

// Queue statuses.
const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusSent       QueueStatus = "sent"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueueItem represents a notification in the durable queue. Delivery is
// decoupled from the write that produced it: a failed send never reaches
// back into breach or escalation state.
type QueueItem struct {
	ID            string
	UserID        string
	Kind          Kind
	Payload       json.RawMessage
	Status        QueueStatus
	Attempts      int
	MaxAttempts   int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	SentAt        *time.Time
}

// QueueStats holds queue size counts by status.
type QueueStats struct {
	Pending    int
	Processing int
	Sent       int
	Failed     int
}
