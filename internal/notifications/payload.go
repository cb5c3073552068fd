package notifications

import "time"

// EscalationPayload carries the facts rendered into an escalation
// notification.
type EscalationPayload struct {
	TicketID       string    `json:"ticket_id"`
	TicketNumber   string    `json:"ticket_number"`
	Subject        string    `json:"subject"`
	Priority       string    `json:"priority"`
	BreachType     string    `json:"breach_type"`
	Deadline       time.Time `json:"deadline"`
	EscalatedAt    time.Time `json:"escalated_at"`
	MinutesOverdue int       `json:"minutes_overdue"`
}
