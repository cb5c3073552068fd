package domain

import "time"

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// IsValid reports whether the status is a known state.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusNew, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// IsOpen reports whether the ticket still counts as open for SLA evaluation.
func (s TicketStatus) IsOpen() bool {
	return s == TicketStatusNew || s == TicketStatusInProgress
}

// Ticket carries the SLA-relevant state of a support ticket. Deadlines are
// stamped once at creation from the policy active at that moment and are
// never recomputed, even if the policy is edited afterwards.
type Ticket struct {
	ID       string       `json:"id"`
	Number   string       `json:"number"`
	Subject  string       `json:"subject"`
	Priority Priority     `json:"priority"`
	Status   TicketStatus `json:"status"`

	AssigneeID *string `json:"assignee_id"`

	CreatedAt       time.Time  `json:"created_at"`
	FirstResponseAt *time.Time `json:"first_response_at"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	ClosedAt        *time.Time `json:"closed_at"`

	// SLAPolicyID is nil when no active policy existed for the ticket's
	// priority at creation time; such tickets are permanently untracked.
	SLAPolicyID        *string    `json:"sla_policy_id"`
	ResponseDeadline   *time.Time `json:"response_deadline"`
	ResolutionDeadline *time.Time `json:"resolution_deadline"`

	// Write-once-true flags, mutated only by the breach detector and the
	// escalation scheduler.
	ResponseBreached   bool       `json:"response_breached"`
	ResolutionBreached bool       `json:"resolution_breached"`
	Escalated          bool       `json:"escalated"`
	EscalatedAt        *time.Time `json:"escalated_at"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Tracked reports whether the ticket is bound to an SLA policy.
func (t *Ticket) Tracked() bool {
	return t.SLAPolicyID != nil
}
