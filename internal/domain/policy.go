package domain

import "time"

// Priority is the ticket priority level a policy is bound to.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid reports whether the priority is a known level.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// SLAPolicy binds a priority level to response/resolution time budgets and
// escalation rules. At most one active policy exists per priority.
type SLAPolicy struct {
	ID                    string   `json:"id"`
	Priority              Priority `json:"priority"`
	Name                  string   `json:"name"`
	ResponseTimeMinutes   int      `json:"response_time_minutes"`
	ResolutionTimeMinutes int      `json:"resolution_time_minutes"`
	EscalationEnabled     bool     `json:"escalation_enabled"`
	// EscalationAfterMinutes is the grace period past a breach before the
	// ticket is escalated. Only meaningful when EscalationEnabled.
	EscalationAfterMinutes int       `json:"escalation_after_minutes"`
	EscalationTo           *string   `json:"escalation_to"`
	IsActive               bool      `json:"is_active"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// ResponseBudget returns the response time budget as a duration.
func (p *SLAPolicy) ResponseBudget() time.Duration {
	return time.Duration(p.ResponseTimeMinutes) * time.Minute
}

// ResolutionBudget returns the resolution time budget as a duration.
func (p *SLAPolicy) ResolutionBudget() time.Duration {
	return time.Duration(p.ResolutionTimeMinutes) * time.Minute
}

// EscalationGrace returns the escalation grace period as a duration.
func (p *SLAPolicy) EscalationGrace() time.Duration {
	return time.Duration(p.EscalationAfterMinutes) * time.Minute
}
