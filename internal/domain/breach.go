package domain

import "time"

// BreachType identifies which deadline a breach record refers to.
type BreachType string

const (
	BreachTypeResponse   BreachType = "response"
	BreachTypeResolution BreachType = "resolution"
)

// SLABreachRecord is an append-only fact: a ticket missed a deadline. At most
// one record exists per (ticket, breach type); detection is idempotent.
type SLABreachRecord struct {
	ID            string     `json:"id"`
	TicketID      string     `json:"ticket_id"`
	BreachType    BreachType `json:"breach_type"`
	TargetMinutes int        `json:"target_minutes"`
	// ActualMinutes is measured from ticket creation to the triggering event,
	// or to evaluation time for still-open tickets.
	ActualMinutes int `json:"actual_minutes"`
	// BreachedAt is when the breach was detected, not when the deadline passed.
	BreachedAt time.Time `json:"breached_at"`
}
