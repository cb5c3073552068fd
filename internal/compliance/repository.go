// Package compliance is the read side of the SLA engine: rate and average
// statistics, the at-risk list, and recent breach history.
package compliance

import (
	"context"
	"time"
)

// WindowCounts holds raw aggregates for tickets created inside a window.
// Breach and milestone counts are scoped to those tickets so the rates they
// feed stay coherent.
type WindowCounts struct {
	TotalTickets       int
	UntrackedTickets   int
	RespondedTickets   int
	CompletedTickets   int
	ResponseBreaches   int
	ResolutionBreaches int
	EscalatedTickets   int

	// Averages are nil when no ticket reached the milestone.
	AvgResponseMinutes   *float64
	AvgResolutionMinutes *float64
}

// BreachSummary is a breach record joined with its ticket for reporting.
type BreachSummary struct {
	ID            string    `json:"id"`
	TicketID      string    `json:"ticket_id"`
	TicketNumber  string    `json:"ticket_number"`
	BreachType    string    `json:"breach_type"`
	TargetMinutes int       `json:"target_minutes"`
	ActualMinutes int       `json:"actual_minutes"`
	BreachedAt    time.Time `json:"breached_at"`
}

// Repository defines the read-only queries behind the aggregator.
type Repository interface {
	WindowCounts(ctx context.Context, from, to time.Time) (*WindowCounts, error)
	ListRecentBreaches(ctx context.Context, limit int) ([]BreachSummary, error)
}
