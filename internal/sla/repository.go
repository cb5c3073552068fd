package sla

import (
	"context"

	"github.com/haloline/slawatch/internal/domain"
)

// BreachStore persists breach facts.
type BreachStore interface {
	// RecordBreach inserts the breach record and flips the matching
	// *_breached ticket flag as a single atomic unit, keyed on
	// (ticket_id, breach_type). Returns false when the breach was already
	// recorded by a concurrent evaluation; the losing write is a no-op,
	// not an error.
	RecordBreach(ctx context.Context, rec *domain.SLABreachRecord) (bool, error)
}
