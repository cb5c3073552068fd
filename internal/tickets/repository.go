// Package tickets manages the SLA-relevant ticket lifecycle: creation with
// deadline stamping, first response, resolution, reopen and close.
package tickets

import (
	"context"
	"time"

	"github.com/haloline/slawatch/internal/domain"
)

// TrackedTicket pairs an open ticket with the policy snapshot it is bound to.
type TrackedTicket struct {
	Ticket domain.Ticket
	Policy domain.SLAPolicy

	// Breach detection moments joined from the breach records. The escalation
	// grace period is measured from these, not from the deadlines: a response
	// recorded late breaches long after its deadline passed.
	ResponseBreachedAt   *time.Time
	ResolutionBreachedAt *time.Time
}

// ListFilters holds filter options for listing tickets.
type ListFilters struct {
	Status   *domain.TicketStatus
	Priority *domain.Priority
	Limit    int
	Offset   int
}

// Repository defines the interface for ticket storage. Mutations of the
// breach/escalation flags are conditional updates so concurrent evaluations
// cannot double-apply them.
type Repository interface {
	Create(ctx context.Context, t *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filters ListFilters) ([]*domain.Ticket, error)

	// SetFirstResponse records the first response timestamp once. Returns
	// false when a first response was already recorded.
	SetFirstResponse(ctx context.Context, id string, at time.Time) (bool, error)
	// SetResolved transitions an open ticket into resolved and stamps
	// resolved_at. Returns false when the ticket was not open.
	SetResolved(ctx context.Context, id string, at time.Time) (bool, error)
	// Reopen moves a resolved ticket back to in_progress and clears
	// resolved_at. Breach facts are left untouched. Returns false when the
	// ticket was not resolved.
	Reopen(ctx context.Context, id string) (bool, error)
	// Close transitions a ticket into closed. Returns false when already
	// closed.
	Close(ctx context.Context, id string, at time.Time) (bool, error)

	// RecordBreach implements sla.BreachStore: breach record insert and flag
	// flip in one atomic unit, insert-if-absent on (ticket_id, breach_type).
	RecordBreach(ctx context.Context, rec *domain.SLABreachRecord) (bool, error)
	// MarkEscalated flips escalated=false->true and stamps escalated_at.
	// Returns false when the ticket was already escalated.
	MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error)

	// ListOpenTracked returns open tickets bound to a policy, joined with
	// their policy snapshot, for the periodic scan.
	ListOpenTracked(ctx context.Context, limit int) ([]*TrackedTicket, error)
}
