// Package postgres provides the PostgreSQL implementation of the compliance queries.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/haloline/slawatch/internal/compliance"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements compliance.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// WindowCounts aggregates tickets created in [from, to) together with the
// breach records of those tickets. Ticket-level and breach-level aggregates
// run as separate queries so a multi-breach ticket is not double counted.
func (r *Repository) WindowCounts(ctx context.Context, from, to time.Time) (*compliance.WindowCounts, error) {
	ticketQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE sla_policy_id IS NULL),
			COUNT(*) FILTER (WHERE first_response_at IS NOT NULL),
			COUNT(*) FILTER (WHERE status IN ('resolved', 'closed')),
			COUNT(*) FILTER (WHERE escalated),
			AVG(EXTRACT(EPOCH FROM (first_response_at - created_at)) / 60)
				FILTER (WHERE first_response_at IS NOT NULL),
			AVG(EXTRACT(EPOCH FROM (resolved_at - created_at)) / 60)
				FILTER (WHERE resolved_at IS NOT NULL)
		FROM tickets
		WHERE created_at >= $1 AND created_at < $2
	`
	var counts compliance.WindowCounts
	err := r.db.QueryRow(ctx, ticketQuery, from, to).Scan(
		&counts.TotalTickets,
		&counts.UntrackedTickets,
		&counts.RespondedTickets,
		&counts.CompletedTickets,
		&counts.EscalatedTickets,
		&counts.AvgResponseMinutes,
		&counts.AvgResolutionMinutes,
	)
	if err != nil {
		return nil, fmt.Errorf("window ticket counts: %w", err)
	}

	breachQuery := `
		SELECT
			COUNT(*) FILTER (WHERE b.breach_type = 'response'),
			COUNT(*) FILTER (WHERE b.breach_type = 'resolution')
		FROM sla_breaches b
		JOIN tickets t ON t.id = b.ticket_id
		WHERE t.created_at >= $1 AND t.created_at < $2
	`
	err = r.db.QueryRow(ctx, breachQuery, from, to).Scan(
		&counts.ResponseBreaches,
		&counts.ResolutionBreaches,
	)
	if err != nil {
		return nil, fmt.Errorf("window breach counts: %w", err)
	}

	return &counts, nil
}

// ListRecentBreaches returns the latest breach records joined with their
// ticket, newest first.
func (r *Repository) ListRecentBreaches(ctx context.Context, limit int) ([]compliance.BreachSummary, error) {
	query := `
		SELECT b.id, b.ticket_id, t.number, b.breach_type, b.target_minutes, b.actual_minutes, b.breached_at
		FROM sla_breaches b
		JOIN tickets t ON t.id = b.ticket_id
		ORDER BY b.breached_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent breaches: %w", err)
	}
	defer rows.Close()

	breaches := make([]compliance.BreachSummary, 0)
	for rows.Next() {
		var b compliance.BreachSummary
		err := rows.Scan(
			&b.ID,
			&b.TicketID,
			&b.TicketNumber,
			&b.BreachType,
			&b.TargetMinutes,
			&b.ActualMinutes,
			&b.BreachedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan breach: %w", err)
		}
		breaches = append(breaches, b)
	}
	return breaches, rows.Err()
}
