// Package postgres provides the PostgreSQL implementation of the ticket repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haloline/slawatch/internal/domain"
	"github.com/haloline/slawatch/internal/tickets"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements tickets.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const ticketColumns = `
	id, number, subject, priority, status, assignee_id,
	created_at, first_response_at, resolved_at, closed_at,
	sla_policy_id, response_deadline, resolution_deadline,
	response_breached, resolution_breached, escalated, escalated_at,
	updated_at
`

// Create inserts a new ticket with its stamped SLA fields.
func (r *Repository) Create(ctx context.Context, t *domain.Ticket) error {
	query := `
		INSERT INTO tickets (
			number, subject, priority, status, assignee_id, created_at,
			sla_policy_id, response_deadline, resolution_deadline
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		t.Number,
		t.Subject,
		t.Priority,
		t.Status,
		t.AssigneeID,
		t.CreatedAt,
		t.SLAPolicyID,
		t.ResponseDeadline,
		t.ResolutionDeadline,
	).Scan(&t.ID, &t.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

// GetByID retrieves a ticket by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	t, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tickets.ErrTicketNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

// List retrieves tickets with optional filters, newest first.
func (r *Repository) List(ctx context.Context, filters tickets.ListFilters) ([]*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filters.Status)
		argNum++
	}

	if filters.Priority != nil {
		query += fmt.Sprintf(" AND priority = $%d", argNum)
		args = append(args, *filters.Priority)
		argNum++
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	list := make([]*domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// SetFirstResponse stamps first_response_at once; a second call is a no-op.
func (r *Repository) SetFirstResponse(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE tickets
		SET first_response_at = $2,
		    status = CASE WHEN status = 'new' THEN 'in_progress' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND first_response_at IS NULL
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("set first response: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetResolved transitions an open ticket into resolved.
func (r *Repository) SetResolved(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE tickets
		SET resolved_at = $2, status = 'resolved', updated_at = NOW()
		WHERE id = $1 AND status IN ('new', 'in_progress')
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("set resolved: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Reopen moves a resolved ticket back to in_progress. Breach flags and
// records stay as they are.
func (r *Repository) Reopen(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE tickets
		SET resolved_at = NULL, status = 'in_progress', updated_at = NOW()
		WHERE id = $1 AND status = 'resolved'
	`, id)
	if err != nil {
		return false, fmt.Errorf("reopen ticket: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Close transitions a ticket into closed.
func (r *Repository) Close(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE tickets
		SET closed_at = $2, status = 'closed', updated_at = NOW()
		WHERE id = $1 AND status != 'closed'
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("close ticket: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RecordBreach inserts the breach record and flips the matching ticket flag
// in one transaction. The unique constraint on (ticket_id, breach_type) is
// the enforcement point: a concurrent evaluation that loses the insert sees
// no rows and commits nothing.
func (r *Repository) RecordBreach(ctx context.Context, rec *domain.SLABreachRecord) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO sla_breaches (ticket_id, breach_type, target_minutes, actual_minutes, breached_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ticket_id, breach_type) DO NOTHING
		RETURNING id
	`, rec.TicketID, rec.BreachType, rec.TargetMinutes, rec.ActualMinutes, rec.BreachedAt).Scan(&rec.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race; the winning writer owns the flag flip too.
			return false, nil
		}
		return false, fmt.Errorf("insert breach record: %w", err)
	}

	flagColumn := "response_breached"
	if rec.BreachType == domain.BreachTypeResolution {
		flagColumn = "resolution_breached"
	}

	if _, err := tx.Exec(ctx,
		`UPDATE tickets SET `+flagColumn+` = true, updated_at = NOW() WHERE id = $1`,
		rec.TicketID,
	); err != nil {
		return false, fmt.Errorf("flip breach flag: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit breach: %w", err)
	}
	return true, nil
}

// MarkEscalated flips the one-shot escalation flag; the conditional update
// is the compare-and-swap that makes escalation fire exactly once.
func (r *Repository) MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE tickets
		SET escalated = true, escalated_at = $2, updated_at = NOW()
		WHERE id = $1 AND escalated = false
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark escalated: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListOpenTracked returns open SLA-bound tickets with their policy snapshot
// and the detection moments of any recorded breaches.
func (r *Repository) ListOpenTracked(ctx context.Context, limit int) ([]*tickets.TrackedTicket, error) {
	query := `
		SELECT
			t.id, t.number, t.subject, t.priority, t.status, t.assignee_id,
			t.created_at, t.first_response_at, t.resolved_at, t.closed_at,
			t.sla_policy_id, t.response_deadline, t.resolution_deadline,
			t.response_breached, t.resolution_breached, t.escalated, t.escalated_at,
			t.updated_at,
			p.id, p.priority, p.name, p.response_time_minutes, p.resolution_time_minutes,
			p.escalation_enabled, p.escalation_after_minutes, p.escalation_to, p.is_active,
			p.created_at, p.updated_at,
			rb.breached_at, sb.breached_at
		FROM tickets t
		JOIN sla_policies p ON p.id = t.sla_policy_id
		LEFT JOIN sla_breaches rb ON rb.ticket_id = t.id AND rb.breach_type = 'response'
		LEFT JOIN sla_breaches sb ON sb.ticket_id = t.id AND sb.breach_type = 'resolution'
		WHERE t.status IN ('new', 'in_progress')
		ORDER BY t.created_at
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list open tracked tickets: %w", err)
	}
	defer rows.Close()

	list := make([]*tickets.TrackedTicket, 0)
	for rows.Next() {
		var tt tickets.TrackedTicket
		t := &tt.Ticket
		p := &tt.Policy
		err := rows.Scan(
			&t.ID, &t.Number, &t.Subject, &t.Priority, &t.Status, &t.AssigneeID,
			&t.CreatedAt, &t.FirstResponseAt, &t.ResolvedAt, &t.ClosedAt,
			&t.SLAPolicyID, &t.ResponseDeadline, &t.ResolutionDeadline,
			&t.ResponseBreached, &t.ResolutionBreached, &t.Escalated, &t.EscalatedAt,
			&t.UpdatedAt,
			&p.ID, &p.Priority, &p.Name, &p.ResponseTimeMinutes, &p.ResolutionTimeMinutes,
			&p.EscalationEnabled, &p.EscalationAfterMinutes, &p.EscalationTo, &p.IsActive,
			&p.CreatedAt, &p.UpdatedAt,
			&tt.ResponseBreachedAt, &tt.ResolutionBreachedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tracked ticket: %w", err)
		}
		list = append(list, &tt)
	}
	return list, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	err := row.Scan(
		&t.ID, &t.Number, &t.Subject, &t.Priority, &t.Status, &t.AssigneeID,
		&t.CreatedAt, &t.FirstResponseAt, &t.ResolvedAt, &t.ClosedAt,
		&t.SLAPolicyID, &t.ResponseDeadline, &t.ResolutionDeadline,
		&t.ResponseBreached, &t.ResolutionBreached, &t.Escalated, &t.EscalatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
