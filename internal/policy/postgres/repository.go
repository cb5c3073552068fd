// Package postgres provides the PostgreSQL implementation of the policy repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/haloline/slawatch/internal/domain"
	"github.com/haloline/slawatch/internal/policy"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements policy.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const policyColumns = `
	id, priority, name, response_time_minutes, resolution_time_minutes,
	escalation_enabled, escalation_after_minutes, escalation_to, is_active,
	created_at, updated_at
`

// Create inserts a new policy.
func (r *Repository) Create(ctx context.Context, p *domain.SLAPolicy) error {
	query := `
		INSERT INTO sla_policies (
			priority, name, response_time_minutes, resolution_time_minutes,
			escalation_enabled, escalation_after_minutes, escalation_to, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.Priority,
		p.Name,
		p.ResponseTimeMinutes,
		p.ResolutionTimeMinutes,
		p.EscalationEnabled,
		p.EscalationAfterMinutes,
		p.EscalationTo,
		p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if isActiveUniqueViolation(err) {
			return policy.ErrActivePolicyExists
		}
		return fmt.Errorf("create policy: %w", err)
	}
	return nil
}

// GetByID retrieves a policy by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE id = $1`

	p, err := scanPolicy(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, policy.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("get policy: %w", err)
	}
	return p, nil
}

// GetActiveByPriority retrieves the single active policy for a priority.
func (r *Repository) GetActiveByPriority(ctx context.Context, priority domain.Priority) (*domain.SLAPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE priority = $1 AND is_active = true`

	p, err := scanPolicy(r.db.QueryRow(ctx, query, priority))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, policy.ErrNoActivePolicy
		}
		return nil, fmt.Errorf("get active policy: %w", err)
	}
	return p, nil
}

// List retrieves all policies ordered by priority.
func (r *Repository) List(ctx context.Context) ([]*domain.SLAPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies ORDER BY priority, created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	policies := make([]*domain.SLAPolicy, 0)
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// Update updates an existing policy.
func (r *Repository) Update(ctx context.Context, p *domain.SLAPolicy) error {
	query := `
		UPDATE sla_policies SET
			name = $2,
			response_time_minutes = $3,
			resolution_time_minutes = $4,
			escalation_enabled = $5,
			escalation_after_minutes = $6,
			escalation_to = $7,
			is_active = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.ID,
		p.Name,
		p.ResponseTimeMinutes,
		p.ResolutionTimeMinutes,
		p.EscalationEnabled,
		p.EscalationAfterMinutes,
		p.EscalationTo,
		p.IsActive,
	).Scan(&p.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return policy.ErrPolicyNotFound
		}
		if isActiveUniqueViolation(err) {
			return policy.ErrActivePolicyExists
		}
		return fmt.Errorf("update policy: %w", err)
	}
	return nil
}

func scanPolicy(row pgx.Row) (*domain.SLAPolicy, error) {
	var p domain.SLAPolicy
	err := row.Scan(
		&p.ID,
		&p.Priority,
		&p.Name,
		&p.ResponseTimeMinutes,
		&p.ResolutionTimeMinutes,
		&p.EscalationEnabled,
		&p.EscalationAfterMinutes,
		&p.EscalationTo,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// isActiveUniqueViolation detects the partial unique index backing the
// one-active-policy-per-priority invariant.
func isActiveUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "sla_policies_active_priority_idx"
}
