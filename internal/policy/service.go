package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/haloline/slawatch/internal/domain"
)

// Service implements policy business logic.
type Service struct {
	repo Repository
}

// NewService creates a new policy service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreatePolicyInput holds data for creating a policy.
type CreatePolicyInput struct {
	Priority               domain.Priority
	Name                   string
	ResponseTimeMinutes    int
	ResolutionTimeMinutes  int
	EscalationEnabled      bool
	EscalationAfterMinutes int
	EscalationTo           *string
	IsActive               bool
}

// UpdatePolicyInput holds partial updates for a policy. Nil fields are left
// unchanged.
type UpdatePolicyInput struct {
	Name                   *string
	ResponseTimeMinutes    *int
	ResolutionTimeMinutes  *int
	EscalationEnabled      *bool
	EscalationAfterMinutes *int
	EscalationTo           *string
	IsActive               *bool
}

// Resolve returns the single active policy for the given priority.
// Returns ErrNoActivePolicy when none exists; callers treat that as "no SLA
// tracking", not as a failure.
func (s *Service) Resolve(ctx context.Context, priority domain.Priority) (*domain.SLAPolicy, error) {
	if !priority.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPriority, priority)
	}
	return s.repo.GetActiveByPriority(ctx, priority)
}

// Create creates a new policy after validation. Creating an active policy for
// a priority that already has one is rejected.
func (s *Service) Create(ctx context.Context, input CreatePolicyInput) (*domain.SLAPolicy, error) {
	p := &domain.SLAPolicy{
		Priority:               input.Priority,
		Name:                   input.Name,
		ResponseTimeMinutes:    input.ResponseTimeMinutes,
		ResolutionTimeMinutes:  input.ResolutionTimeMinutes,
		EscalationEnabled:      input.EscalationEnabled,
		EscalationAfterMinutes: input.EscalationAfterMinutes,
		EscalationTo:           input.EscalationTo,
		IsActive:               input.IsActive,
	}

	if err := validate(p); err != nil {
		return nil, err
	}

	if p.IsActive {
		if err := s.ensureNoActiveConflict(ctx, p.Priority, ""); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create policy: %w", err)
	}
	return p, nil
}

// Update applies partial updates to a policy. Validation runs against the
// resulting state, so a policy can never be left misconfigured. Deactivating
// a policy does not touch tickets already bound to it.
func (s *Service) Update(ctx context.Context, id string, input UpdatePolicyInput) (*domain.SLAPolicy, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.ResponseTimeMinutes != nil {
		p.ResponseTimeMinutes = *input.ResponseTimeMinutes
	}
	if input.ResolutionTimeMinutes != nil {
		p.ResolutionTimeMinutes = *input.ResolutionTimeMinutes
	}
	if input.EscalationEnabled != nil {
		p.EscalationEnabled = *input.EscalationEnabled
	}
	if input.EscalationAfterMinutes != nil {
		p.EscalationAfterMinutes = *input.EscalationAfterMinutes
	}
	if input.EscalationTo != nil {
		p.EscalationTo = input.EscalationTo
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}

	if err := validate(p); err != nil {
		return nil, err
	}

	if p.IsActive {
		if err := s.ensureNoActiveConflict(ctx, p.Priority, p.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update policy: %w", err)
	}
	return p, nil
}

// Get retrieves a policy by ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves all policies, active and inactive.
func (s *Service) List(ctx context.Context) ([]*domain.SLAPolicy, error) {
	return s.repo.List(ctx)
}

// ensureNoActiveConflict enforces the one-active-policy-per-priority
// invariant at write time. The database backs this with a partial unique
// index; the check here produces a friendlier error.
func (s *Service) ensureNoActiveConflict(ctx context.Context, priority domain.Priority, selfID string) error {
	existing, err := s.repo.GetActiveByPriority(ctx, priority)
	if err != nil {
		if errors.Is(err, ErrNoActivePolicy) {
			return nil
		}
		return fmt.Errorf("check active policy: %w", err)
	}
	if existing.ID != selfID {
		return fmt.Errorf("%w: %s", ErrActivePolicyExists, priority)
	}
	return nil
}

// validate rejects misconfigured policies synchronously; values are never
// silently coerced.
func validate(p *domain.SLAPolicy) error {
	if !p.Priority.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidPriority, p.Priority)
	}
	if p.ResponseTimeMinutes <= 0 || p.ResolutionTimeMinutes <= 0 {
		return ErrInvalidMinutes
	}
	if p.EscalationEnabled {
		if p.EscalationAfterMinutes <= 0 || p.EscalationTo == nil || *p.EscalationTo == "" {
			return ErrEscalationTarget
		}
	}
	return nil
}
