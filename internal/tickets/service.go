package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haloline/slawatch/internal/domain"
	"github.com/haloline/slawatch/internal/pkg/ctxlog"
	"github.com/haloline/slawatch/internal/policy"
	"github.com/haloline/slawatch/internal/sla"
)

// PolicyResolver resolves SLA policies for ticket binding and evaluation.
type PolicyResolver interface {
	Resolve(ctx context.Context, priority domain.Priority) (*domain.SLAPolicy, error)
	Get(ctx context.Context, id string) (*domain.SLAPolicy, error)
}

// Service implements ticket lifecycle logic.
type Service struct {
	repo     Repository
	policies PolicyResolver
	detector *sla.Detector
	now      func() time.Time
}

// NewService creates a new ticket service.
func NewService(repo Repository, policies PolicyResolver, detector *sla.Detector) *Service {
	return &Service{
		repo:     repo,
		policies: policies,
		detector: detector,
		now:      time.Now,
	}
}

// CreateTicketInput holds data for creating a ticket.
type CreateTicketInput struct {
	Subject    string
	Priority   domain.Priority
	AssigneeID *string
}

// Create creates a ticket, binds it to the active policy for its priority
// and stamps the SLA deadlines. When no active policy exists the ticket is
// created untracked; that is a valid state, not an error.
func (s *Service) Create(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	if !input.Priority.IsValid() {
		return nil, fmt.Errorf("%w: %s", policy.ErrInvalidPriority, input.Priority)
	}

	now := s.now()
	t := &domain.Ticket{
		Number:     generateNumber(now),
		Subject:    input.Subject,
		Priority:   input.Priority,
		Status:     domain.TicketStatusNew,
		AssigneeID: input.AssigneeID,
		CreatedAt:  now,
	}

	p, err := s.policies.Resolve(ctx, input.Priority)
	if err != nil {
		if !errors.Is(err, policy.ErrNoActivePolicy) {
			return nil, fmt.Errorf("resolve policy: %w", err)
		}
		ctxlog.FromContext(ctx).Debug("no active policy, ticket untracked",
			"priority", input.Priority,
		)
		p = nil
	}

	sla.StampDeadlines(t, p)

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return t, nil
}

// Get retrieves a ticket by ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves tickets with optional filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]*domain.Ticket, error) {
	return s.repo.List(ctx, filters)
}

// RecordFirstResponse stamps the first agent response once and evaluates the
// response deadline synchronously at that moment.
func (s *Service) RecordFirstResponse(ctx context.Context, id string) (*domain.Ticket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Status.IsOpen() {
		return nil, ErrTicketNotOpen
	}

	now := s.now()
	ok, err := s.repo.SetFirstResponse(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("set first response: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyResponded
	}

	t.FirstResponseAt = &now
	if t.Status == domain.TicketStatusNew {
		t.Status = domain.TicketStatusInProgress
	}

	s.evaluate(ctx, t)
	return t, nil
}

// Resolve transitions an open ticket into resolved, stamps resolved_at once
// and evaluates the resolution deadline synchronously.
func (s *Service) Resolve(ctx context.Context, id string) (*domain.Ticket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Status.IsOpen() {
		return nil, ErrTicketNotOpen
	}

	now := s.now()
	ok, err := s.repo.SetResolved(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("set resolved: %w", err)
	}
	if !ok {
		return nil, ErrTicketNotOpen
	}

	t.ResolvedAt = &now
	t.Status = domain.TicketStatusResolved

	s.evaluate(ctx, t)
	return t, nil
}

// Reopen moves a resolved ticket back to in_progress. resolved_at is cleared
// so resolution tracking resumes against the original deadline; already
// recorded breach facts stay frozen.
func (s *Service) Reopen(ctx context.Context, id string) (*domain.Ticket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TicketStatusResolved {
		return nil, ErrTicketNotResolved
	}

	ok, err := s.repo.Reopen(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reopen ticket: %w", err)
	}
	if !ok {
		return nil, ErrTicketNotResolved
	}

	t.ResolvedAt = nil
	t.Status = domain.TicketStatusInProgress
	return t, nil
}

// Close transitions a ticket into closed.
func (s *Service) Close(ctx context.Context, id string) (*domain.Ticket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == domain.TicketStatusClosed {
		return nil, ErrTicketClosed
	}

	now := s.now()
	ok, err := s.repo.Close(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("close ticket: %w", err)
	}
	if !ok {
		return nil, ErrTicketClosed
	}

	t.ClosedAt = &now
	t.Status = domain.TicketStatusClosed
	return t, nil
}

// evaluate runs the breach detector on the lifecycle path. Detection
// failures are logged and left to the periodic scan; the lifecycle write has
// already committed and must not be rolled back by evaluation trouble.
func (s *Service) evaluate(ctx context.Context, t *domain.Ticket) {
	if !t.Tracked() {
		return
	}

	p, err := s.policies.Get(ctx, *t.SLAPolicyID)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("load policy for evaluation failed",
			"ticket_id", t.ID,
			"policy_id", *t.SLAPolicyID,
			"error", err,
		)
		return
	}

	if _, err := s.detector.Evaluate(ctx, t, p); err != nil {
		ctxlog.FromContext(ctx).Warn("breach evaluation failed, scan will retry",
			"ticket_id", t.ID,
			"error", err,
		)
	}
}

// generateNumber produces a human-readable ticket number.
func generateNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("TKT-%s-%s", now.Format("20060102"), suffix)
}
