// Package policy manages SLA policies: one active policy per priority level.
package policy

import (
	"context"

	"github.com/haloline/slawatch/internal/domain"
)

// Repository defines the interface for policy storage.
type Repository interface {
	Create(ctx context.Context, p *domain.SLAPolicy) error
	GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error)
	// GetActiveByPriority returns the single active policy for the priority,
	// or ErrNoActivePolicy.
	GetActiveByPriority(ctx context.Context, priority domain.Priority) (*domain.SLAPolicy, error)
	List(ctx context.Context) ([]*domain.SLAPolicy, error)
	Update(ctx context.Context, p *domain.SLAPolicy) error
}
