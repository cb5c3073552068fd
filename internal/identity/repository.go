// Package identity is the user directory. The SLA engine treats it as
// read-mostly: escalation targets and assignees are resolved here to a
// display name and email address.
package identity

import (
	"context"

	"github.com/haloline/slawatch/internal/domain"
)

// Repository defines the interface for user storage.
type Repository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}
