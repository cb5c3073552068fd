package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/haloline/slawatch/internal/domain"
)

// Service provides user directory operations.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns all directory users.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

// CreateInput contains data for registering a directory user.
type CreateInput struct {
	DisplayName string
	Email       string
}

// CreateUser registers a user in the directory.
func (s *Service) CreateUser(ctx context.Context, input CreateInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	user := &domain.User{
		DisplayName: strings.TrimSpace(input.DisplayName),
		Email:       email,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
