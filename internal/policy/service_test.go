package policy

import (
	"context"
	"testing"

	"github.com/haloline/slawatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	policies map[string]*domain.SLAPolicy
	nextID   int
}

func newMockRepository() *mockRepository {
	return &mockRepository{policies: make(map[string]*domain.SLAPolicy)}
}

func (m *mockRepository) Create(_ context.Context, p *domain.SLAPolicy) error {
	m.nextID++
	p.ID = "policy-" + p.Name
	stored := *p
	m.policies[p.ID] = &stored
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*domain.SLAPolicy, error) {
	p, ok := m.policies[id]
	if !ok {
		return nil, ErrPolicyNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockRepository) GetActiveByPriority(_ context.Context, priority domain.Priority) (*domain.SLAPolicy, error) {
	for _, p := range m.policies {
		if p.Priority == priority && p.IsActive {
			copied := *p
			return &copied, nil
		}
	}
	return nil, ErrNoActivePolicy
}

func (m *mockRepository) List(_ context.Context) ([]*domain.SLAPolicy, error) {
	list := make([]*domain.SLAPolicy, 0, len(m.policies))
	for _, p := range m.policies {
		copied := *p
		list = append(list, &copied)
	}
	return list, nil
}

func (m *mockRepository) Update(_ context.Context, p *domain.SLAPolicy) error {
	stored := *p
	m.policies[p.ID] = &stored
	return nil
}

func validInput() CreatePolicyInput {
	return CreatePolicyInput{
		Priority:              domain.PriorityHigh,
		Name:                  "high",
		ResponseTimeMinutes:   30,
		ResolutionTimeMinutes: 240,
		IsActive:              true,
	}
}

func TestCreate(t *testing.T) {
	svc := NewService(newMockRepository())

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.PriorityHigh, p.Priority)
	assert.Equal(t, 30, p.ResponseTimeMinutes)
	assert.True(t, p.IsActive)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreatePolicyInput)
		wantErr error
	}{
		{
			name:    "unknown priority",
			mutate:  func(in *CreatePolicyInput) { in.Priority = "critical" },
			wantErr: ErrInvalidPriority,
		},
		{
			name:    "zero response minutes",
			mutate:  func(in *CreatePolicyInput) { in.ResponseTimeMinutes = 0 },
			wantErr: ErrInvalidMinutes,
		},
		{
			name:    "negative resolution minutes",
			mutate:  func(in *CreatePolicyInput) { in.ResolutionTimeMinutes = -10 },
			wantErr: ErrInvalidMinutes,
		},
		{
			name: "escalation without target",
			mutate: func(in *CreatePolicyInput) {
				in.EscalationEnabled = true
				in.EscalationAfterMinutes = 15
				in.EscalationTo = nil
			},
			wantErr: ErrEscalationTarget,
		},
		{
			name: "escalation without grace period",
			mutate: func(in *CreatePolicyInput) {
				target := "user-1"
				in.EscalationEnabled = true
				in.EscalationAfterMinutes = 0
				in.EscalationTo = &target
			},
			wantErr: ErrEscalationTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMockRepository())

			input := validInput()
			tt.mutate(&input)

			_, err := svc.Create(context.Background(), input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreate_ActiveConflict(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	second := validInput()
	second.Name = "high v2"
	_, err = svc.Create(context.Background(), second)
	assert.ErrorIs(t, err, ErrActivePolicyExists)
}

func TestCreate_InactiveDuplicateAllowed(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	// Inactive policies do not compete for the per-priority slot.
	second := validInput()
	second.Name = "high draft"
	second.IsActive = false
	_, err = svc.Create(context.Background(), second)
	assert.NoError(t, err)
}

func TestResolve(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	p, err := svc.Resolve(context.Background(), domain.PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, created.ID, p.ID)

	_, err = svc.Resolve(context.Background(), domain.PriorityLow)
	assert.ErrorIs(t, err, ErrNoActivePolicy)
}

func TestUpdate_PartialFields(t *testing.T) {
	svc := NewService(newMockRepository())

	created, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	newResponse := 15
	updated, err := svc.Update(context.Background(), created.ID, UpdatePolicyInput{
		ResponseTimeMinutes: &newResponse,
	})
	require.NoError(t, err)

	assert.Equal(t, 15, updated.ResponseTimeMinutes)
	// Untouched fields keep their values.
	assert.Equal(t, 240, updated.ResolutionTimeMinutes)
	assert.Equal(t, "high", updated.Name)
}

func TestUpdate_RejectsInvalidResult(t *testing.T) {
	svc := NewService(newMockRepository())

	created, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	enabled := true
	_, err = svc.Update(context.Background(), created.ID, UpdatePolicyInput{
		EscalationEnabled: &enabled,
	})
	assert.ErrorIs(t, err, ErrEscalationTarget)
}

func TestUpdate_SelfConflictAllowed(t *testing.T) {
	svc := NewService(newMockRepository())

	created, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	// Re-activating or renaming the active policy itself is not a conflict.
	name := "high renamed"
	updated, err := svc.Update(context.Background(), created.ID, UpdatePolicyInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "high renamed", updated.Name)
}
