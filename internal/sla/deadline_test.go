package sla

import (
	"testing"
	"time"

	"github.com/haloline/slawatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStampDeadlines(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	policy := &domain.SLAPolicy{
		ID:                    "policy-1",
		Priority:              domain.PriorityUrgent,
		ResponseTimeMinutes:   30,
		ResolutionTimeMinutes: 240,
	}

	ticket := &domain.Ticket{
		Priority:  domain.PriorityUrgent,
		CreatedAt: created,
	}

	StampDeadlines(ticket, policy)

	require.NotNil(t, ticket.SLAPolicyID)
	assert.Equal(t, "policy-1", *ticket.SLAPolicyID)

	require.NotNil(t, ticket.ResponseDeadline)
	require.NotNil(t, ticket.ResolutionDeadline)
	assert.Equal(t, created.Add(30*time.Minute), *ticket.ResponseDeadline)
	assert.Equal(t, created.Add(4*time.Hour), *ticket.ResolutionDeadline)
	assert.True(t, ticket.Tracked())
}

func TestStampDeadlines_NoPolicy(t *testing.T) {
	ticket := &domain.Ticket{
		Priority:  domain.PriorityLow,
		CreatedAt: time.Now(),
	}

	StampDeadlines(ticket, nil)

	assert.Nil(t, ticket.SLAPolicyID)
	assert.Nil(t, ticket.ResponseDeadline)
	assert.Nil(t, ticket.ResolutionDeadline)
	assert.False(t, ticket.Tracked())
}

func TestMinutesBetween(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		end      time.Time
		expected int
	}{
		{"exact hour", start.Add(time.Hour), 60},
		{"partial minute truncated", start.Add(90 * time.Second), 1},
		{"zero", start, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, minutesBetween(start, tt.end))
		})
	}
}
