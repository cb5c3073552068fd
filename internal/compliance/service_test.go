package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/haloline/slawatch/internal/domain"
	"github.com/haloline/slawatch/internal/tickets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepo implements Repository for testing.
type mockRepo struct {
	counts   *WindowCounts
	breaches []BreachSummary
}

func (m *mockRepo) WindowCounts(_ context.Context, _, _ time.Time) (*WindowCounts, error) {
	return m.counts, nil
}

func (m *mockRepo) ListRecentBreaches(_ context.Context, limit int) ([]BreachSummary, error) {
	if limit < len(m.breaches) {
		return m.breaches[:limit], nil
	}
	return m.breaches, nil
}

// mockOpenSource implements OpenTicketSource for testing.
type mockOpenSource struct {
	open []*tickets.TrackedTicket
}

func (m *mockOpenSource) ListOpenTracked(_ context.Context, _ int) ([]*tickets.TrackedTicket, error) {
	return m.open, nil
}

func TestStats_Rates(t *testing.T) {
	// 10 tickets reached first response, 2 breached the response deadline.
	repo := &mockRepo{counts: &WindowCounts{
		TotalTickets:       12,
		UntrackedTickets:   1,
		RespondedTickets:   10,
		CompletedTickets:   8,
		ResponseBreaches:   2,
		ResolutionBreaches: 1,
		EscalatedTickets:   1,
	}}

	svc := NewService(DefaultConfig(), repo, &mockOpenSource{})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 0.8, stats.ResponseRate, 1e-9)
	assert.InDelta(t, 0.875, stats.ResolutionRate, 1e-9)
	assert.Equal(t, 3, stats.TotalBreaches)
	assert.Equal(t, 12, stats.TotalTickets)
	assert.Equal(t, 1, stats.UntrackedTickets)
	assert.Equal(t, 1, stats.EscalatedTickets)
}

func TestStats_EmptyWindow(t *testing.T) {
	repo := &mockRepo{counts: &WindowCounts{}}

	svc := NewService(DefaultConfig(), repo, &mockOpenSource{})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	// Nothing reached a milestone, so nothing could breach.
	assert.Equal(t, 1.0, stats.ResponseRate)
	assert.Equal(t, 1.0, stats.ResolutionRate)
	assert.Nil(t, stats.AvgResponseMinutes)
	assert.Nil(t, stats.AvgResolutionMinutes)
}

func TestAtRisk_SortedByMinutesLeft(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := created.Add(5 * time.Minute)

	makeOpen := func(id string, responseBudget time.Duration) *tickets.TrackedTicket {
		policyID := "policy-1"
		response := created.Add(responseBudget)
		resolution := created.Add(8 * time.Hour)
		return &tickets.TrackedTicket{
			Ticket: domain.Ticket{
				ID:                 id,
				Number:             "TKT-" + id,
				Priority:           domain.PriorityHigh,
				Status:             domain.TicketStatusNew,
				CreatedAt:          created,
				SLAPolicyID:        &policyID,
				ResponseDeadline:   &response,
				ResolutionDeadline: &resolution,
			},
		}
	}

	// "outside" is beyond the risk window and "passed" already missed its
	// deadline; neither should appear.
	open := &mockOpenSource{open: []*tickets.TrackedTicket{
		makeOpen("far", 25*time.Minute),
		makeOpen("near", 15*time.Minute),
		makeOpen("outside", 10*time.Hour),
		makeOpen("passed", 2*time.Minute),
		makeOpen("closest", 10*time.Minute),
	}}

	config := DefaultConfig()
	config.RiskWindow = 30 * time.Minute

	svc := NewService(config, &mockRepo{counts: &WindowCounts{}}, open)
	svc.now = func() time.Time { return now }

	atRisk, err := svc.AtRisk(context.Background())
	require.NoError(t, err)

	require.Len(t, atRisk, 3)
	assert.Equal(t, "closest", atRisk[0].TicketID)
	assert.Equal(t, "near", atRisk[1].TicketID)
	assert.Equal(t, "far", atRisk[2].TicketID)
	assert.Equal(t, 5, atRisk[0].MinutesLeft)
	assert.Equal(t, 10, atRisk[1].MinutesLeft)
	assert.Equal(t, 20, atRisk[2].MinutesLeft)
}

func TestRecentBreaches_Limit(t *testing.T) {
	breaches := make([]BreachSummary, 0, 30)
	for i := 0; i < 30; i++ {
		breaches = append(breaches, BreachSummary{ID: "breach"})
	}
	repo := &mockRepo{counts: &WindowCounts{}, breaches: breaches}

	config := DefaultConfig()
	config.RecentBreachesLimit = 20

	svc := NewService(config, repo, &mockOpenSource{})

	recent, err := svc.RecentBreaches(context.Background())
	require.NoError(t, err)
	assert.Len(t, recent, 20)
}
