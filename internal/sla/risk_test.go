package sla

import (
	"testing"
	"time"

	"github.com/haloline/slawatch/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAtRisk(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	window := 30 * time.Minute
	responded := created.Add(10 * time.Minute)

	tests := []struct {
		name         string
		setup        func(*domain.Ticket)
		now          time.Time
		wantAtRisk   bool
		wantLeftMins int
	}{
		{
			name:         "response deadline inside window",
			setup:        func(*domain.Ticket) {},
			now:          created.Add(10 * time.Minute),
			wantAtRisk:   true,
			wantLeftMins: 20,
		},
		{
			name:       "response deadline far away",
			setup:      func(*domain.Ticket) {},
			now:        created.Add(-time.Hour),
			wantAtRisk: false,
		},
		{
			name:       "response deadline already passed",
			setup:      func(*domain.Ticket) {},
			now:        created.Add(31 * time.Minute),
			wantAtRisk: false,
		},
		{
			name: "after first response the resolution deadline counts",
			setup: func(tk *domain.Ticket) {
				tk.FirstResponseAt = &responded
				tk.Status = domain.TicketStatusInProgress
			},
			now:          created.Add(3*time.Hour + 45*time.Minute),
			wantAtRisk:   true,
			wantLeftMins: 15,
		},
		{
			name: "breached response side excluded",
			setup: func(tk *domain.Ticket) {
				tk.ResponseBreached = true
			},
			now:        created.Add(10 * time.Minute),
			wantAtRisk: false,
		},
		{
			name: "breached resolution side excluded",
			setup: func(tk *domain.Ticket) {
				tk.FirstResponseAt = &responded
				tk.ResolutionBreached = true
			},
			now:        created.Add(3*time.Hour + 45*time.Minute),
			wantAtRisk: false,
		},
		{
			name: "resolved ticket excluded",
			setup: func(tk *domain.Ticket) {
				tk.Status = domain.TicketStatusResolved
			},
			now:        created.Add(10 * time.Minute),
			wantAtRisk: false,
		},
		{
			name: "untracked ticket excluded",
			setup: func(tk *domain.Ticket) {
				tk.SLAPolicyID = nil
				tk.ResponseDeadline = nil
				tk.ResolutionDeadline = nil
			},
			now:        created.Add(10 * time.Minute),
			wantAtRisk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := trackedTicket(created, 30*time.Minute, 4*time.Hour)
			tt.setup(ticket)

			left, ok := AtRisk(ticket, tt.now, window)
			assert.Equal(t, tt.wantAtRisk, ok)
			if tt.wantAtRisk {
				assert.Equal(t, tt.wantLeftMins, int(left.Minutes()))
			}
		})
	}
}
