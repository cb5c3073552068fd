package sla

import (
	"time"

	"github.com/haloline/slawatch/internal/domain"
)

// AtRisk classifies an open ticket against the risk window: a ticket is at
// risk when the relevant side is not yet breached and the time remaining
// until the nearer applicable deadline is within the window. The relevant
// deadline is the response deadline while the ticket awaits its first
// response, the resolution deadline afterwards.
//
// Classification is computed on read and never persisted.
func AtRisk(t *domain.Ticket, now time.Time, window time.Duration) (time.Duration, bool) {
	if !t.Tracked() || !t.Status.IsOpen() {
		return 0, false
	}

	var deadline *time.Time
	if t.FirstResponseAt == nil {
		if t.ResponseBreached {
			return 0, false
		}
		deadline = t.ResponseDeadline
	} else {
		if t.ResolutionBreached {
			return 0, false
		}
		deadline = t.ResolutionDeadline
	}
	if deadline == nil {
		return 0, false
	}

	left := deadline.Sub(now)
	if left <= 0 || left > window {
		return 0, false
	}
	return left, true
}
