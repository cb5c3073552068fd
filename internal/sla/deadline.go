// Package sla implements deadline stamping, breach detection and at-risk
// classification for SLA-tracked tickets.
package sla

import (
	"time"

	"github.com/haloline/slawatch/internal/domain"
)

// StampDeadlines computes absolute response/resolution deadlines for a ticket
// from the policy active at creation time. Called exactly once, before the
// ticket is persisted. A nil policy leaves the deadlines unset and the ticket
// permanently excluded from SLA evaluation.
//
// Deadlines are immutable snapshots: they are never recomputed, even if the
// bound policy is edited afterwards.
func StampDeadlines(t *domain.Ticket, p *domain.SLAPolicy) {
	if p == nil {
		return
	}

	response := t.CreatedAt.Add(p.ResponseBudget())
	resolution := t.CreatedAt.Add(p.ResolutionBudget())

	t.SLAPolicyID = &p.ID
	t.ResponseDeadline = &response
	t.ResolutionDeadline = &resolution
}

// minutesBetween returns whole minutes elapsed from start to end.
func minutesBetween(start, end time.Time) int {
	return int(end.Sub(start).Minutes())
}
