package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/haloline/slawatch/internal/domain"
)

// Detector evaluates tickets against their stamped deadlines and records
// breaches exactly once per (ticket, breach type). It is safe to run the
// same ticket through Evaluate concurrently: the store's insert-if-absent
// semantics make the losing evaluation a no-op.
type Detector struct {
	store BreachStore
	now   func() time.Time
}

// NewDetector creates a breach detector.
func NewDetector(store BreachStore) *Detector {
	return &Detector{store: store, now: time.Now}
}

// NewDetectorWithClock creates a detector with an injected clock.
func NewDetectorWithClock(store BreachStore, now func() time.Time) *Detector {
	return &Detector{store: store, now: now}
}

// Result reports which sides of the SLA are breached after an evaluation.
type Result struct {
	ResponseBreached   bool
	ResolutionBreached bool
}

// Evaluate checks both deadlines of a ticket, callable synchronously on a
// lifecycle event or from the periodic scan. Already-recorded breaches are
// skipped; newly detected breaches are persisted and the in-memory ticket
// flags updated so callers see the post-evaluation state.
func (d *Detector) Evaluate(ctx context.Context, t *domain.Ticket, p *domain.SLAPolicy) (Result, error) {
	var res Result
	if !t.Tracked() || p == nil {
		return res, nil
	}

	now := d.now()

	if err := d.evaluateResponse(ctx, t, p, now); err != nil {
		return res, fmt.Errorf("evaluate response side: %w", err)
	}
	if err := d.evaluateResolution(ctx, t, p, now); err != nil {
		return res, fmt.Errorf("evaluate resolution side: %w", err)
	}

	res.ResponseBreached = t.ResponseBreached
	res.ResolutionBreached = t.ResolutionBreached
	return res, nil
}

func (d *Detector) evaluateResponse(ctx context.Context, t *domain.Ticket, p *domain.SLAPolicy, now time.Time) error {
	if t.ResponseBreached || t.ResponseDeadline == nil {
		return nil
	}

	// Measurement point is the response event itself when one exists,
	// otherwise "now" during a periodic scan.
	measuredAt := now
	if t.FirstResponseAt != nil {
		measuredAt = *t.FirstResponseAt
	}
	if !measuredAt.After(*t.ResponseDeadline) {
		return nil
	}

	return d.record(ctx, t, &domain.SLABreachRecord{
		TicketID:      t.ID,
		BreachType:    domain.BreachTypeResponse,
		TargetMinutes: p.ResponseTimeMinutes,
		ActualMinutes: minutesBetween(t.CreatedAt, measuredAt),
		BreachedAt:    now,
	})
}

func (d *Detector) evaluateResolution(ctx context.Context, t *domain.Ticket, p *domain.SLAPolicy, now time.Time) error {
	if t.ResolutionBreached || t.ResolutionDeadline == nil {
		return nil
	}

	var measuredAt time.Time
	switch {
	case t.ResolvedAt != nil:
		// Synchronous path: the ticket just transitioned into resolved.
		measuredAt = *t.ResolvedAt
	case t.Status.IsOpen():
		measuredAt = now
	default:
		// Closed without a resolution timestamp; nothing left to measure.
		return nil
	}
	if !measuredAt.After(*t.ResolutionDeadline) {
		return nil
	}

	return d.record(ctx, t, &domain.SLABreachRecord{
		TicketID:      t.ID,
		BreachType:    domain.BreachTypeResolution,
		TargetMinutes: p.ResolutionTimeMinutes,
		ActualMinutes: minutesBetween(t.CreatedAt, measuredAt),
		BreachedAt:    now,
	})
}

func (d *Detector) record(ctx context.Context, t *domain.Ticket, rec *domain.SLABreachRecord) error {
	inserted, err := d.store.RecordBreach(ctx, rec)
	if err != nil {
		return err
	}
	if inserted {
		recordBreachDetected(rec.BreachType)
	}

	// Either this evaluation won the insert or a concurrent one already did;
	// the stored flag is true in both cases.
	switch rec.BreachType {
	case domain.BreachTypeResponse:
		t.ResponseBreached = true
	case domain.BreachTypeResolution:
		t.ResolutionBreached = true
	}
	return nil
}
