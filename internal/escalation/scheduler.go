// Package escalation runs the periodic scan that catches deadline misses on
// quiet tickets and triggers one-shot escalations past the grace period.
package escalation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/haloline/slawatch/internal/domain"
	"github.com/haloline/slawatch/internal/notifications"
	"github.com/haloline/slawatch/internal/sla"
	"github.com/haloline/slawatch/internal/tickets"
)

// Config contains scheduler configuration.
type Config struct {
	// ScanInterval is the pause between scans. It should be comfortably
	// smaller than the shortest configured escalation grace period.
	ScanInterval time.Duration
	RiskWindow   time.Duration
	BatchSize    int
}

// DefaultConfig returns default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		ScanInterval: time.Minute,
		RiskWindow:   30 * time.Minute,
		BatchSize:    500,
	}
}

// TicketStore is the slice of ticket storage the scheduler needs.
type TicketStore interface {
	ListOpenTracked(ctx context.Context, limit int) ([]*tickets.TrackedTicket, error)
	MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error)
}

// Notifier queues escalation notifications.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind notifications.Kind, payload any) error
}

// Scheduler periodically re-evaluates open SLA-bound tickets. Detection is
// idempotent and escalation is a compare-and-swap, so running several
// replicas of the scheduler is safe.
type Scheduler struct {
	config   Config
	store    TicketStore
	detector *sla.Detector
	notifier Notifier
	now      func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a new escalation scheduler.
func NewScheduler(config Config, store TicketStore, detector *sla.Detector, notifier Notifier) *Scheduler {
	if config.ScanInterval <= 0 {
		config.ScanInterval = time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	return &Scheduler{
		config:   config,
		store:    store,
		detector: detector,
		notifier: notifier,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the scheduler goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("starting escalation scheduler",
		"scan_interval", s.config.ScanInterval,
		"risk_window", s.config.RiskWindow,
		"batch_size", s.config.BatchSize,
	)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	slog.Info("escalation scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Scan runs one evaluation pass over open tracked tickets.
func (s *Scheduler) Scan(ctx context.Context) {
	start := s.now()

	list, err := s.store.ListOpenTracked(ctx, s.config.BatchSize)
	if err != nil {
		slog.Error("failed to list open tracked tickets", "error", err)
		return
	}

	atRisk := 0
	for _, tt := range list {
		if _, err := s.detector.Evaluate(ctx, &tt.Ticket, &tt.Policy); err != nil {
			// Detection is idempotent; the next scan picks this ticket up again.
			slog.Error("breach evaluation failed",
				"ticket_id", tt.Ticket.ID,
				"error", err,
			)
			continue
		}

		s.maybeEscalate(ctx, tt)

		if _, ok := sla.AtRisk(&tt.Ticket, s.now(), s.config.RiskWindow); ok {
			atRisk++
		}
	}

	recordScan(len(list), atRisk, time.Since(start))

	slog.Debug("scan complete",
		"tickets", len(list),
		"at_risk", atRisk,
		"duration", time.Since(start),
	)
}

// maybeEscalate fires the one-shot escalation for a breached ticket once the
// grace period after the breach moment has elapsed. A ticket responded to 30
// minutes past its deadline starts its grace clock at that late response, not
// at the deadline. The conditional MarkEscalated update decides the winner
// under concurrency; only the winner queues the notification.
func (s *Scheduler) maybeEscalate(ctx context.Context, tt *tickets.TrackedTicket) {
	t := &tt.Ticket
	p := &tt.Policy

	if t.Escalated || !p.EscalationEnabled || p.EscalationTo == nil {
		return
	}

	// Response breach takes precedence when both sides are breached.
	var deadline, breachedAt *time.Time
	var breachType domain.BreachType
	switch {
	case t.ResponseBreached:
		deadline = t.ResponseDeadline
		breachedAt = tt.ResponseBreachedAt
		breachType = domain.BreachTypeResponse
	case t.ResolutionBreached:
		deadline = t.ResolutionDeadline
		breachedAt = tt.ResolutionBreachedAt
		breachType = domain.BreachTypeResolution
	default:
		return
	}
	if deadline == nil {
		return
	}
	if breachedAt == nil {
		// The breach was recorded during this very scan; its grace clock
		// starts now, so the earliest possible escalation is a later scan.
		return
	}

	now := s.now()
	if !now.After(breachedAt.Add(p.EscalationGrace())) {
		return
	}

	won, err := s.store.MarkEscalated(ctx, t.ID, now)
	if err != nil {
		slog.Error("failed to mark ticket escalated", "ticket_id", t.ID, "error", err)
		return
	}
	if !won {
		// Another replica escalated this ticket between our read and write.
		return
	}

	t.Escalated = true
	t.EscalatedAt = &now
	recordEscalation(string(breachType))

	slog.Info("ticket escalated",
		"ticket_id", t.ID,
		"ticket_number", t.Number,
		"breach_type", breachType,
		"escalation_to", *p.EscalationTo,
	)

	payload := notifications.EscalationPayload{
		TicketID:       t.ID,
		TicketNumber:   t.Number,
		Subject:        t.Subject,
		Priority:       string(t.Priority),
		BreachType:     string(breachType),
		Deadline:       *deadline,
		EscalatedAt:    now,
		MinutesOverdue: int(now.Sub(*deadline).Minutes()),
	}
	if err := s.notifier.Notify(ctx, *p.EscalationTo, notifications.KindEscalation, payload); err != nil {
		// The escalation flag stays set; a lost notification never unwinds it.
		slog.Error("failed to queue escalation notification",
			"ticket_id", t.ID,
			"error", err,
		)
	}
}
