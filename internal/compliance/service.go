package compliance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/haloline/slawatch/internal/sla"
	"github.com/haloline/slawatch/internal/tickets"
)

// Config contains aggregator settings.
type Config struct {
	// Window is the trailing window stats are computed over.
	Window              time.Duration
	RiskWindow          time.Duration
	RecentBreachesLimit int
	// OpenTicketLimit bounds the at-risk query.
	OpenTicketLimit int
}

// DefaultConfig returns default aggregator configuration.
func DefaultConfig() Config {
	return Config{
		Window:              30 * 24 * time.Hour,
		RiskWindow:          30 * time.Minute,
		RecentBreachesLimit: 20,
		OpenTicketLimit:     500,
	}
}

// OpenTicketSource lists open SLA-bound tickets for at-risk classification.
type OpenTicketSource interface {
	ListOpenTracked(ctx context.Context, limit int) ([]*tickets.TrackedTicket, error)
}

// Stats is the compliance report over a trailing window.
type Stats struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	TotalTickets     int `json:"total_tickets"`
	UntrackedTickets int `json:"untracked_tickets"`
	RespondedTickets int `json:"responded_tickets"`
	CompletedTickets int `json:"completed_tickets"`

	ResponseRate   float64 `json:"response_rate"`
	ResolutionRate float64 `json:"resolution_rate"`

	TotalBreaches      int `json:"total_breaches"`
	ResponseBreaches   int `json:"response_breaches"`
	ResolutionBreaches int `json:"resolution_breaches"`
	EscalatedTickets   int `json:"escalated_tickets"`

	AvgResponseMinutes   *float64 `json:"avg_response_minutes"`
	AvgResolutionMinutes *float64 `json:"avg_resolution_minutes"`
}

// AtRiskTicket is an open ticket within the risk window of its nearer
// applicable deadline.
type AtRiskTicket struct {
	TicketID     string    `json:"ticket_id"`
	TicketNumber string    `json:"ticket_number"`
	Subject      string    `json:"subject"`
	Priority     string    `json:"priority"`
	Deadline     time.Time `json:"deadline"`
	MinutesLeft  int       `json:"minutes_left"`
}

// Service computes compliance statistics. Stateless; every call reads the
// store fresh.
type Service struct {
	config Config
	repo   Repository
	open   OpenTicketSource
	now    func() time.Time
}

// NewService creates a new compliance service.
func NewService(config Config, repo Repository, open OpenTicketSource) *Service {
	if config.Window <= 0 {
		config.Window = 30 * 24 * time.Hour
	}
	if config.OpenTicketLimit <= 0 {
		config.OpenTicketLimit = 500
	}
	return &Service{config: config, repo: repo, open: open, now: time.Now}
}

// Stats computes the compliance report over the configured trailing window.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	end := s.now()
	start := end.Add(-s.config.Window)

	counts, err := s.repo.WindowCounts(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("window counts: %w", err)
	}

	return &Stats{
		WindowStart:          start,
		WindowEnd:            end,
		TotalTickets:         counts.TotalTickets,
		UntrackedTickets:     counts.UntrackedTickets,
		RespondedTickets:     counts.RespondedTickets,
		CompletedTickets:     counts.CompletedTickets,
		ResponseRate:         complianceRate(counts.ResponseBreaches, counts.RespondedTickets),
		ResolutionRate:       complianceRate(counts.ResolutionBreaches, counts.CompletedTickets),
		TotalBreaches:        counts.ResponseBreaches + counts.ResolutionBreaches,
		ResponseBreaches:     counts.ResponseBreaches,
		ResolutionBreaches:   counts.ResolutionBreaches,
		EscalatedTickets:     counts.EscalatedTickets,
		AvgResponseMinutes:   counts.AvgResponseMinutes,
		AvgResolutionMinutes: counts.AvgResolutionMinutes,
	}, nil
}

// AtRisk returns open tickets within the risk window of a deadline, sorted by
// ascending minutes left. Classification is computed here and never stored.
func (s *Service) AtRisk(ctx context.Context) ([]AtRiskTicket, error) {
	list, err := s.open.ListOpenTracked(ctx, s.config.OpenTicketLimit)
	if err != nil {
		return nil, fmt.Errorf("list open tracked tickets: %w", err)
	}

	now := s.now()
	atRisk := make([]AtRiskTicket, 0)
	for _, tt := range list {
		left, ok := sla.AtRisk(&tt.Ticket, now, s.config.RiskWindow)
		if !ok {
			continue
		}
		atRisk = append(atRisk, AtRiskTicket{
			TicketID:     tt.Ticket.ID,
			TicketNumber: tt.Ticket.Number,
			Subject:      tt.Ticket.Subject,
			Priority:     string(tt.Ticket.Priority),
			Deadline:     now.Add(left),
			MinutesLeft:  int(left.Minutes()),
		})
	}

	sort.Slice(atRisk, func(i, j int) bool {
		return atRisk[i].MinutesLeft < atRisk[j].MinutesLeft
	})
	return atRisk, nil
}

// RecentBreaches returns the latest breach records, newest first.
func (s *Service) RecentBreaches(ctx context.Context) ([]BreachSummary, error) {
	limit := s.config.RecentBreachesLimit
	if limit <= 0 {
		limit = 20
	}
	breaches, err := s.repo.ListRecentBreaches(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent breaches: %w", err)
	}
	return breaches, nil
}

// complianceRate is 1 minus the breach fraction over tickets that reached the
// milestone. With no milestone-reaching tickets there is nothing to breach,
// so the rate reads as full compliance.
func complianceRate(breaches, reached int) float64 {
	if reached == 0 {
		return 1.0
	}
	return 1.0 - float64(breaches)/float64(reached)
}
