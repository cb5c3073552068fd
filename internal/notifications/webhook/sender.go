// Package webhook provides escalation delivery to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/haloline/slawatch/internal/notifications"
	"golang.org/x/time/rate"
)

// Config holds webhook sender configuration.
type Config struct {
	Enabled   bool
	URL       string
	Timeout   time.Duration
	RateLimit float64
}

// Sender implements notifications.Sender by POSTing JSON to a configured
// endpoint. Outbound requests are rate limited so a breach storm cannot
// flood the receiver.
type Sender struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
}

// message is the wire format posted to the webhook endpoint.
type message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSender creates a new webhook sender.
func NewSender(config Config) (*Sender, error) {
	if config.Enabled && config.URL == "" {
		return nil, errors.New("webhook sender: URL is required when enabled")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 5
	}

	slog.Info("webhook sender configured",
		"enabled", config.Enabled,
		"url", config.URL,
		"rate_limit", config.RateLimit,
	)

	return &Sender{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), int(config.RateLimit)+1),
	}, nil
}

// Name returns the sender name.
func (s *Sender) Name() string {
	return "webhook"
}

// Send posts the notification to the webhook endpoint.
func (s *Sender) Send(ctx context.Context, n notifications.Notification) error {
	if !s.config.Enabled {
		slog.Debug("webhook sender disabled, skipping")
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return notifications.NewRetryableError(fmt.Errorf("rate limiter: %w", err))
	}

	payload, err := json.Marshal(message{To: n.To, Subject: n.Subject, Body: n.Body})
	if err != nil {
		return notifications.NewNonRetryableError(fmt.Errorf("marshal webhook payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(payload))
	if err != nil {
		return notifications.NewNonRetryableError(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return notifications.NewRetryableError(fmt.Errorf("post webhook: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return notifications.NewRetryableError(fmt.Errorf("webhook returned %d", resp.StatusCode))
	default:
		return notifications.NewNonRetryableError(fmt.Errorf("webhook returned %d", resp.StatusCode))
	}
}
