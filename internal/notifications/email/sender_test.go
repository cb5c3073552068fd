package email

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/haloline/slawatch/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "disabled needs nothing",
			config:  Config{Enabled: false},
			wantErr: false,
		},
		{
			name: "enabled with full config",
			config: Config{
				Enabled:     true,
				SMTPHost:    "smtp.example.com",
				FromAddress: "slawatch@example.com",
			},
			wantErr: false,
		},
		{
			name: "enabled without host",
			config: Config{
				Enabled:     true,
				FromAddress: "slawatch@example.com",
			},
			wantErr: true,
		},
		{
			name: "enabled without from address",
			config: Config{
				Enabled:  true,
				SMTPHost: "smtp.example.com",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSender(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewSender_Defaults(t *testing.T) {
	s, err := NewSender(Config{})
	require.NoError(t, err)

	assert.Equal(t, 587, s.config.SMTPPort)
	assert.Nil(t, s.auth)
}

func TestSender_Name(t *testing.T) {
	s, err := NewSender(Config{})
	require.NoError(t, err)
	assert.Equal(t, "email", s.Name())
}

func TestSender_DisabledSkipsSend(t *testing.T) {
	s, err := NewSender(Config{Enabled: false})
	require.NoError(t, err)

	err = s.Send(context.Background(), notifications.Notification{
		To:      "dana@example.com",
		Subject: "subject",
		Body:    "body",
	})
	assert.NoError(t, err)
}

func TestSender_MissingRecipient(t *testing.T) {
	s, err := NewSender(Config{
		Enabled:     true,
		SMTPHost:    "smtp.example.com",
		FromAddress: "slawatch@example.com",
	})
	require.NoError(t, err)

	err = s.Send(context.Background(), notifications.Notification{Subject: "subject"})
	require.Error(t, err)

	var retryable *notifications.RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.False(t, retryable.IsRetryable())
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		expected string
	}{
		{"plain address", "slawatch@example.com", "slawatch@example.com"},
		{"with display name", "SLA Watch <slawatch@example.com>", "slawatch@example.com"},
		{"malformed brackets", "SLA Watch <slawatch@example.com", "SLA Watch <slawatch@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractEmail(tt.address))
		})
	}
}

func TestSender_BuildMessage(t *testing.T) {
	s, err := NewSender(Config{FromAddress: "SLA Watch <slawatch@example.com>"})
	require.NoError(t, err)

	msg := string(s.buildMessage(notifications.Notification{
		To:      "dana@example.com",
		Subject: "[SLA ESCALATION] TKT-1: Response deadline missed",
		Body:    "Ticket TKT-1 has breached its SLA.",
	}))

	assert.Contains(t, msg, "From: SLA Watch <slawatch@example.com>\r\n")
	assert.Contains(t, msg, "To: dana@example.com\r\n")
	assert.Contains(t, msg, "Subject: [SLA ESCALATION] TKT-1: Response deadline missed\r\n")
	assert.Contains(t, msg, "\r\n\r\nTicket TKT-1 has breached its SLA.")
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"network op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"smtp temporary failure", errors.New("451 try again later"), true},
		{"smtp permanent failure", errors.New("550 mailbox unavailable"), false},
		{"generic error", errors.New("something broke"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isTransient(tt.err))
		})
	}
}
