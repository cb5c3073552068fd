package notifications

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_RenderEscalation(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	deadline := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	escalatedAt := time.Date(2026, 3, 1, 10, 50, 0, 0, time.UTC)

	payload, err := json.Marshal(EscalationPayload{
		TicketID:       "ticket-1",
		TicketNumber:   "TKT-20260301-ABCD1234",
		Subject:        "Checkout is down",
		Priority:       "high",
		BreachType:     "response",
		Deadline:       deadline,
		EscalatedAt:    escalatedAt,
		MinutesOverdue: 20,
	})
	require.NoError(t, err)

	subject, body, err := r.Render(KindEscalation, payload)
	require.NoError(t, err)

	assert.Equal(t, "[SLA ESCALATION] TKT-20260301-ABCD1234: Response deadline missed", subject)
	assert.Contains(t, body, "Checkout is down")
	assert.Contains(t, body, "high")
	assert.Contains(t, body, "Response")
	assert.Contains(t, body, "2026-03-01 10:30 UTC")
	assert.Contains(t, body, "20")
}

func TestRenderer_UnknownKind(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	_, _, err = r.Render(Kind("password_reset"), []byte(`{}`))
	assert.Error(t, err)
}

func TestRenderer_InvalidPayload(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	_, _, err = r.Render(KindEscalation, []byte(`not json`))
	assert.Error(t, err)
}
