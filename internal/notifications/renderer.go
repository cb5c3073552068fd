package notifications

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const escalationSubjectTmpl = `[SLA ESCALATION] {{.TicketNumber}}: {{.BreachLabel}} deadline missed`

const escalationBodyTmpl = `Ticket {{.TicketNumber}} ({{.Priority}}) has breached its {{.BreachType}} SLA and was not addressed within the grace period.

Subject:         {{.Subject}}
Breach type:     {{.BreachLabel}}
Deadline:        {{.Deadline.Format "2006-01-02 15:04 MST"}}
Minutes overdue: {{.MinutesOverdue}}
Escalated at:    {{.EscalatedAt.Format "2006-01-02 15:04 MST"}}

This ticket requires immediate attention.
`

// Renderer renders queue payloads into notification subject and body.
type Renderer struct {
	escalationSubject *template.Template
	escalationBody    *template.Template
	titler            cases.Caser
}

// NewRenderer creates a renderer with parsed templates.
func NewRenderer() (*Renderer, error) {
	subject, err := template.New("escalation_subject").Parse(escalationSubjectTmpl)
	if err != nil {
		return nil, fmt.Errorf("parse subject template: %w", err)
	}
	body, err := template.New("escalation_body").Parse(escalationBodyTmpl)
	if err != nil {
		return nil, fmt.Errorf("parse body template: %w", err)
	}
	return &Renderer{
		escalationSubject: subject,
		escalationBody:    body,
		titler:            cases.Title(language.English),
	}, nil
}

type escalationView struct {
	EscalationPayload
	BreachLabel string
}

// Render produces subject and body for a queue item payload.
func (r *Renderer) Render(kind Kind, payload json.RawMessage) (string, string, error) {
	switch kind {
	case KindEscalation, KindBreachAlert:
		var p EscalationPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return "", "", fmt.Errorf("unmarshal escalation payload: %w", err)
		}

		view := escalationView{
			EscalationPayload: p,
			BreachLabel:       r.titler.String(p.BreachType),
		}

		var subject, body strings.Builder
		if err := r.escalationSubject.Execute(&subject, view); err != nil {
			return "", "", fmt.Errorf("render subject: %w", err)
		}
		if err := r.escalationBody.Execute(&body, view); err != nil {
			return "", "", fmt.Errorf("render body: %w", err)
		}
		return subject.String(), body.String(), nil
	default:
		return "", "", fmt.Errorf("unknown notification kind: %s", kind)
	}
}
