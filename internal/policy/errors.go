package policy

import "errors"

// Service errors.
var (
	ErrPolicyNotFound     = errors.New("sla policy not found")
	ErrNoActivePolicy     = errors.New("no active sla policy for priority")
	ErrActivePolicyExists = errors.New("an active sla policy already exists for this priority")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidMinutes     = errors.New("minute fields must be positive")
	ErrEscalationTarget   = errors.New("escalation_after_minutes and escalation_to are required when escalation is enabled")
)
