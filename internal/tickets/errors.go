package tickets

import "errors"

// Service errors.
var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrAlreadyResponded  = errors.New("first response already recorded")
	ErrTicketNotOpen     = errors.New("ticket is not open")
	ErrTicketNotResolved = errors.New("ticket is not resolved")
	ErrTicketClosed      = errors.New("ticket is closed")
)
