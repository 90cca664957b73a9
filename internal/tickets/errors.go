package tickets

import "errors"

var (
	// ErrTicketNotFound is returned when no ticket exists for a conversation id.
	ErrTicketNotFound = errors.New("tickets: ticket not found")

	// ErrMissingTicketID is returned when a summary has no ticket id.
	ErrMissingTicketID = errors.New("tickets: ticket id is required")
)
