package tickets

import (
	"strings"
	"time"

	"github.com/wolfman30/staydesk-support/internal/intake"
)

// Status is the lifecycle state of a support ticket.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Ticket is a support ticket as stored by the help desk. Its id doubles as the
// conversation identifier.
type Ticket struct {
	ID            string    `json:"id"`
	RequesterID   string    `json:"requester_id"`
	RequesterRole string    `json:"requester_role"`
	AssignedTo    string    `json:"assigned_to,omitempty"`
	Status        Status    `json:"status"`
	Subject       string    `json:"subject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OperatorEngaged reports whether a human agent owns the ticket: it must be
// both assigned and in progress.
func (t *Ticket) OperatorEngaged() bool {
	return t != nil && strings.TrimSpace(t.AssignedTo) != "" && t.Status == StatusInProgress
}

// SummaryRecord is one row of ticket_summaries.
type SummaryRecord struct {
	TicketID         string
	Subject          string
	Body             string
	Payload          []byte
	Role             string
	Confidence       int
	EscalationReason string
	Priority         string
	UpdatedAt        time.Time
}

// NormalizeRole maps the user table's role column onto the engine's roles.
func NormalizeRole(raw string) intake.Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "owner", "property_owner", "propertyowner", "host":
		return intake.RolePropertyOwner
	case "customer", "guest", "traveller", "traveler":
		return intake.RoleCustomer
	default:
		return intake.RoleUnknown
	}
}
