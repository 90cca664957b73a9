package events

import (
	"time"

	"github.com/wolfman30/staydesk-support/internal/intake"
)

// EscalationRaisedV1 tells the support floor that a conversation needs a human.
type EscalationRaisedV1 struct {
	ConversationID   string    `json:"conversation_id"`
	Reason           string    `json:"reason"`
	Priority         string    `json:"priority"`
	Role             string    `json:"role"`
	Subject          string    `json:"subject"`
	CustomerName     string    `json:"customer_name,omitempty"`
	CustomerEmail    string    `json:"customer_email,omitempty"`
	CustomerPhone    string    `json:"customer_phone,omitempty"`
	IssueType        string    `json:"issue_type,omitempty"`
	BookingReference string    `json:"booking_reference,omitempty"`
	Urgency          string    `json:"urgency,omitempty"`
	PreferredContact string    `json:"preferred_contact,omitempty"`
	Turn             int       `json:"turn"`
	RaisedAt         time.Time `json:"raised_at"`
}

func (EscalationRaisedV1) EventType() string { return "intake.escalation.raised.v1" }

// EscalationFromNotice flattens an engine notice into the wire event.
func EscalationFromNotice(n intake.EscalationNotice) EscalationRaisedV1 {
	return EscalationRaisedV1{
		ConversationID:   n.ConversationID,
		Reason:           string(n.Reason),
		Priority:         n.Priority,
		Role:             string(n.Role),
		Subject:          n.Subject,
		CustomerName:     n.Profile.Name,
		CustomerEmail:    n.Profile.Email,
		CustomerPhone:    n.Profile.Phone,
		IssueType:        string(n.Profile.IssueType),
		BookingReference: n.Profile.BookingReference,
		Urgency:          string(n.Profile.Urgency),
		PreferredContact: string(n.Profile.PreferredContact),
		Turn:             n.Turn,
		RaisedAt:         n.At.UTC(),
	}
}
