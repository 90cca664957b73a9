package intake

import (
	"errors"
	"time"
)

var (
	// ErrInvalidConversationID is returned for empty or malformed identifiers.
	// No session state is created or touched when it is returned.
	ErrInvalidConversationID = errors.New("intake: invalid conversation id")

	// ErrEmptyUtterance is returned when the user sent nothing but whitespace.
	ErrEmptyUtterance = errors.New("intake: empty utterance")

	// ErrConversationNotFound is returned by the admin surface for unknown identifiers.
	ErrConversationNotFound = errors.New("intake: conversation not found")
)

// Speaker identifies who authored a message.
type Speaker string

const (
	SpeakerUser   Speaker = "user"
	SpeakerSystem Speaker = "system"
)

// Role is the resolved role of the person on the other end of the conversation.
type Role string

const (
	RoleUnknown       Role = "unknown"
	RoleCustomer      Role = "customer"
	RolePropertyOwner Role = "propertyOwner"
)

// IssueType categorises what the user needs help with.
type IssueType string

const (
	IssueBooking  IssueType = "booking"
	IssuePayment  IssueType = "payment"
	IssueProperty IssueType = "property"
	IssueAccount  IssueType = "account"
)

// Urgency is how time-sensitive the user says the issue is.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ContactMethod is how the user prefers to be reached.
type ContactMethod string

const (
	ContactEmail ContactMethod = "email"
	ContactPhone ContactMethod = "phone"
	ContactChat  ContactMethod = "chat"
)

// CustomerProfile is the structured information gathered over a conversation.
// Empty string means unset.
type CustomerProfile struct {
	Name             string        `json:"name,omitempty" yaml:"name,omitempty"`
	Email            string        `json:"email,omitempty" yaml:"email,omitempty"`
	Phone            string        `json:"phone,omitempty" yaml:"phone,omitempty"`
	Location         string        `json:"location,omitempty" yaml:"location,omitempty"`
	IssueType        IssueType     `json:"issue_type,omitempty" yaml:"issue_type,omitempty"`
	BookingReference string        `json:"booking_reference,omitempty" yaml:"booking_reference,omitempty"`
	Urgency          Urgency       `json:"urgency,omitempty" yaml:"urgency,omitempty"`
	PreferredContact ContactMethod `json:"preferred_contact,omitempty" yaml:"preferred_contact,omitempty"`
}

// PartialProfile holds the fields found in a single utterance. It has the same
// shape as CustomerProfile; unset fields are empty.
type PartialProfile CustomerProfile

// IsEmpty reports whether nothing was extracted.
func (p PartialProfile) IsEmpty() bool {
	return p == PartialProfile{}
}

// Message is one entry of the conversation log. Messages are never mutated.
type Message struct {
	ID        string    `json:"id"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// EscalationReason explains why a conversation should go to a human.
type EscalationReason string

const (
	ReasonNone                  EscalationReason = ""
	ReasonHighUrgency           EscalationReason = "highUrgency"
	ReasonLongConversation      EscalationReason = "longConversation"
	ReasonUnresolvedComplexCase EscalationReason = "unresolvedComplexCase"
	ReasonOperatorTakeover      EscalationReason = "operatorTakeover"
)

// EscalationSignal is derived on every turn and never stored.
// Yield means a human already owns the conversation and no reply may be produced.
type EscalationSignal struct {
	ShouldEscalate bool             `json:"should_escalate" yaml:"should_escalate"`
	Reason         EscalationReason `json:"reason,omitempty" yaml:"reason,omitempty"`
	Yield          bool             `json:"yield,omitempty" yaml:"yield,omitempty"`
}

// TurnResult is what HandleTurn returns to the transport layer.
type TurnResult struct {
	ConversationID   string           `json:"conversation_id"`
	Reply            string           `json:"reply"`
	Silent           bool             `json:"silent"`
	Profile          CustomerProfile  `json:"profile"`
	Confidence       int              `json:"confidence"`
	Escalation       EscalationSignal `json:"escalation"`
	SuggestedActions []string         `json:"suggested_actions,omitempty"`
	State            DialogueState    `json:"state,omitempty"`
	Role             Role             `json:"role"`
	Turn             int              `json:"turn"`
}
