package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Envelope is the escalation wire format. Conversation, reason and priority are
// lifted out of the payload so the support floor can route without decoding it.
type Envelope struct {
	EventID        uuid.UUID       `json:"event_id"`
	EventType      string          `json:"event_type"`
	ConversationID string          `json:"conversation_id"`
	Reason         string          `json:"reason"`
	Priority       string          `json:"priority"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Payload        json.RawMessage `json:"payload"`
}

// EnvelopeOption customizes the generated envelope.
type EnvelopeOption func(*Envelope)

// WithEventID overrides the generated event id.
func WithEventID(id uuid.UUID) EnvelopeOption {
	return func(e *Envelope) {
		if id != uuid.Nil {
			e.EventID = id
		}
	}
}

var (
	errMissingConversation = errors.New("events: conversation id is required")
	errMissingReason       = errors.New("events: escalation reason is required")
	nowFunc                = time.Now
)

// NewEnvelope wraps an escalation. OccurredAt is the time the escalation was
// raised, or now when the event carries none.
func NewEnvelope(evt EscalationRaisedV1, opts ...EnvelopeOption) (Envelope, error) {
	if strings.TrimSpace(evt.ConversationID) == "" {
		return Envelope{}, errMissingConversation
	}
	if strings.TrimSpace(evt.Reason) == "" {
		return Envelope{}, errMissingReason
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal escalation payload: %w", err)
	}
	occurred := evt.RaisedAt
	if occurred.IsZero() {
		occurred = nowFunc()
	}
	env := Envelope{
		EventID:        uuid.New(),
		EventType:      evt.EventType(),
		ConversationID: evt.ConversationID,
		Reason:         evt.Reason,
		Priority:       strings.ToUpper(strings.TrimSpace(evt.Priority)),
		OccurredAt:     occurred.UTC(),
		Payload:        payload,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&env)
		}
	}
	return env, nil
}

// Subject appends the lower-cased priority to base, e.g.
// "support.intake.escalation.high". Operators subscribe to "<base>.>" for
// everything or to a single priority.
func (e Envelope) Subject(base string) string {
	priority := strings.ToLower(e.Priority)
	if priority == "" {
		priority = "none"
	}
	return base + "." + priority
}
