package notify

import (
	"context"
	"maps"
	"slices"

	"github.com/wolfman30/staydesk-support/pkg/logging"
)

const defaultFromName = "StayDesk Support"

// Tag keys attached to every escalation email. Providers expose them for
// filtering (SendGrid custom args, SES message tags).
const (
	TagConversation = "conversation_id"
	TagReason       = "reason"
	TagPriority     = "priority"
)

// EmailSender delivers one escalation email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// Address is a mailbox with an optional display name.
type Address struct {
	Email string
	Name  string
}

// EmailMessage is what the support inbox receives. ReplyTo is the customer
// when their email is known, so an operator can answer straight from the inbox.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
	ReplyTo Address
	Tags    map[string]string
}

func (m EmailMessage) sortedTagKeys() []string {
	return slices.Sorted(maps.Keys(m.Tags))
}

// fromIdentity is the sender shared by every provider.
type fromIdentity struct {
	from   Address
	logger *logging.Logger
}

func newFromIdentity(email, name string, logger *logging.Logger) fromIdentity {
	if logger == nil {
		logger = logging.Default()
	}
	if name == "" {
		name = defaultFromName
	}
	return fromIdentity{from: Address{Email: email, Name: name}, logger: logger}
}

// LogSender only logs. It stands in when no provider is configured.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("escalation email not sent: no provider configured",
		"to", msg.To,
		"subject", msg.Subject,
		"conversation_id", msg.Tags[TagConversation],
		"priority", msg.Tags[TagPriority],
	)
	return nil
}
