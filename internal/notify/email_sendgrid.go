package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/staydesk-support/pkg/logging"
)

// escalationCategory groups every escalation email in SendGrid stats.
const escalationCategory = "support-escalation"

// sendgridAPI is the part of *sendgrid.Client used for sending.
type sendgridAPI interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender sends escalation emails through SendGrid.
type SendGridSender struct {
	client sendgridAPI
	fromIdentity
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	return newSendGridSender(sendgrid.NewSendClient(cfg.APIKey), cfg, logger)
}

func newSendGridSender(client sendgridAPI, cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	return &SendGridSender{
		client:       client,
		fromIdentity: newFromIdentity(cfg.FromEmail, cfg.FromName, logger),
	}
}

// Send maps tags to custom args and the priority to a category, so the inbox
// can route on them.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	resp, err := s.client.SendWithContext(ctx, s.compose(msg))
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected escalation email",
			"status", resp.StatusCode,
			"body", resp.Body,
			"conversation_id", msg.Tags[TagConversation],
		)
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}
	s.logger.Info("escalation email sent via sendgrid",
		"conversation_id", msg.Tags[TagConversation],
		"priority", msg.Tags[TagPriority],
	)
	return nil
}

func (s *SendGridSender) compose(msg EmailMessage) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.from.Name, s.from.Email))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", msg.To))
	for _, k := range msg.sortedTagKeys() {
		p.SetCustomArg(k, msg.Tags[k])
	}
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", msg.Body))

	if msg.ReplyTo.Email != "" {
		m.SetReplyTo(mail.NewEmail(msg.ReplyTo.Name, msg.ReplyTo.Email))
	}
	m.AddCategories(escalationCategory)
	if priority := msg.Tags[TagPriority]; priority != "" {
		m.AddCategories("priority-" + strings.ToLower(priority))
		if priority == "HIGH" {
			m.SetHeader("X-Priority", "1")
		}
	}
	return m
}

var _ EmailSender = (*SendGridSender)(nil)
