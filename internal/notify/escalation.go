package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/staydesk-support/internal/intake"
	"github.com/wolfman30/staydesk-support/pkg/logging"
)

var priorityRank = map[string]int{"NONE": 0, "LOW": 1, "MEDIUM": 2, "HIGH": 3}

// EscalationMailer emails the support inbox when a conversation escalates at
// or above a minimum priority.
type EscalationMailer struct {
	sender      EmailSender
	to          string
	minPriority string
	logger      *logging.Logger
}

var _ intake.EscalationNotifier = (*EscalationMailer)(nil)

// NewEscalationMailer returns nil when there is no sender or recipient.
// minPriority defaults to HIGH.
func NewEscalationMailer(sender EmailSender, to, minPriority string, logger *logging.Logger) *EscalationMailer {
	to = strings.TrimSpace(to)
	if sender == nil || to == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	minPriority = strings.ToUpper(strings.TrimSpace(minPriority))
	if _, ok := priorityRank[minPriority]; !ok || minPriority == "NONE" {
		minPriority = "HIGH"
	}
	return &EscalationMailer{sender: sender, to: to, minPriority: minPriority, logger: logger}
}

// NotifyEscalation sends the escalation email, or nothing below the threshold.
func (m *EscalationMailer) NotifyEscalation(ctx context.Context, notice intake.EscalationNotice) error {
	if priorityRank[notice.Priority] < priorityRank[m.minPriority] {
		m.logger.Debug("escalation below email threshold",
			"conversation_id", notice.ConversationID,
			"priority", notice.Priority,
		)
		return nil
	}
	msg := EmailMessage{
		To:      m.to,
		Subject: fmt.Sprintf("[%s] %s", notice.Priority, notice.Subject),
		Body:    escalationBody(notice),
		ReplyTo: Address{Email: notice.Profile.Email, Name: notice.Profile.Name},
		Tags: map[string]string{
			TagConversation: notice.ConversationID,
			TagReason:       string(notice.Reason),
			TagPriority:     notice.Priority,
		},
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: escalation email: %w", err)
	}
	return nil
}

func escalationBody(n intake.EscalationNotice) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Conversation %s needs a human.\n\n", n.ConversationID)
	fmt.Fprintf(&sb, "Reason: %s\nPriority: %s\nRole: %s\nTurn: %d\nAt: %s\n",
		n.Reason, n.Priority, n.Role, n.Turn, n.At.UTC().Format("2006-01-02 15:04 MST"))

	rows := [][2]string{
		{"Name", n.Profile.Name},
		{"Email", n.Profile.Email},
		{"Phone", n.Profile.Phone},
		{"Location", n.Profile.Location},
		{"Issue", string(n.Profile.IssueType)},
		{"Booking", n.Profile.BookingReference},
		{"Urgency", string(n.Profile.Urgency)},
		{"Preferred contact", string(n.Profile.PreferredContact)},
	}
	wrote := false
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		if !wrote {
			sb.WriteString("\nCustomer\n")
			wrote = true
		}
		fmt.Fprintf(&sb, "  %s: %s\n", row[0], row[1])
	}
	return sb.String()
}

// Fanout delivers each escalation to every notifier and joins the errors.
type Fanout []intake.EscalationNotifier

// NewFanout drops nil notifiers. It returns nil when none remain.
func NewFanout(notifiers ...intake.EscalationNotifier) intake.EscalationNotifier {
	var out Fanout
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

// NotifyEscalation calls every notifier even when an earlier one fails.
func (f Fanout) NotifyEscalation(ctx context.Context, notice intake.EscalationNotice) error {
	var errs []error
	for _, n := range f {
		if err := n.NotifyEscalation(ctx, notice); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
