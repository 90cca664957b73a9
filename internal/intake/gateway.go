package intake

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/staydesk-support/internal/observability/metrics"
	"github.com/wolfman30/staydesk-support/pkg/logging"
)

var gatewayTracer = otel.Tracer("staydesk/intake-gateway")

// TicketGateway is the ticket store as seen by the engine. Implementations do
// network I/O and may fail; the engine never lets those failures reach the user.
type TicketGateway interface {
	ResolveRole(ctx context.Context, conversationID string) (Role, error)
	IsOperatorJoined(ctx context.Context, conversationID string) (bool, error)
	PersistSummary(ctx context.Context, summary Summary) error
}

// EscalationNotice is handed to the notifier the first time a session
// escalates for a given reason.
type EscalationNotice struct {
	ConversationID string
	Reason         EscalationReason
	Priority       string
	Role           Role
	Subject        string
	Profile        CustomerProfile
	Turn           int
	At             time.Time
}

// EscalationNotifier tells the support floor about a new escalation.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, notice EscalationNotice) error
}

// Summary is the recap written to the ticket after every turn.
type Summary struct {
	ConversationID string           `json:"conversation_id"`
	Subject        string           `json:"subject"`
	Profile        CustomerProfile  `json:"profile"`
	Role           Role             `json:"role"`
	Confidence     int              `json:"confidence"`
	Escalation     EscalationSignal `json:"escalation"`
	Messages       []Message        `json:"messages"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

const genericSubject = "Support chat with website visitor"

// SummarySubject derives the ticket subject from the customer's name.
func SummarySubject(p CustomerProfile) string {
	if p.Name == "" {
		return genericSubject
	}
	if p.IssueType != "" {
		return fmt.Sprintf("Support chat with %s (%s)", p.Name, p.IssueType)
	}
	return "Support chat with " + p.Name
}

// BuildSummary captures the session's current state with its last n messages.
func BuildSummary(s *Session, n int, signal EscalationSignal, now time.Time) Summary {
	return Summary{
		ConversationID: s.ID,
		Subject:        SummarySubject(s.Profile),
		Profile:        s.Profile,
		Role:           s.Role,
		Confidence:     Confidence(s.Profile),
		Escalation:     signal,
		Messages:       s.LastMessages(n),
		UpdatedAt:      now,
	}
}

// Text renders the summary as a plain-text ticket note.
func (s Summary) Text() string {
	var sb strings.Builder
	sb.WriteString(s.Subject)
	sb.WriteString("\n\n")
	field := func(label, value string) {
		if value != "" {
			sb.WriteString(fmt.Sprintf("%s: %s\n", label, value))
		}
	}
	field("Role", string(s.Role))
	field("Name", s.Profile.Name)
	field("Email", s.Profile.Email)
	field("Phone", s.Profile.Phone)
	field("Location", s.Profile.Location)
	field("Issue", string(s.Profile.IssueType))
	field("Booking reference", s.Profile.BookingReference)
	field("Urgency", string(s.Profile.Urgency))
	field("Preferred contact", string(s.Profile.PreferredContact))
	sb.WriteString(fmt.Sprintf("Profile confidence: %d%%\n", s.Confidence))
	if s.Escalation.ShouldEscalate {
		sb.WriteString(fmt.Sprintf("Escalated: %s (%s priority)\n", s.Escalation.Reason, s.Escalation.Priority()))
	}
	if len(s.Messages) > 0 {
		sb.WriteString("\n--- Recent messages ---\n")
		for _, m := range s.Messages {
			sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", m.Timestamp.UTC().Format(time.RFC3339), m.Speaker, m.Text))
		}
	}
	return sb.String()
}

// guardedGateway is the only place that calls the ticket store. Each call gets
// its own timeout; failures are logged and mapped to the safe default.
type guardedGateway struct {
	inner   TicketGateway
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.IntakeMetrics
}

func (g *guardedGateway) call(ctx context.Context, op, conversationID string, fn func(context.Context) error) error {
	ctx, span := gatewayTracer.Start(ctx, "intake.gateway."+op)
	defer span.End()
	span.SetAttributes(attribute.String("conversation.id", conversationID))

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		g.metrics.ObserveGatewayFailure(op)
		g.logger.Warn("ticket gateway call failed",
			"operation", op,
			"conversation_id", conversationID,
			"error", err,
		)
	}
	return err
}

// resolveRole returns the role and whether it should be cached. Anonymous
// identifiers are customers without a lookup; failures yield RoleUnknown and
// are retried on the next turn.
func (g *guardedGateway) resolveRole(ctx context.Context, conversationID string) (Role, bool) {
	if IsAnonymous(conversationID) {
		return RoleCustomer, true
	}
	if g == nil || g.inner == nil {
		return RoleUnknown, true
	}
	role := RoleUnknown
	err := g.call(ctx, "resolve_role", conversationID, func(ctx context.Context) error {
		r, err := g.inner.ResolveRole(ctx, conversationID)
		if err != nil {
			return err
		}
		role = r
		return nil
	})
	if err != nil {
		return RoleUnknown, false
	}
	switch role {
	case RoleCustomer, RolePropertyOwner:
		return role, true
	default:
		return RoleUnknown, true
	}
}

// operatorJoined defaults to false when the store cannot be reached. Guest
// conversations are asked too: an operator can pick up a widget chat.
func (g *guardedGateway) operatorJoined(ctx context.Context, conversationID string) bool {
	if g == nil || g.inner == nil {
		return false
	}
	joined := false
	_ = g.call(ctx, "operator_joined", conversationID, func(ctx context.Context) error {
		j, err := g.inner.IsOperatorJoined(ctx, conversationID)
		if err != nil {
			return err
		}
		joined = j
		return nil
	})
	return joined
}

// persist writes the summary; anonymous conversations have no ticket.
func (g *guardedGateway) persist(ctx context.Context, summary Summary) {
	if g == nil || g.inner == nil || IsAnonymous(summary.ConversationID) {
		return
	}
	_ = g.call(ctx, "persist_summary", summary.ConversationID, func(ctx context.Context) error {
		return g.inner.PersistSummary(ctx, summary)
	})
}
