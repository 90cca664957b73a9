package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/staydesk-support/internal/intake"
	"github.com/wolfman30/staydesk-support/pkg/logging"
)

var tracer = otel.Tracer("staydesk/tickets")

// Gateway adapts the ticket store to the engine's TicketGateway.
type Gateway struct {
	repo   Repository
	cache  *RoleCache
	logger *logging.Logger
}

var _ intake.TicketGateway = (*Gateway)(nil)

// NewGateway builds a gateway. cache may be nil.
func NewGateway(repo Repository, cache *RoleCache, logger *logging.Logger) *Gateway {
	if repo == nil {
		panic("tickets: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Gateway{repo: repo, cache: cache, logger: logger}
}

// ResolveRole maps the ticket requester's role. A missing ticket is an
// unknown role, not an error.
func (g *Gateway) ResolveRole(ctx context.Context, conversationID string) (intake.Role, error) {
	ctx, span := tracer.Start(ctx, "tickets.resolve_role")
	defer span.End()
	span.SetAttributes(attribute.String("ticket.id", conversationID))

	role, ok, err := g.cache.Get(ctx, conversationID)
	if err != nil {
		g.logger.Warn("role cache read failed", "conversation_id", conversationID, "error", err)
	} else if ok {
		span.SetAttributes(attribute.Bool("ticket.role_cached", true))
		return role, nil
	}

	t, err := g.repo.GetTicket(ctx, conversationID)
	if errors.Is(err, ErrTicketNotFound) {
		return intake.RoleUnknown, nil
	}
	if err != nil {
		span.RecordError(err)
		return intake.RoleUnknown, err
	}

	role = NormalizeRole(t.RequesterRole)
	if err := g.cache.Set(ctx, conversationID, role); err != nil {
		g.logger.Warn("role cache write failed", "conversation_id", conversationID, "error", err)
	}
	return role, nil
}

// IsOperatorJoined reports whether an agent has picked up the ticket.
func (g *Gateway) IsOperatorJoined(ctx context.Context, conversationID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "tickets.operator_joined")
	defer span.End()
	span.SetAttributes(attribute.String("ticket.id", conversationID))

	t, err := g.repo.GetTicket(ctx, conversationID)
	if errors.Is(err, ErrTicketNotFound) {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return t.OperatorEngaged(), nil
}

// PersistSummary writes the recap onto the ticket.
func (g *Gateway) PersistSummary(ctx context.Context, summary intake.Summary) error {
	ctx, span := tracer.Start(ctx, "tickets.persist_summary")
	defer span.End()
	span.SetAttributes(attribute.String("ticket.id", summary.ConversationID))

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("tickets: marshal summary: %w", err)
	}
	rec := SummaryRecord{
		TicketID:         summary.ConversationID,
		Subject:          summary.Subject,
		Body:             summary.Text(),
		Payload:          payload,
		Role:             string(summary.Role),
		Confidence:       summary.Confidence,
		EscalationReason: string(summary.Escalation.Reason),
		Priority:         summary.Escalation.Priority(),
		UpdatedAt:        summary.UpdatedAt.UTC(),
	}
	if err := g.repo.SaveSummary(ctx, rec); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
