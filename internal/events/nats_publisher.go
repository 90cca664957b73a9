package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/staydesk-support/internal/intake"
	"github.com/wolfman30/staydesk-support/pkg/logging"
)

// DefaultEscalationSubject is the base subject; envelopes go to
// "<base>.<priority>".
const DefaultEscalationSubject = "support.intake.escalation"

// Headers set on every escalation message.
const (
	HeaderConversation = "Staydesk-Conversation"
	HeaderPriority     = "Staydesk-Priority"
)

var tracer = otel.Tracer("staydesk/events")

// publisher is the subset of *nats.Conn used for publishing.
type publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSPublisher announces escalations on a NATS subject.
type NATSPublisher struct {
	conn    publisher
	nc      *nats.Conn
	subject string
	logger  *logging.Logger
}

var _ intake.EscalationNotifier = (*NATSPublisher)(nil)

// NewNATSPublisher connects to NATS. The connection retries in the background,
// so a broker that is down at startup does not fail the service.
func NewNATSPublisher(url, token, subject string, logger *logging.Logger) (*NATSPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("events: nats url required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	opts := []nats.Option{
		nats.Name("staydesk-intake"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: nats connect: %w", err)
	}
	p := newPublisher(nc, subject, logger)
	p.nc = nc
	return p, nil
}

func newPublisher(conn publisher, subject string, logger *logging.Logger) *NATSPublisher {
	if strings.TrimSpace(subject) == "" {
		subject = DefaultEscalationSubject
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}
}

// NotifyEscalation publishes an EscalationRaisedV1 envelope under the
// priority subject. The event id doubles as the JetStream dedupe id.
func (p *NATSPublisher) NotifyEscalation(ctx context.Context, notice intake.EscalationNotice) error {
	_, span := tracer.Start(ctx, "events.publish_escalation")
	defer span.End()

	env, err := NewEnvelope(EscalationFromNotice(notice))
	if err != nil {
		return err
	}
	subject := env.Subject(p.subject)
	span.SetAttributes(
		attribute.String("conversation.id", env.ConversationID),
		attribute.String("escalation.reason", env.Reason),
		attribute.String("escalation.priority", env.Priority),
		attribute.String("messaging.destination", subject),
	)
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, env.EventID.String())
	msg.Header.Set(HeaderConversation, env.ConversationID)
	msg.Header.Set(HeaderPriority, env.Priority)
	if err := p.conn.PublishMsg(msg); err != nil {
		span.RecordError(err)
		return fmt.Errorf("events: publish %s: %w", subject, err)
	}
	p.logger.Debug("escalation published",
		"conversation_id", env.ConversationID,
		"event_id", env.EventID.String(),
		"subject", subject,
	)
	return nil
}

// Close drains pending publishes and closes the connection.
func (p *NATSPublisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("nats drain failed", "error", err)
		p.nc.Close()
	}
}
