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

var engineTracer = otel.Tracer("staydesk/intake")

const (
	defaultSummaryMessages = 10
	defaultGatewayTimeout  = 2 * time.Second

	apologyReply = "I'm having trouble processing your request right now, but I'm still here to help. " +
		"Could you try saying that another way?"
)

// TranscriptStore mirrors the message log outside the process.
type TranscriptStore interface {
	Append(ctx context.Context, conversationID string, msgs ...Message) error
	Delete(ctx context.Context, conversationID string) error
}

// Engine runs turns for many conversations. All mutable state lives in the
// session registry, keyed by conversation identifier.
type Engine struct {
	sessions     *Registry
	gateway      *guardedGateway
	transcript   TranscriptStore
	notifier     EscalationNotifier
	metrics      *metrics.IntakeMetrics
	logger       *logging.Logger
	summaryCount int
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithGateway wires the ticket store. timeout bounds each individual call.
func WithGateway(gw TicketGateway, timeout time.Duration) Option {
	return func(e *Engine) {
		e.gateway.inner = gw
		if timeout > 0 {
			e.gateway.timeout = timeout
		}
	}
}

// WithTranscriptStore mirrors every turn to an external transcript.
func WithTranscriptStore(store TranscriptStore) Option {
	return func(e *Engine) { e.transcript = store }
}

// WithNotifier announces new escalations.
func WithNotifier(n EscalationNotifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *metrics.IntakeMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
		e.gateway.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
			e.gateway.logger = l
		}
	}
}

// WithSummaryMessageCount sets how many trailing messages go into the ticket summary.
func WithSummaryMessageCount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.summaryCount = n
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
		e.sessions.now = now
	}
}

// NewEngine builds an engine. Without a gateway every non-anonymous
// conversation has an unknown role and nothing is persisted.
func NewEngine(opts ...Option) *Engine {
	logger := logging.Default()
	e := &Engine{
		sessions:     NewRegistry(),
		gateway:      &guardedGateway{timeout: defaultGatewayTimeout, logger: logger},
		logger:       logger,
		summaryCount: defaultSummaryMessages,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// turnOutcome is the pure part of a turn: everything but I/O.
type turnOutcome struct {
	reply         Reply
	text          string
	signal        EscalationSignal
	turn          int
	newEscalation bool
	user, system  Message
}

// HandleTurn processes one user utterance for a conversation and returns the
// next reply. Turns for the same identifier are strictly sequential.
func (e *Engine) HandleTurn(ctx context.Context, conversationID, utterance string) (*TurnResult, error) {
	if err := ValidateConversationID(conversationID); err != nil {
		return nil, err
	}
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, ErrEmptyUtterance
	}

	ctx, span := engineTracer.Start(ctx, "intake.handle_turn")
	defer span.End()
	span.SetAttributes(attribute.String("conversation.id", conversationID))
	start := time.Now()

	session, release := e.sessions.Acquire(conversationID)
	defer release()
	e.metrics.SetActiveSessions(e.sessions.Len())
	log := e.logger.ForConversation(conversationID)

	if e.gateway.operatorJoined(ctx, conversationID) {
		session.OperatorJoined = true
		e.metrics.ObserveSilentTurn()
		span.SetAttributes(attribute.Bool("intake.silent", true))
		log.Info("operator owns conversation; staying silent")
		return &TurnResult{
			ConversationID: conversationID,
			Silent:         true,
			Profile:        session.Profile,
			Confidence:     Confidence(session.Profile),
			Escalation:     Evaluate(session.Profile, session.UserTurns(), true),
			Role:           session.Role,
			Turn:           session.UserTurns(),
		}, nil
	}
	session.OperatorJoined = false

	if !session.RoleResolved {
		role, cache := e.gateway.resolveRole(ctx, conversationID)
		session.Role = role
		session.RoleResolved = cache
	}

	out := e.advance(session, utterance, log)

	e.mirror(ctx, conversationID, out, log)
	if out.newEscalation {
		e.announce(ctx, session, out, log)
	}
	e.gateway.persist(ctx, BuildSummary(session, e.summaryCount, out.signal, e.now()))

	e.metrics.ObserveTurn(string(out.reply.State), time.Since(start).Seconds())
	span.SetAttributes(
		attribute.String("intake.state", string(out.reply.State)),
		attribute.Int("intake.turn", out.turn),
		attribute.Bool("intake.escalate", out.signal.ShouldEscalate),
	)
	log.Debug("turn handled",
		"state", out.reply.State,
		"turn", out.turn,
		"utterance_len", len(utterance),
		"confidence", Confidence(session.Profile),
	)

	return &TurnResult{
		ConversationID:   conversationID,
		Reply:            out.text,
		Profile:          session.Profile,
		Confidence:       Confidence(session.Profile),
		Escalation:       out.signal,
		SuggestedActions: out.reply.Actions,
		State:            out.reply.State,
		Role:             session.Role,
		Turn:             out.turn,
	}, nil
}

// advance runs extract, merge, evaluate and reply, then appends the two
// messages. It performs no I/O, which is what makes Replay possible.
func (e *Engine) advance(s *Session, utterance string, log *logging.Logger) turnOutcome {
	partial := ExtractFor(utterance, s.Profile)
	s.Profile = Merge(s.Profile, partial)
	turn := s.UserTurns() + 1
	signal := Evaluate(s.Profile, turn, false)

	in := TurnInput{
		Utterance:  utterance,
		Partial:    partial,
		Profile:    s.Profile,
		Role:       s.Role,
		Turn:       turn,
		LastSystem: s.LastSystemMessage(),
	}
	reply, err := safeRespond(in)
	out := turnOutcome{reply: reply, text: reply.Text, signal: signal, turn: turn}
	if err != nil {
		log.Error("dialogue policy failed", "error", err, "turn", turn)
		out.signal = EscalationSignal{}
	} else if signal.ShouldEscalate && s.markEscalated(signal.Reason) {
		out.newEscalation = true
		out.text += " " + handoffNotice(signal.Reason)
	}
	out.user, out.system = s.appendTurn(utterance, out.text, e.now())
	return out
}

func safeRespond(in TurnInput) (r Reply, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("intake: policy panic: %v", rec)
			r = Reply{State: StateFallback, Text: apologyReply}
		}
	}()
	return Respond(in), nil
}

func handoffNotice(reason EscalationReason) string {
	switch reason {
	case ReasonHighUrgency:
		return "Since this is urgent, I'm bringing in a member of our support team who will join this chat shortly."
	case ReasonUnresolvedComplexCase:
		return "I've passed your booking to our support specialists so it gets resolved properly. Someone will join this chat shortly."
	default:
		return "I've also asked a member of our support team to join this chat so we can get this resolved faster."
	}
}

func (e *Engine) mirror(ctx context.Context, conversationID string, out turnOutcome, log *logging.Logger) {
	if e.transcript == nil {
		return
	}
	if err := e.transcript.Append(ctx, conversationID, out.user, out.system); err != nil {
		log.Warn("failed to mirror transcript", "error", err)
	}
}

func (e *Engine) announce(ctx context.Context, s *Session, out turnOutcome, log *logging.Logger) {
	e.metrics.ObserveEscalation(string(out.signal.Reason))
	log.Info("conversation escalated",
		"reason", out.signal.Reason,
		"priority", out.signal.Priority(),
		"turn", out.turn,
		"role", s.Role,
	)
	if e.notifier == nil {
		return
	}
	notice := EscalationNotice{
		ConversationID: s.ID,
		Reason:         out.signal.Reason,
		Priority:       out.signal.Priority(),
		Role:           s.Role,
		Subject:        SummarySubject(s.Profile),
		Profile:        s.Profile,
		Turn:           out.turn,
		At:             e.now(),
	}
	if err := e.notifier.NotifyEscalation(ctx, notice); err != nil {
		log.Warn("failed to publish escalation", "error", err, "reason", out.signal.Reason)
	}
}

// GetProfile returns the accumulated profile for a conversation.
func (e *Engine) GetProfile(ctx context.Context, conversationID string) (CustomerProfile, error) {
	if err := ValidateConversationID(conversationID); err != nil {
		return CustomerProfile{}, err
	}
	session, release, ok := e.sessions.Lookup(conversationID)
	if !ok {
		return CustomerProfile{}, ErrConversationNotFound
	}
	defer release()
	return session.Profile, nil
}

// GetHistory returns a copy of the conversation's message log.
func (e *Engine) GetHistory(ctx context.Context, conversationID string) ([]Message, error) {
	if err := ValidateConversationID(conversationID); err != nil {
		return nil, err
	}
	session, release, ok := e.sessions.Lookup(conversationID)
	if !ok {
		return nil, ErrConversationNotFound
	}
	defer release()
	return session.History(), nil
}

// ResetConversation clears the profile and message log of one conversation.
// Other conversations are untouched.
func (e *Engine) ResetConversation(ctx context.Context, conversationID string) error {
	if err := ValidateConversationID(conversationID); err != nil {
		return err
	}
	session, release, ok := e.sessions.Lookup(conversationID)
	if !ok {
		return ErrConversationNotFound
	}
	defer release()
	session.reset(e.now())
	if e.transcript != nil {
		if err := e.transcript.Delete(ctx, conversationID); err != nil {
			e.logger.Warn("failed to clear transcript mirror", "conversation_id", conversationID, "error", err)
		}
	}
	return nil
}

// Replay runs utterances through a fresh, unregistered session with a fixed
// role and no ticket store, returning the resulting profile and log.
func (e *Engine) Replay(conversationID string, role Role, utterances []string) (CustomerProfile, []Message) {
	s := newSession(conversationID, e.now())
	if role != "" {
		s.Role = role
	}
	s.RoleResolved = true
	log := e.logger.ForConversation(conversationID)
	for _, u := range utterances {
		if u = strings.TrimSpace(u); u == "" {
			continue
		}
		e.advance(s, u, log)
	}
	return s.Profile, s.History()
}

// EvictIdle drops sessions idle for longer than idle and returns how many went.
func (e *Engine) EvictIdle(idle time.Duration) int {
	n := e.sessions.Evict(idle)
	e.metrics.SetActiveSessions(e.sessions.Len())
	return n
}

// ActiveSessions reports how many conversations are held in memory.
func (e *Engine) ActiveSessions() int {
	return e.sessions.Len()
}

// UserUtterances extracts the user side of a message log, in order.
func UserUtterances(history []Message) []string {
	var out []string
	for _, m := range history {
		if m.Speaker == SpeakerUser {
			out = append(out, m.Text)
		}
	}
	return out
}
