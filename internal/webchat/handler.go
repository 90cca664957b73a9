package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/staydesk-support/internal/intake"
	"github.com/wolfman30/staydesk-support/pkg/logging"
)

// TurnService is the engine surface the chat widget needs.
type TurnService interface {
	HandleTurn(ctx context.Context, conversationID, utterance string) (*intake.TurnResult, error)
	GetHistory(ctx context.Context, conversationID string) ([]intake.Message, error)
}

// Handler serves the embeddable chat widget over WebSocket with an HTTP
// fallback. Widget visitors are unauthenticated, so every conversation is
// anonymous.
type Handler struct {
	turns      TurnService
	transcript intake.TranscriptReader
	logger     *logging.Logger
	historyMax int64

	mu       sync.RWMutex
	sessions map[string]*wsConn // conversationID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.conn, msg)
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "session", "history", "typing", "message", "handoff", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"` // "assistant" or "user"
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Actions   []string         `json:"actions,omitempty"`
	Escalated bool             `json:"escalated,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler. transcript may be nil.
func NewHandler(turns TurnService, transcript intake.TranscriptReader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		turns:      turns,
		transcript: transcript,
		logger:     logger,
		historyMax: 50,
		sessions:   make(map[string]*wsConn),
	}
}

// Routes mounts the widget endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/ws", h.HandleWebSocket)
	r.Post("/message", h.HandleMessage)
	r.Get("/history", h.HandleHistory)
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{8,64}$`)

// ConversationID builds the canonical conversation ID for a widget session.
func ConversationID(sessionID string) string {
	return "guest-" + sessionID
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return strings.ReplaceAll(uuid.New().String(), "-", "")
	}
	return hex.EncodeToString(b)
}

// sessionOrNew keeps a well-formed client session id and replaces anything else.
func sessionOrNew(raw string) string {
	raw = strings.TrimSpace(raw)
	if sessionIDPattern.MatchString(raw) {
		return raw
	}
	return generateSessionID()
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := sessionOrNew(r.URL.Query().Get("session"))
	convID := ConversationID(sessionID)
	wsc := &wsConn{conn: conn}

	_ = wsc.send(OutboundMessage{Type: "session", SessionID: sessionID})
	if history := h.loadHistory(r.Context(), convID); len(history) > 0 {
		_ = wsc.send(OutboundMessage{Type: "history", Messages: history})
	}

	// Register connection
	h.mu.Lock()
	h.sessions[convID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[convID] == wsc {
			delete(h.sessions, convID)
		}
		h.mu.Unlock()
	}()

	h.logger.Info("webchat: connection opened", "conversation_id", convID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "conversation_id", convID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = wsc.send(OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		h.SendToSession(convID, OutboundMessage{Type: "typing"})
		h.SendToSession(convID, h.processMessage(r.Context(), convID, msg.Text))
	}
}

// processMessage runs one turn and converts the result for the widget.
func (h *Handler) processMessage(ctx context.Context, convID, text string) OutboundMessage {
	res, err := h.turns.HandleTurn(ctx, convID, text)
	if err != nil {
		h.logger.Error("webchat: turn failed", "conversation_id", convID, "error", err)
		return OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."}
	}
	if res.Silent {
		return OutboundMessage{Type: "handoff"}
	}
	return OutboundMessage{
		Type:      "message",
		Role:      "assistant",
		Text:      res.Reply,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actions:   res.SuggestedActions,
		Escalated: res.Escalation.ShouldEscalate,
	}
}

// SendToSession sends a message to an active WebSocket session.
func (h *Handler) SendToSession(convID string, msg OutboundMessage) {
	h.mu.RLock()
	wsc, ok := h.sessions[convID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := wsc.send(msg); err != nil {
		h.logger.Debug("webchat: send failed", "conversation_id", convID, "error", err)
	}
}

// HandleMessage is the HTTP fallback for sending messages.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	req.SessionID = sessionOrNew(req.SessionID)

	out := h.processMessage(r.Context(), ConversationID(req.SessionID), req.Text)
	out.SessionID = req.SessionID
	status := http.StatusOK
	if out.Type == "error" {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, out)
}

// HandleHistory returns chat history for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if !sessionIDPattern.MatchString(sessionID) {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	history := h.loadHistory(r.Context(), ConversationID(sessionID))
	if history == nil {
		history = []HistoryMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": history})
}

// loadHistory prefers the live session and falls back to the transcript mirror.
func (h *Handler) loadHistory(ctx context.Context, convID string) []HistoryMessage {
	msgs, err := h.turns.GetHistory(ctx, convID)
	if errors.Is(err, intake.ErrConversationNotFound) && h.transcript != nil {
		msgs, err = h.transcript.List(ctx, convID, h.historyMax)
	}
	if err != nil {
		if !errors.Is(err, intake.ErrConversationNotFound) {
			h.logger.Warn("webchat: failed to load history", "conversation_id", convID, "error", err)
		}
		return nil
	}
	if int64(len(msgs)) > h.historyMax {
		msgs = msgs[int64(len(msgs))-h.historyMax:]
	}
	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		role := "assistant"
		if m.Speaker == intake.SpeakerUser {
			role = "user"
		}
		history = append(history, HistoryMessage{
			Role:      role,
			Text:      m.Text,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return history
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
