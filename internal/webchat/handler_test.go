package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/staydesk-support/internal/intake"
	"github.com/wolfman30/staydesk-support/pkg/logging"
)

type stubTranscript struct {
	store map[string][]intake.Message
}

func (s *stubTranscript) List(_ context.Context, convID string, _ int64) ([]intake.Message, error) {
	return s.store[convID], nil
}

type failingTurns struct{}

func (failingTurns) HandleTurn(context.Context, string, string) (*intake.TurnResult, error) {
	return nil, errors.New("boom")
}

func (failingTurns) GetHistory(context.Context, string) ([]intake.Message, error) {
	return nil, intake.ErrConversationNotFound
}

func newTestHandler(transcript intake.TranscriptReader) (*Handler, *intake.Engine) {
	engine := intake.NewEngine(intake.WithLogger(logging.Discard()))
	return NewHandler(engine, transcript, logging.Discard()), engine
}

func TestConversationIDIsAnonymous(t *testing.T) {
	id := ConversationID("abc12345")
	assert.Equal(t, "guest-abc12345", id)
	assert.True(t, intake.IsAnonymous(id))
	assert.NoError(t, intake.ValidateConversationID(ConversationID(generateSessionID())))
}

func TestGenerateSessionID(t *testing.T) {
	s1 := generateSessionID()
	s2 := generateSessionID()
	assert.NotEqual(t, s1, s2)
	assert.Len(t, s1, 32) // 16 bytes = 32 hex chars
	assert.Equal(t, "abcdef12", sessionOrNew(" abcdef12 "))
	assert.Len(t, sessionOrNew("../etc/passwd"), 32)
}

func TestHandleMessage_HTTP(t *testing.T) {
	h, engine := newTestHandler(nil)

	body := `{"session_id":"sess0001","text":"Hi, I'm Priya"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp OutboundMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "message", resp.Type)
	assert.Equal(t, "sess0001", resp.SessionID)
	assert.Contains(t, resp.Text, "Priya")

	profile, err := engine.GetProfile(context.Background(), "guest-sess0001")
	require.NoError(t, err)
	assert.Equal(t, "Priya", profile.Name)
}

type operatorDesk struct {
	joined map[string]bool
}

func (d operatorDesk) ResolveRole(context.Context, string) (intake.Role, error) {
	return intake.RoleCustomer, nil
}

func (d operatorDesk) IsOperatorJoined(_ context.Context, id string) (bool, error) {
	return d.joined[id], nil
}

func (d operatorDesk) PersistSummary(context.Context, intake.Summary) error { return nil }

func TestHandleMessage_OperatorHandoff(t *testing.T) {
	desk := operatorDesk{joined: map[string]bool{"guest-sess0002": true}}
	engine := intake.NewEngine(intake.WithLogger(logging.Discard()), intake.WithGateway(desk, time.Second))
	h := NewHandler(engine, nil, logging.Discard())

	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"session_id":"sess0002","text":"hello?"}`))
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp OutboundMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "handoff", resp.Type)
	assert.Empty(t, resp.Text)
	assert.Equal(t, "sess0002", resp.SessionID)
}

func TestHandleMessage_Validation(t *testing.T) {
	h, _ := newTestHandler(nil)

	for _, body := range []string{`{"text":"  "}`, `not json`} {
		w := httptest.NewRecorder()
		h.HandleMessage(w, httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestHandleMessage_GeneratesSessionID(t *testing.T) {
	h, _ := newTestHandler(nil)

	w := httptest.NewRecorder()
	h.HandleMessage(w, httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"text":"Hi"}`)))
	require.Equal(t, http.StatusOK, w.Code)

	var resp OutboundMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.SessionID, 32)
}

func TestHandleMessage_TurnFailure(t *testing.T) {
	h := NewHandler(failingTurns{}, nil, logging.Discard())

	w := httptest.NewRecorder()
	h.HandleMessage(w, httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"session_id":"sess0001","text":"Hi"}`)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleHistory(t *testing.T) {
	h, engine := newTestHandler(nil)
	_, err := engine.HandleTurn(context.Background(), "guest-sess0001", "hello")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/chat/history?session=sess0001", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "user", resp.Messages[0].Role)
	assert.Equal(t, "hello", resp.Messages[0].Text)
	assert.Equal(t, "assistant", resp.Messages[1].Role)
}

func TestHandleHistory_FallsBackToTranscript(t *testing.T) {
	ts := &stubTranscript{store: map[string][]intake.Message{
		"guest-sess0002": {
			{Speaker: intake.SpeakerUser, Text: "Hello"},
			{Speaker: intake.SpeakerSystem, Text: "Hi there!"},
		},
	}}
	h, _ := newTestHandler(ts)

	w := httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/chat/history?session=sess0002", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "Hi there!", resp.Messages[1].Text)
}

func TestHandleHistory_MissingOrEmpty(t *testing.T) {
	h, _ := newTestHandler(nil)

	w := httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/chat/history", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/chat/history?session=unknown01", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())
}

func TestWebSocketConversation(t *testing.T) {
	h, _ := newTestHandler(nil)
	r := chi.NewRouter()
	r.Route("/chat", h.Routes)
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws?session=sess0003"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "session", msg.Type)
	assert.Equal(t, "sess0003", msg.SessionID)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "pong", msg.Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "this is urgent, my payment failed"}))
	msg = OutboundMessage{}
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "typing", msg.Type)
	msg = OutboundMessage{}
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "message", msg.Type)
	assert.Equal(t, "assistant", msg.Role)
	assert.True(t, msg.Escalated)
	assert.NotEmpty(t, msg.Text)
}

func TestWebSocketSendsHistoryOnReconnect(t *testing.T) {
	h, engine := newTestHandler(nil)
	_, err := engine.HandleTurn(context.Background(), "guest-sess0004", "hello")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/?session=sess0004", "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "session", msg.Type)
	msg = OutboundMessage{}
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "history", msg.Type)
	assert.Len(t, msg.Messages, 2)
}
