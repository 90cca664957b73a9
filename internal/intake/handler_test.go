package intake

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/staydesk-support/pkg/logging"
)

type stubTranscriptReader struct {
	messages map[string][]Message
}

func (s stubTranscriptReader) List(_ context.Context, id string, _ int64) ([]Message, error) {
	return s.messages[id], nil
}

func newTestRouter(e *Engine, transcript TranscriptReader) http.Handler {
	r := chi.NewRouter()
	NewHandler(e, transcript, logging.Discard()).Routes(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerTurn(t *testing.T) {
	h := newTestRouter(newTestEngine(), nil)

	rec := doRequest(t, h, http.MethodPost, "/conversations/guest-1/turns", `{"message":"Hi, I'm Priya"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "guest-1", res.ConversationID)
	assert.Equal(t, "Priya", res.Profile.Name)
	assert.Equal(t, StateCollectEmail, res.State)
	assert.NotEmpty(t, res.Reply)
}

func TestHandlerTurnErrors(t *testing.T) {
	h := newTestRouter(newTestEngine(), nil)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"bad json", "/conversations/guest-1/turns", `{`, http.StatusBadRequest},
		{"empty message", "/conversations/guest-1/turns", `{"message":"  "}`, http.StatusBadRequest},
		{"invalid id", "/conversations/-bad/turns", `{"message":"hi"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandlerProfileHistoryReset(t *testing.T) {
	e := newTestEngine()
	h := newTestRouter(e, nil)

	rec := doRequest(t, h, http.MethodGet, "/conversations/guest-1/profile", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := e.HandleTurn(context.Background(), "guest-1", "my name is Alice")
	require.NoError(t, err)

	rec = doRequest(t, h, http.MethodGet, "/conversations/guest-1/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var profile struct {
		Profile    CustomerProfile `json:"profile"`
		Confidence int             `json:"confidence"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "Alice", profile.Profile.Name)
	assert.Equal(t, 20, profile.Confidence)

	rec = doRequest(t, h, http.MethodGet, "/conversations/guest-1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Source   string    `json:"source"`
		Messages []Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, "session", history.Source)
	assert.Len(t, history.Messages, 2)

	rec = doRequest(t, h, http.MethodDelete, "/conversations/guest-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodDelete, "/conversations/guest-2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerHistoryFallsBackToTranscript(t *testing.T) {
	reader := stubTranscriptReader{messages: map[string][]Message{
		"guest-evicted": {{ID: "m1", Speaker: SpeakerUser, Text: "hi"}},
	}}
	h := newTestRouter(newTestEngine(), reader)

	rec := doRequest(t, h, http.MethodGet, "/conversations/guest-evicted/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source":"transcript"`)

	rec = doRequest(t, h, http.MethodGet, "/conversations/guest-unknown/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
