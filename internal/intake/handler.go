package intake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/staydesk-support/pkg/logging"
)

// Service is the engine surface the HTTP handler needs.
type Service interface {
	HandleTurn(ctx context.Context, conversationID, utterance string) (*TurnResult, error)
	GetProfile(ctx context.Context, conversationID string) (CustomerProfile, error)
	GetHistory(ctx context.Context, conversationID string) ([]Message, error)
	ResetConversation(ctx context.Context, conversationID string) error
}

// TranscriptReader serves history for conversations no longer held in memory.
type TranscriptReader interface {
	List(ctx context.Context, conversationID string, limit int64) ([]Message, error)
}

// Handler wires HTTP requests to the intake engine.
type Handler struct {
	service    Service
	transcript TranscriptReader
	logger     *logging.Logger
}

// NewHandler creates an intake handler. transcript may be nil.
func NewHandler(service Service, transcript TranscriptReader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:    service,
		transcript: transcript,
		logger:     logger,
	}
}

// Routes mounts the conversation endpoints. turnMiddleware wraps only the
// turn endpoint, e.g. a per-conversation rate limit.
func (h *Handler) Routes(r chi.Router, turnMiddleware ...func(http.Handler) http.Handler) {
	r.With(turnMiddleware...).Post("/conversations/{conversationID}/turns", h.Turn)
	r.Get("/conversations/{conversationID}/profile", h.Profile)
	r.Get("/conversations/{conversationID}/history", h.History)
	r.Delete("/conversations/{conversationID}", h.Reset)
}

// TurnRequest is the body of POST /conversations/{id}/turns.
type TurnRequest struct {
	Message string `json:"message"`
}

// Turn handles POST /conversations/{conversationID}/turns.
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode turn request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.HandleTurn(r.Context(), chi.URLParam(r, "conversationID"), req.Message)
	if err != nil {
		h.writeError(w, err, "Failed to process message")
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Profile handles GET /conversations/{conversationID}/profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	profile, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "Failed to load profile")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": id,
		"profile":         profile,
		"confidence":      Confidence(profile),
	})
}

// History handles GET /conversations/{conversationID}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	messages, err := h.service.GetHistory(r.Context(), id)
	source := "session"
	if errors.Is(err, ErrConversationNotFound) && h.transcript != nil {
		mirrored, lerr := h.transcript.List(r.Context(), id, 0)
		if lerr != nil {
			h.logger.Warn("failed to read transcript mirror", "conversation_id", id, "error", lerr)
		} else if len(mirrored) > 0 {
			messages, err, source = mirrored, nil, "transcript"
		}
	}
	if err != nil {
		h.writeError(w, err, "Failed to load history")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": id,
		"source":          source,
		"messages":        messages,
	})
}

// Reset handles DELETE /conversations/{conversationID}.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetConversation(r.Context(), chi.URLParam(r, "conversationID")); err != nil {
		h.writeError(w, err, "Failed to reset conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidConversationID):
		http.Error(w, "Invalid conversation id", http.StatusBadRequest)
	case errors.Is(err, ErrEmptyUtterance):
		http.Error(w, "Message is required", http.StatusBadRequest)
	case errors.Is(err, ErrConversationNotFound):
		http.Error(w, "Conversation not found", http.StatusNotFound)
	default:
		h.logger.Error(fallback, "error", err)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
