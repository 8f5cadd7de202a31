package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aqualeads/crm-platform/pkg/logging"
)

// Handler exposes the conversation engine over HTTP.
type Handler struct {
	engine *Engine
	logger *logging.Logger
}

// NewHandler creates a chat handler.
func NewHandler(engine *Engine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// StartSession handles POST /chatbot/sessions.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	req := StartRequest{
		UserAgent: r.UserAgent(),
		IPAddress: r.RemoteAddr,
	}
	if r.Body != nil && r.ContentLength != 0 {
		var body StartRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if body.UserAgent != "" {
			req.UserAgent = body.UserAgent
		}
		if body.IPAddress != "" {
			req.IPAddress = body.IPAddress
		}
	}

	result, err := h.engine.StartSession(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, err, "failed to start session")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(result)
}

// messageRequest is the body for POST /chatbot/sessions/{sessionID}/messages.
type messageRequest struct {
	Message  string `json:"message"`
	OptionID string `json:"option_id,omitempty"`
}

// ProcessMessage handles POST /chatbot/sessions/{sessionID}/messages.
func (h *Handler) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	result, err := h.engine.ProcessMessage(r.Context(), sessionID, req.Message, req.OptionID)
	if err != nil {
		h.writeEngineError(w, err, "failed to process message")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// SessionHistory handles GET /chatbot/sessions/{sessionID}/history.
func (h *Handler) SessionHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	history, err := h.engine.SessionHistory(r.Context(), sessionID)
	if err != nil {
		h.writeEngineError(w, err, "failed to load history")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(history)
}

// EndSession handles POST /chatbot/sessions/{sessionID}/end.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	if err := h.engine.EndSession(r.Context(), sessionID); err != nil {
		h.writeEngineError(w, err, "failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, ErrSessionInactive):
		http.Error(w, "this chat has ended, please start a new session", http.StatusGone)
	case errors.Is(err, ErrConfigMissing):
		h.logger.Error(logMsg, "error", err)
		http.Error(w, "chatbot is not configured", http.StatusServiceUnavailable)
	default:
		h.logger.Error(logMsg, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
