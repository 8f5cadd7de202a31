// Package webchat serves the embeddable chat widget: the widget script and a
// WebSocket bridge into the conversation engine.
package webchat

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/aqualeads/crm-platform/internal/chat"
	"github.com/aqualeads/crm-platform/internal/flow"
	"github.com/aqualeads/crm-platform/pkg/logging"
)

//go:embed widget.js
var widgetJS []byte

// Conversation is the slice of the engine the widget needs.
type Conversation interface {
	StartSession(ctx context.Context, req chat.StartRequest) (*chat.StartResult, error)
	ProcessMessage(ctx context.Context, sessionID, message, optionID string) (*chat.TurnResult, error)
	SessionHistory(ctx context.Context, sessionID string) (*chat.History, error)
}

// Handler manages widget connections and relays messages to the engine.
type Handler struct {
	engine Conversation
	logger *logging.Logger

	mu    sync.RWMutex
	conns map[string]*wsConn // sessionID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type     string `json:"type"` // "message", "ping"
	Text     string `json:"text"`
	OptionID string `json:"option_id,omitempty"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "session", "history", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"` // "bot" or "user"
	SessionID string           `json:"session_id,omitempty"`
	Options   []flow.Option    `json:"options,omitempty"`
	IsError   bool             `json:"is_error,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a widget handler over the conversation engine.
func NewHandler(engine Conversation, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine: engine,
		logger: logger,
		conns:  make(map[string]*wsConn),
	}
}

// HandleWebSocket upgrades to WebSocket and runs the conversation loop.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()

	sessionID := r.URL.Query().Get("session")
	if sessionID != "" {
		if !h.resumeSession(ctx, conn, sessionID) {
			sessionID = ""
		}
	}
	if sessionID == "" {
		started, err := h.startSession(ctx, conn, r)
		if err != nil {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "could not start a chat session"})
			return
		}
		sessionID = started
	}

	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	h.conns[sessionID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.conns[sessionID] == wsc {
			delete(h.conns, sessionID)
		}
		h.mu.Unlock()
		close(wsc.done)
	}()

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		h.processMessage(ctx, sessionID, msg)
	}
}

// startSession opens a new conversation and pushes the welcome turn.
func (h *Handler) startSession(ctx context.Context, conn *websocket.Conn, r *http.Request) (string, error) {
	result, err := h.engine.StartSession(ctx, chat.StartRequest{
		UserAgent: r.UserAgent(),
		IPAddress: r.RemoteAddr,
	})
	if err != nil {
		h.logger.Error("webchat: start session failed", "error", err)
		return "", err
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: result.Session.ID})
	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "message",
		Role:      chat.SenderBot,
		Text:      result.Message,
		Options:   result.Options,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return result.Session.ID, nil
}

// resumeSession replays the transcript of an existing session. It reports
// whether the session was found.
func (h *Handler) resumeSession(ctx context.Context, conn *websocket.Conn, sessionID string) bool {
	history, err := h.engine.SessionHistory(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, chat.ErrSessionNotFound) {
			h.logger.Error("webchat: resume failed", "error", err, "session_id", sessionID)
		}
		return false
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
	if len(history.Messages) > 0 {
		msgs := make([]HistoryMessage, 0, len(history.Messages))
		for _, m := range history.Messages {
			msgs = append(msgs, HistoryMessage{
				Role:      m.Sender,
				Text:      m.Content,
				Timestamp: m.CreatedAt.Format(time.RFC3339),
			})
		}
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: msgs})
	}
	return true
}

func (h *Handler) processMessage(ctx context.Context, sessionID string, msg InboundMessage) {
	h.SendToSession(sessionID, OutboundMessage{Type: "typing"})

	result, err := h.engine.ProcessMessage(ctx, sessionID, msg.Text, msg.OptionID)
	if err != nil {
		h.logger.Error("webchat: turn failed", "error", err, "session_id", sessionID)
		text := "Algo deu errado. Tente novamente em instantes."
		if errors.Is(err, chat.ErrSessionInactive) {
			text = "Esta conversa foi encerrada. Recarregue a página para começar de novo."
		}
		h.SendToSession(sessionID, OutboundMessage{Type: "error", Text: text})
		return
	}

	h.SendToSession(sessionID, OutboundMessage{
		Type:      "message",
		Role:      chat.SenderBot,
		Text:      result.Message,
		Options:   result.Options,
		IsError:   result.IsError,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendToSession pushes a message to an active widget connection, if any.
func (h *Handler) SendToSession(sessionID string, msg OutboundMessage) {
	h.mu.RLock()
	wsc, ok := h.conns[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	_ = websocket.JSON.Send(wsc.conn, msg)
}

// HandleMessage is the HTTP fallback for widgets without WebSocket support.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
		OptionID  string `json:"option_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || strings.TrimSpace(req.Text) == "" {
		http.Error(w, "session_id and text are required", http.StatusBadRequest)
		return
	}

	result, err := h.engine.ProcessMessage(r.Context(), req.SessionID, req.Text, req.OptionID)
	if err != nil {
		h.logger.Error("webchat: http turn failed", "error", err, "session_id", req.SessionID)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(OutboundMessage{
		Type:      "message",
		Role:      chat.SenderBot,
		Text:      result.Message,
		Options:   result.Options,
		IsError:   result.IsError,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(widgetJS)
}
