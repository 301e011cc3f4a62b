package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/reparoja/reparoja-ai-platform/internal/conversation"
	"github.com/reparoja/reparoja-ai-platform/pkg/logging"
)

type messageProcessor interface {
	ProcessMessage(ctx context.Context, req conversation.MessageRequest) (*conversation.Response, error)
}

type historyReader interface {
	GetHistory(ctx context.Context, sessionKey string) ([]conversation.Message, error)
}

// MessageHandler exposes the conversation engine over plain JSON, used by the
// web chat widget and by internal tooling.
type MessageHandler struct {
	processor messageProcessor
	history   historyReader
	logger    *logging.Logger
}

// NewMessageHandler creates the JSON conversation handler.
func NewMessageHandler(processor messageProcessor, history historyReader, logger *logging.Logger) *MessageHandler {
	if processor == nil {
		panic("handlers: processor cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MessageHandler{processor: processor, history: history, logger: logger}
}

type messageRequest struct {
	Channel string `json:"channel"`
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	Message string `json:"message"`
}

// HandleMessage handles POST /conversations/message.
func (h *MessageHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "from and message are required", http.StatusBadRequest)
		return
	}

	resp, err := h.processor.ProcessMessage(r.Context(), conversation.MessageRequest{
		Channel: conversation.Channel(req.Channel),
		From:    req.From,
		To:      req.To,
		Message: req.Message,
	})
	if err != nil {
		h.logger.Error("conversation turn failed", "error", err, "from", req.From)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleHistory handles GET /conversations/history?session_key=...
func (h *MessageHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionKey := r.URL.Query().Get("session_key")
	if sessionKey == "" {
		http.Error(w, "session_key parameter required", http.StatusBadRequest)
		return
	}
	if h.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"messages": []conversation.Message{}})
		return
	}

	msgs, err := h.history.GetHistory(r.Context(), sessionKey)
	if err != nil {
		h.logger.Error("failed to load history", "error", err, "session_key", sessionKey)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []conversation.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
