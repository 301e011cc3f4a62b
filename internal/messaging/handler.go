package messaging

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/reparoja/reparoja-ai-platform/internal/conversation"
	"github.com/reparoja/reparoja-ai-platform/pkg/logging"
)

var twilioTracer = otel.Tracer("reparoja.internal.messaging.twilio")

type messageProcessor interface {
	ProcessMessage(ctx context.Context, req conversation.MessageRequest) (*conversation.Response, error)
}

// Handler receives WhatsApp webhooks from Twilio and replies inline. The
// assistant's answer goes back in the TwiML response, so no outbound send
// API is needed for the common case.
type Handler struct {
	authToken string
	processor messageProcessor
	logger    *logging.Logger
}

// NewHandler creates the WhatsApp webhook handler. An empty auth token
// disables signature validation.
func NewHandler(authToken string, processor messageProcessor, logger *logging.Logger) *Handler {
	if processor == nil {
		panic("messaging: processor cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		authToken: authToken,
		processor: processor,
		logger:    logger,
	}
}

// WhatsAppWebhook handles POST /webhooks/whatsapp requests.
func (h *Handler) WhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := twilioTracer.Start(r.Context(), "messaging.whatsapp.webhook")
	defer span.End()

	if h.authToken != "" {
		if !ValidateTwilioSignature(r, h.authToken, buildAbsoluteURL(r)) {
			h.logger.Warn("invalid twilio signature")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			span.RecordError(errors.New("invalid twilio signature"))
			return
		}
	}

	webhook, err := ParseWhatsAppWebhook(r)
	if err != nil {
		h.logger.Error("failed to parse whatsapp webhook", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}
	from := NormalizePhone(webhook.From)
	to := NormalizePhone(webhook.To)
	span.SetAttributes(
		attribute.String("reparoja.twilio.message_sid", webhook.MessageSid),
		attribute.String("reparoja.twilio.from", from),
	)

	if from == "" || webhook.Body == "" {
		err := errors.New("missing required twilio fields")
		h.logger.Error("invalid whatsapp payload", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}

	resp, err := h.processor.ProcessMessage(ctx, conversation.MessageRequest{
		Channel: conversation.ChannelWhatsApp,
		From:    from,
		To:      to,
		Message: webhook.Body,
		Metadata: map[string]string{
			"twilio_message_sid": webhook.MessageSid,
			"twilio_account_sid": webhook.AccountSid,
		},
	})
	if err != nil {
		h.logger.Error("conversation turn failed", "error", err, "from", from)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}

	h.logger.Info("whatsapp webhook handled",
		"session_key", resp.SessionKey,
		"outcome", resp.Outcome,
	)
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(twimlReply(resp.Message))
}

// HealthCheck handles GET /health requests.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func twimlReply(message string) []byte {
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(message))
	var out bytes.Buffer
	out.WriteString(`<?xml version="1.0" encoding="UTF-8"?><Response><Message>`)
	out.Write(escaped.Bytes())
	out.WriteString(`</Message></Response>`)
	return out.Bytes()
}

func buildAbsoluteURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
			scheme = forwarded
		} else {
			scheme = "http"
		}
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
