package messaging

import (
	"context"
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reparoja/reparoja-ai-platform/internal/conversation"
)

type fakeProcessor struct {
	resp *conversation.Response
	err  error
	seen []conversation.MessageRequest
}

func (f *fakeProcessor) ProcessMessage(_ context.Context, req conversation.MessageRequest) (*conversation.Response, error) {
	f.seen = append(f.seen, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func webhookForm(from, body string) *strings.Reader {
	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("AccountSid", "AC456")
	form.Set("From", from)
	form.Set("To", "whatsapp:+5511888880000")
	form.Set("Body", body)
	return strings.NewReader(form.Encode())
}

func TestWhatsAppWebhookRepliesWithTwiML(t *testing.T) {
	proc := &fakeProcessor{resp: &conversation.Response{
		SessionKey: "whatsapp:5511999990000",
		Message:    "Qual aparelho precisa de conserto?",
		Outcome:    conversation.OutcomeAskedEquipment,
		Timestamp:  time.Now(),
	}}
	handler := NewHandler("", proc, nil)

	req := httptest.NewRequest("POST", "/webhooks/whatsapp", webhookForm("whatsapp:+5511999990000", "meu fogao quebrou"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler.WhatsAppWebhook(w, req)

	require.Equal(t, 200, w.Code)
	assert.Equal(t, "application/xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<Message>Qual aparelho precisa de conserto?</Message>")

	require.Len(t, proc.seen, 1)
	assert.Equal(t, conversation.ChannelWhatsApp, proc.seen[0].Channel)
	assert.Equal(t, "5511999990000", proc.seen[0].From)
	assert.Equal(t, "meu fogao quebrou", proc.seen[0].Message)
}

func TestWhatsAppWebhookEscapesReply(t *testing.T) {
	proc := &fakeProcessor{resp: &conversation.Response{Message: "a < b & c"}}
	handler := NewHandler("", proc, nil)

	req := httptest.NewRequest("POST", "/webhooks/whatsapp", webhookForm("whatsapp:+5511999990000", "oi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler.WhatsAppWebhook(w, req)

	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "a &lt; b &amp; c")
}

func TestWhatsAppWebhookMissingFields(t *testing.T) {
	handler := NewHandler("", &fakeProcessor{resp: &conversation.Response{}}, nil)

	req := httptest.NewRequest("POST", "/webhooks/whatsapp", webhookForm("", "oi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler.WhatsAppWebhook(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestWhatsAppWebhookProcessorError(t *testing.T) {
	handler := NewHandler("", &fakeProcessor{err: errors.New("redis down")}, nil)

	req := httptest.NewRequest("POST", "/webhooks/whatsapp", webhookForm("whatsapp:+5511999990000", "oi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler.WhatsAppWebhook(w, req)

	assert.Equal(t, 500, w.Code)
}

func TestWhatsAppWebhookRejectsBadSignature(t *testing.T) {
	handler := NewHandler("secret-token", &fakeProcessor{resp: &conversation.Response{}}, nil)

	req := httptest.NewRequest("POST", "/webhooks/whatsapp", webhookForm("whatsapp:+5511999990000", "oi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", "bogus")
	w := httptest.NewRecorder()
	handler.WhatsAppWebhook(w, req)

	assert.Equal(t, 401, w.Code)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5511999990000", NormalizePhone("whatsapp:+5511999990000"))
	assert.Equal(t, "5511999990000", NormalizePhone("+55 (11) 99999-0000"))
	assert.Equal(t, "", NormalizePhone("whatsapp:"))
}
