package messaging

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTwilioSignature(t *testing.T) {
	const authToken = "test-auth-token"
	const webhookURL = "https://api.reparoja.com.br/webhooks/whatsapp"

	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("From", "whatsapp:+5511999990000")
	form.Set("Body", "meu fogao nao acende")

	req := httptest.NewRequest("POST", "/webhooks/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, req.ParseForm())

	valid := computeSignature(buildSignaturePayload(webhookURL, req.PostForm), authToken)
	req.Header.Set("X-Twilio-Signature", valid)
	assert.True(t, ValidateTwilioSignature(req, authToken, webhookURL))

	req.Header.Set("X-Twilio-Signature", "tampered")
	assert.False(t, ValidateTwilioSignature(req, authToken, webhookURL))

	req.Header.Del("X-Twilio-Signature")
	assert.False(t, ValidateTwilioSignature(req, authToken, webhookURL))
}

func TestParseWhatsAppWebhook(t *testing.T) {
	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("AccountSid", "AC456")
	form.Set("From", "whatsapp:+5511999990000")
	form.Set("To", "whatsapp:+5511888880000")
	form.Set("Body", "oi")

	req := httptest.NewRequest("POST", "/webhooks/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	webhook, err := ParseWhatsAppWebhook(req)
	require.NoError(t, err)
	assert.Equal(t, "SM123", webhook.MessageSid)
	assert.Equal(t, "whatsapp:+5511999990000", webhook.From)
	assert.Equal(t, "oi", webhook.Body)
}
