package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reparoja/reparoja-ai-platform/internal/conversation"
	"github.com/reparoja/reparoja-ai-platform/internal/funnel"
)

type captureSender struct {
	sent []EmailMessage
	err  error
}

func (c *captureSender) Send(_ context.Context, msg EmailMessage) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func testBooking() conversation.Booking {
	return conversation.Booking{
		SessionKey:   "whatsapp:5511999990000",
		CustomerName: "Maria Souza",
		Contact:      "5511999990000",
		Address:      "Rua das Flores, 123",
		Service:      funnel.ServiceOnsite,
		Equipment:    "coifa",
		Problem:      "fazendo barulho",
		Slot: conversation.OfferedSlot{
			Index:    1,
			Label:    "seg 07/09 às 09:00",
			StartsAt: time.Date(2026, 9, 7, 9, 0, 0, 0, time.Local),
		},
	}
}

func TestBookingConfirmedEmail(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender, "ops@reparoja.com.br", nil)

	require.NoError(t, svc.BookingConfirmed(context.Background(), testBooking()))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "ops@reparoja.com.br", msg.To)
	assert.Contains(t, msg.Subject, "Visita técnica")
	assert.Contains(t, msg.Body, "Maria Souza")
	assert.Contains(t, msg.Body, "coifa")
	assert.Contains(t, msg.Body, "seg 07/09 às 09:00")
}

func TestBookingConfirmedNoOpsAddress(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender, "", nil)

	require.NoError(t, svc.BookingConfirmed(context.Background(), testBooking()))
	assert.Empty(t, sender.sent)
}

func TestBookingConfirmedSendFailure(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp down")}
	svc := NewService(sender, "ops@reparoja.com.br", nil)

	err := svc.BookingConfirmed(context.Background(), testBooking())
	assert.ErrorContains(t, err, "smtp down")
}
