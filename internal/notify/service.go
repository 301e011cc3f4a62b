package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/reparoja/reparoja-ai-platform/internal/conversation"
	"github.com/reparoja/reparoja-ai-platform/pkg/logging"
)

// Service emails the operations team when the agent confirms a booking, so a
// technician can be assigned before the appointment.
type Service struct {
	sender  EmailSender
	opsAddr string
	logger  *logging.Logger
}

// NewService wires the booking notifier. A nil sender falls back to the stub.
func NewService(sender EmailSender, opsAddr string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if sender == nil {
		sender = NewStubEmailSender(logger)
	}
	return &Service{sender: sender, opsAddr: opsAddr, logger: logger}
}

var _ conversation.BookingNotifier = (*Service)(nil)

var serviceLabels = map[string]string{
	"onsite":           "Visita técnica",
	"pickup-diagnosis": "Coleta para diagnóstico",
	"pickup-repair":    "Coleta para conserto",
	"installation":     "Instalação",
}

// BookingConfirmed sends the new-booking summary to operations.
func (s *Service) BookingConfirmed(ctx context.Context, b conversation.Booking) error {
	if s.opsAddr == "" {
		s.logger.Debug("booking notification skipped, no ops address configured")
		return nil
	}

	label := serviceLabels[string(b.Service)]
	if label == "" {
		label = string(b.Service)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Novo agendamento confirmado pelo assistente.\n\n")
	fmt.Fprintf(&body, "Tipo: %s\n", label)
	fmt.Fprintf(&body, "Horário: %s\n", b.Slot.Label)
	fmt.Fprintf(&body, "Cliente: %s\n", b.CustomerName)
	fmt.Fprintf(&body, "Contato: %s\n", b.Contact)
	fmt.Fprintf(&body, "Endereço: %s\n", b.Address)
	fmt.Fprintf(&body, "Aparelho: %s\n", b.Equipment)
	if b.Brand != "" {
		fmt.Fprintf(&body, "Marca: %s\n", b.Brand)
	}
	if b.Problem != "" {
		fmt.Fprintf(&body, "Defeito relatado: %s\n", b.Problem)
	}
	fmt.Fprintf(&body, "Sessão: %s\n", b.SessionKey)

	err := s.sender.Send(ctx, EmailMessage{
		To:      s.opsAddr,
		ToName:  "Operações",
		Subject: fmt.Sprintf("[%s] %s - %s", label, b.Equipment, b.Slot.Label),
		Body:    body.String(),
	})
	if err != nil {
		return fmt.Errorf("notify: booking notification: %w", err)
	}
	return nil
}
