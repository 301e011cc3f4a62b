package conversation

import (
	"context"
	"time"

	"github.com/reparoja/reparoja-ai-platform/internal/funnel"
)

// Service describes how the conversation engine should behave.
type Service interface {
	ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error)
	GetHistory(ctx context.Context, sessionKey string) ([]Message, error)
}

// Message represents a single message in a conversation transcript.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Channel identifies which transport the conversation is happening on.
type Channel string

const (
	ChannelUnknown  Channel = ""
	ChannelWhatsApp Channel = "whatsapp"
	ChannelWebchat  Channel = "webchat"
)

// MessageRequest represents a single inbound turn.
type MessageRequest struct {
	Channel  Channel
	From     string // peer identity on the channel, e.g. the WhatsApp number
	To       string
	Message  string
	Metadata map[string]string
}

// SessionKey is the identity a conversation is tracked under. One key maps to
// one SessionState and one lock.
func (r MessageRequest) SessionKey() string {
	ch := r.Channel
	if ch == ChannelUnknown {
		ch = ChannelWhatsApp
	}
	return string(ch) + ":" + r.From
}

// Response is a simple DTO returned to the transport layer.
type Response struct {
	SessionKey string
	Message    string
	Outcome    string
	Timestamp  time.Time
}

// Turn outcomes reported on Response and to metrics.
const (
	OutcomeAskedEquipment = "asked_equipment"
	OutcomeClarified      = "clarified"
	OutcomeQuoted         = "quoted"
	OutcomeOfferedSlots   = "offered_slots"
	OutcomeAskedContact   = "asked_contact"
	OutcomeBooked         = "booked"
	OutcomeFollowUp       = "follow_up"
	OutcomeNoCoverage     = "no_coverage"
)

// SessionState is the durable per-peer conversation state. It is read, merged
// and rewritten on every turn under the session lock.
type SessionState struct {
	Funnel funnel.State `json:"funnel"`

	CustomerName string `json:"customer_name,omitempty"`
	Contact      string `json:"contact,omitempty"`
	Address      string `json:"address,omitempty"`

	// InstallationMode flips the conversation from repair to installation
	// handling. Revoked as soon as repair evidence shows up.
	InstallationMode bool `json:"installation_mode,omitempty"`

	// PendingSlot is the slot the last clarifying question asked about.
	// Cleared exactly when the answer fills it.
	PendingSlot funnel.Slot `json:"pending_slot,omitempty"`

	// ResolvedSlots records slots whose clarification was already answered,
	// so the same question is never asked twice.
	ResolvedSlots map[funnel.Slot]bool `json:"resolved_slots,omitempty"`

	// PendingContactField is the contact detail the engine asked for last
	// ("name", "contact" or "address").
	PendingContactField string `json:"pending_contact_field,omitempty"`

	// GasValveAsked remembers that the gas-point question of the
	// installation flow was already asked.
	GasValveAsked bool `json:"gas_valve_asked,omitempty"`

	// Services holds the eligibility computed at quote time.
	Services  []funnel.ServiceType `json:"services,omitempty"`
	QuoteSent bool                 `json:"quote_sent,omitempty"`

	// OfferedSlots is non-empty while a scheduling offer is outstanding
	// (the confirming phase).
	OfferedSlots []OfferedSlot `json:"offered_slots,omitempty"`

	BookingConfirmed bool         `json:"booking_confirmed,omitempty"`
	ConfirmedSlot    *OfferedSlot `json:"confirmed_slot,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Confirming reports whether the session is waiting for the customer to pick
// one of the offered appointment windows.
func (s *SessionState) Confirming() bool {
	return len(s.OfferedSlots) > 0
}

// MarkResolved records that the clarification for slot was answered.
func (s *SessionState) MarkResolved(slot funnel.Slot) {
	if s.ResolvedSlots == nil {
		s.ResolvedSlots = make(map[funnel.Slot]bool, 2)
	}
	s.ResolvedSlots[slot] = true
}
