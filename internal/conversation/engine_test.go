package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reparoja/reparoja-ai-platform/internal/funnel"
	"github.com/reparoja/reparoja-ai-platform/internal/policies"
	"github.com/reparoja/reparoja-ai-platform/internal/schedule"
)

type memSessions struct {
	m map[string]*SessionState
}

func newMemSessions() *memSessions {
	return &memSessions{m: make(map[string]*SessionState)}
}

func (s *memSessions) Load(_ context.Context, key string) (*SessionState, error) {
	if st, ok := s.m[key]; ok {
		copied := *st
		return &copied, nil
	}
	return &SessionState{}, nil
}

func (s *memSessions) Save(_ context.Context, key string, state *SessionState) error {
	copied := *state
	s.m[key] = &copied
	return nil
}

type fakeSchedProvider struct {
	slots    []schedule.Slot
	bookings []schedule.Booking
	bookErr  error
	lastReq  schedule.Request
}

func (p *fakeSchedProvider) ListSlots(_ context.Context, req schedule.Request) ([]schedule.Slot, error) {
	p.lastReq = req
	return p.slots, nil
}

func (p *fakeSchedProvider) Book(_ context.Context, b schedule.Booking) error {
	if p.bookErr != nil {
		return p.bookErr
	}
	p.bookings = append(p.bookings, b)
	return nil
}

type recordedBookings struct {
	all []Booking
}

func (r *recordedBookings) Record(_ context.Context, b Booking) error {
	r.all = append(r.all, b)
	return nil
}

func testSlots() []schedule.Slot {
	return []schedule.Slot{
		{Label: "seg 07/09 às 09:00", StartsAt: time.Date(2026, 9, 7, 9, 0, 0, 0, time.Local)},
		{Label: "seg 07/09 às 14:00", StartsAt: time.Date(2026, 9, 7, 14, 0, 0, 0, time.Local)},
	}
}

func newTestEngine(t *testing.T) (*Engine, *memSessions, *fakeSchedProvider, *recordedBookings) {
	t.Helper()
	sessions := newMemSessions()
	provider := &fakeSchedProvider{slots: testSlots()}
	recorder := &recordedBookings{}
	engine := NewEngine(sessions, policies.NewStaticSource(nil), provider,
		WithBookingRecorder(recorder),
	)
	return engine, sessions, provider, recorder
}

func turn(t *testing.T, e *Engine, message string) *Response {
	t.Helper()
	resp, err := e.ProcessMessage(context.Background(), MessageRequest{
		Channel: ChannelWhatsApp,
		From:    "5511999990000",
		Message: message,
	})
	require.NoError(t, err)
	return resp
}

func sessionOf(t *testing.T, s *memSessions) *SessionState {
	t.Helper()
	st, ok := s.m["whatsapp:5511999990000"]
	require.True(t, ok)
	return st
}

func TestMicrowaveAsksMountBeforeAnyOffer(t *testing.T) {
	e, sessions, _, _ := newTestEngine(t)

	resp := turn(t, e, "meu microondas não esquenta")
	assert.Equal(t, OutcomeClarified, resp.Outcome)
	assert.Contains(t, resp.Message, "embutir")
	assert.Contains(t, resp.Message, "bancada")

	st := sessionOf(t, sessions)
	assert.Equal(t, funnel.SlotMount, st.PendingSlot)
	assert.Equal(t, "micro-ondas", st.Funnel.Equipment)

	resp = turn(t, e, "é de bancada")
	assert.Equal(t, OutcomeQuoted, resp.Outcome)
	assert.Contains(t, resp.Message, "consertado")

	st = sessionOf(t, sessions)
	assert.Equal(t, []funnel.ServiceType{funnel.ServicePickupRepair}, st.Services)
	assert.Empty(t, st.PendingSlot)
	assert.True(t, st.ResolvedSlots[funnel.SlotMount])
}

func TestBuiltInElectricOvenGoesToPickupDiagnosis(t *testing.T) {
	e, sessions, _, _ := newTestEngine(t)

	resp := turn(t, e, "meu forno elétrico está com defeito")
	assert.Equal(t, OutcomeClarified, resp.Outcome)

	resp = turn(t, e, "é de embutir")
	assert.Equal(t, OutcomeQuoted, resp.Outcome)
	assert.Contains(t, resp.Message, "diagnóstico")

	st := sessionOf(t, sessions)
	assert.Equal(t, []funnel.ServiceType{funnel.ServicePickupDiagnosis}, st.Services)
}

func TestHoodNeverGetsStoveQuestions(t *testing.T) {
	e, sessions, _, _ := newTestEngine(t)

	resp := turn(t, e, "minha coifa está fazendo barulho")
	assert.Equal(t, OutcomeQuoted, resp.Outcome)
	assert.NotContains(t, resp.Message, "gás, elétrico")
	assert.NotContains(t, resp.Message, "bocas")
	assert.NotContains(t, resp.Message, "ponto de gás")

	st := sessionOf(t, sessions)
	assert.Equal(t, []funnel.ServiceType{funnel.ServiceOnsite}, st.Services)
}

func TestClarificationIsNeverRepeatedAfterAnswer(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	turn(t, e, "meu microondas não esquenta")
	turn(t, e, "é de bancada")

	resp := turn(t, e, "ele liga mas não esquenta nada")
	assert.NotContains(t, resp.Message, "bancada")
	assert.NotContains(t, resp.Message, "embutir")
}

func TestUnansweredClarificationIsRepeatedNotDuplicated(t *testing.T) {
	e, sessions, _, _ := newTestEngine(t)

	turn(t, e, "meu fogão não acende")
	resp := turn(t, e, "não sei dizer")
	assert.Equal(t, OutcomeClarified, resp.Outcome)
	assert.Contains(t, resp.Message, "chama")

	st := sessionOf(t, sessions)
	assert.Equal(t, funnel.SlotPower, st.PendingSlot)
}

func TestFullFunnelThroughBooking(t *testing.T) {
	e, sessions, provider, recorder := newTestEngine(t)

	turn(t, e, "minha coifa está fazendo barulho")

	resp := turn(t, e, "quero agendar")
	assert.Equal(t, OutcomeAskedContact, resp.Outcome)
	assert.Contains(t, resp.Message, "nome")

	resp = turn(t, e, "Maria Souza")
	assert.Equal(t, OutcomeAskedContact, resp.Outcome)
	assert.Contains(t, resp.Message, "endereço")

	resp = turn(t, e, "Rua das Flores, 123, Centro")
	assert.Equal(t, OutcomeOfferedSlots, resp.Outcome)
	assert.Contains(t, resp.Message, "1. seg 07/09 às 09:00")

	st := sessionOf(t, sessions)
	require.Len(t, st.OfferedSlots, 2)

	resp = turn(t, e, "pode ser às 14h")
	assert.Equal(t, OutcomeBooked, resp.Outcome)
	assert.Contains(t, resp.Message, "Maria")

	st = sessionOf(t, sessions)
	assert.True(t, st.BookingConfirmed)
	require.NotNil(t, st.ConfirmedSlot)
	assert.Equal(t, 14, st.ConfirmedSlot.StartsAt.Hour())
	assert.Empty(t, st.OfferedSlots)

	require.Len(t, provider.bookings, 1)
	assert.Equal(t, "Maria Souza", provider.bookings[0].CustomerName)

	require.Len(t, recorder.all, 1)
	assert.Equal(t, funnel.ServiceOnsite, recorder.all[0].Service)
	assert.Equal(t, "coifa", recorder.all[0].Equipment)
}

func TestConfirmingReofferOnUnrecognizedReply(t *testing.T) {
	e, sessions, _, _ := newTestEngine(t)

	turn(t, e, "minha coifa está fazendo barulho")
	turn(t, e, "quero agendar")
	turn(t, e, "Maria Souza")
	turn(t, e, "Rua das Flores, 123")

	resp := turn(t, e, "vou confirmar com meu marido")
	assert.Equal(t, OutcomeOfferedSlots, resp.Outcome)
	assert.Contains(t, resp.Message, "1. seg 07/09 às 09:00")

	st := sessionOf(t, sessions)
	assert.Len(t, st.OfferedSlots, 2)
	assert.False(t, st.BookingConfirmed)
}

func TestInstallationModeRevokedByRepairReport(t *testing.T) {
	e, sessions, _, _ := newTestEngine(t)

	turn(t, e, "quero instalar um fogão brastemp")
	st := sessionOf(t, sessions)
	assert.True(t, st.InstallationMode)

	resp := turn(t, e, "é a gás")
	assert.Contains(t, resp.Message, "ponto de gás")
	st = sessionOf(t, sessions)
	assert.True(t, st.GasValveAsked)

	resp = turn(t, e, "sim, já tem registro")
	assert.Equal(t, OutcomeQuoted, resp.Outcome)
	assert.Contains(t, resp.Message, "instalação")

	// A defect report flips the session back to the repair funnel.
	resp = turn(t, e, "na verdade duas bocas não acendem")
	st = sessionOf(t, sessions)
	assert.False(t, st.InstallationMode)
	assert.Equal(t, []funnel.ServiceType{funnel.ServiceOnsite}, st.Services)
	assert.NotContains(t, resp.Message, "instalação")
}

func TestParseCustomerName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Maria Souza", "Maria Souza"},
		{"meu nome é Maria Souza", "Maria Souza"},
		{"Me chamo João Pedro", "João Pedro"},
		{"sou a Ana", "Ana"},
		{"aqui é o Carlos.", "Carlos"},
		{"pode me chamar de Bia", "Bia"},
		{"sou", "sou"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseCustomerName(tt.in), "input %q", tt.in)
	}
}

func TestNameLeadInDoesNotLeakIntoBooking(t *testing.T) {
	e, _, provider, recorder := newTestEngine(t)

	turn(t, e, "minha coifa está fazendo barulho")
	turn(t, e, "quero agendar")
	turn(t, e, "meu nome é Maria Souza")
	turn(t, e, "Rua das Flores, 123")

	resp := turn(t, e, "1")
	assert.Equal(t, OutcomeBooked, resp.Outcome)
	assert.Contains(t, resp.Message, "Agendado, Maria!")

	require.Len(t, provider.bookings, 1)
	assert.Equal(t, "Maria Souza", provider.bookings[0].CustomerName)
	require.Len(t, recorder.all, 1)
	assert.Equal(t, "Maria Souza", recorder.all[0].CustomerName)
}

func TestUnknownEquipmentAsksDetailsBeforeNoCoverage(t *testing.T) {
	e, sessions, _, _ := newTestEngine(t)

	// No policy row covers minibar fridges; the first empty eligibility must
	// read as "need more information", not as a refusal.
	resp := turn(t, e, "meu frigobar parou de funcionar")
	assert.Equal(t, OutcomeFollowUp, resp.Outcome)
	assert.Contains(t, resp.Message, "marca")

	resp = turn(t, e, "Consul")
	assert.Equal(t, OutcomeNoCoverage, resp.Outcome)
	assert.Contains(t, resp.Message, "frigobar")

	st := sessionOf(t, sessions)
	assert.Equal(t, "Consul", st.Funnel.Brand)
}

func TestScheduleWindowReachesProvider(t *testing.T) {
	sessions := newMemSessions()
	provider := &fakeSchedProvider{slots: testSlots()}
	e := NewEngine(sessions, policies.NewStaticSource(nil), provider,
		WithScheduleWindow(5, 3),
	)

	turn(t, e, "minha coifa está fazendo barulho")
	turn(t, e, "quero agendar")
	turn(t, e, "Maria Souza")
	resp := turn(t, e, "Rua das Flores, 123")

	assert.Equal(t, OutcomeOfferedSlots, resp.Outcome)
	assert.Equal(t, 5, provider.lastReq.Days)
	assert.Equal(t, 3, provider.lastReq.MaxSlots)
}

func TestSlotTakenTriggersReoffer(t *testing.T) {
	e, sessions, provider, _ := newTestEngine(t)

	turn(t, e, "minha coifa está fazendo barulho")
	turn(t, e, "quero agendar")
	turn(t, e, "Maria Souza")
	turn(t, e, "Rua das Flores, 123")

	provider.bookErr = schedule.ErrSlotTaken
	resp := turn(t, e, "1")
	assert.Equal(t, OutcomeOfferedSlots, resp.Outcome)
	assert.Contains(t, resp.Message, "preenchido")

	st := sessionOf(t, sessions)
	assert.False(t, st.BookingConfirmed)
	assert.Len(t, st.OfferedSlots, 2)
}

func TestStateIsMonotonicAcrossTurns(t *testing.T) {
	e, sessions, _, _ := newTestEngine(t)

	turn(t, e, "meu fogão não acende")
	turn(t, e, "é um fogão a gás brastemp")

	st := sessionOf(t, sessions)
	assert.Equal(t, "fogao a gas", funnel.Normalize(st.Funnel.Equipment))
	assert.Equal(t, "Brastemp", st.Funnel.Brand)
	assert.Equal(t, funnel.PowerGas, st.Funnel.EffectivePower())

	// A later vaguer mention must not downgrade the equipment slot.
	turn(t, e, "o fogão continua igual")
	st = sessionOf(t, sessions)
	assert.Equal(t, "fogao a gas", funnel.Normalize(st.Funnel.Equipment))
}

func TestEmptyMessageRejected(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	_, err := e.ProcessMessage(context.Background(), MessageRequest{
		Channel: ChannelWhatsApp,
		From:    "5511999990000",
		Message: "   ",
	})
	assert.Error(t, err)
}
