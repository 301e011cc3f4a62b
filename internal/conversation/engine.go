package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/reparoja/reparoja-ai-platform/internal/funnel"
	"github.com/reparoja/reparoja-ai-platform/internal/observability/metrics"
	"github.com/reparoja/reparoja-ai-platform/internal/policies"
	"github.com/reparoja/reparoja-ai-platform/internal/schedule"
)

// Booking is the confirmed appointment handed to the recorder and notifier.
type Booking struct {
	SessionKey   string
	CustomerName string
	Contact      string
	Address      string
	Service      funnel.ServiceType
	Equipment    string
	Brand        string
	Problem      string
	Slot         OfferedSlot
}

// BookingRecorder persists a confirmed booking as a service order.
type BookingRecorder interface {
	Record(ctx context.Context, b Booking) error
}

// BookingNotifier tells the operations team about a confirmed booking.
type BookingNotifier interface {
	BookingConfirmed(ctx context.Context, b Booking) error
}

// ServiceInstallation is the pseudo-category used when the customer wants an
// installation rather than a repair. It never appears in the policy table.
const ServiceInstallation funnel.ServiceType = "installation"

// Engine drives the slot-filling funnel. One ProcessMessage call is one turn:
// load state, interpret the message, advance the funnel, reply, persist.
type Engine struct {
	sessions    SessionStore
	policySrc   policies.Source
	scheduler   schedule.Provider
	extractor   *EntityExtractor
	router      *DecisionRouter
	transcripts *TranscriptStore
	recorder    BookingRecorder
	notifier    BookingNotifier
	logger      *slog.Logger
	metrics     *metrics.ConversationMetrics
	locks       keyedMutex
	now         func() time.Time

	scheduleDays     int
	scheduleMaxSlots int
}

var _ Service = (*Engine)(nil)

// EngineOption customizes optional collaborators.
type EngineOption func(*Engine)

func WithExtractor(e *EntityExtractor) EngineOption {
	return func(eng *Engine) { eng.extractor = e }
}

func WithRouter(r *DecisionRouter) EngineOption {
	return func(eng *Engine) { eng.router = r }
}

func WithTranscripts(s *TranscriptStore) EngineOption {
	return func(eng *Engine) { eng.transcripts = s }
}

func WithBookingRecorder(r BookingRecorder) EngineOption {
	return func(eng *Engine) { eng.recorder = r }
}

func WithBookingNotifier(n BookingNotifier) EngineOption {
	return func(eng *Engine) { eng.notifier = n }
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(eng *Engine) { eng.logger = l }
}

func WithMetrics(m *metrics.ConversationMetrics) EngineOption {
	return func(eng *Engine) { eng.metrics = m }
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(eng *Engine) { eng.now = now }
}

// WithScheduleWindow sets how far ahead slots are searched and how many are
// offered per turn. Zero values defer to the provider defaults.
func WithScheduleWindow(days, maxSlots int) EngineOption {
	return func(eng *Engine) {
		eng.scheduleDays = days
		eng.scheduleMaxSlots = maxSlots
	}
}

// NewEngine wires the engine. Sessions, policies and the schedule provider
// are required; everything else degrades gracefully when absent.
func NewEngine(sessions SessionStore, policySrc policies.Source, scheduler schedule.Provider, opts ...EngineOption) *Engine {
	if sessions == nil {
		panic("conversation: session store cannot be nil")
	}
	if policySrc == nil {
		panic("conversation: policy source cannot be nil")
	}
	if scheduler == nil {
		panic("conversation: schedule provider cannot be nil")
	}
	e := &Engine{
		sessions:  sessions,
		policySrc: policySrc,
		scheduler: scheduler,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessMessage runs a single conversation turn. Turns for the same session
// key are serialized; turns for different keys run concurrently.
func (e *Engine) ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("conversation: empty message")
	}
	start := e.now()
	key := req.SessionKey()

	unlock := e.locks.lock(key)
	defer unlock()

	state, err := e.sessions.Load(ctx, key)
	if err != nil {
		// A broken session store must not kill the turn. Start fresh and
		// let the customer repeat themselves at worst.
		e.logger.Warn("engine: session load failed, starting fresh", "session", key, "error", err)
		state = &SessionState{}
	}

	if err := e.transcripts.RecordMessage(ctx, key, "user", req.Message); err != nil {
		e.logger.Warn("engine: transcript write failed", "session", key, "error", err)
	}

	if state.Contact == "" && req.Channel == ChannelWhatsApp && req.From != "" {
		state.Contact = req.From
	}

	normalized := funnel.Normalize(req.Message)
	sig := funnel.DetectSignals(normalized)
	decision := e.router.Decide(ctx, req.Message)

	// Installation mode is sticky until repair evidence shows up; any repair
	// signal revokes it for good reason ("instalei e agora nao liga").
	switch {
	case sig.LooksLikeRepair || sig.NegatedInstall || decision.Intent == IntentRepair:
		state.InstallationMode = false
	case sig.MentionsInstall || decision.Intent == IntentInstallation:
		state.InstallationMode = true
	}

	var reply, outcome string
	if state.Confirming() {
		reply, outcome = e.confirmTurn(ctx, key, state, req.Message, decision)
	} else {
		reply, outcome = e.funnelTurn(ctx, key, state, req, decision)
	}

	// Persist unconditionally: even a turn that only produced a question
	// moved the pending markers.
	if err := e.sessions.Save(ctx, key, state); err != nil {
		e.logger.Error("engine: session save failed", "session", key, "error", err)
		e.metrics.ObservePersistFailure()
	}
	if err := e.transcripts.RecordMessage(ctx, key, "assistant", reply); err != nil {
		e.logger.Warn("engine: transcript write failed", "session", key, "error", err)
	}
	e.metrics.ObserveTurn(outcome, e.now().Sub(start).Seconds())

	return &Response{
		SessionKey: key,
		Message:    reply,
		Outcome:    outcome,
		Timestamp:  e.now().UTC(),
	}, nil
}

// GetHistory returns the persisted transcript for a session.
func (e *Engine) GetHistory(ctx context.Context, sessionKey string) ([]Message, error) {
	return e.transcripts.History(ctx, sessionKey)
}

// confirmTurn handles the phase where an offer is outstanding and the
// customer is expected to pick a window.
func (e *Engine) confirmTurn(ctx context.Context, key string, state *SessionState, message string, decision Decision) (string, string) {
	slot, ok := MatchOfferedSlot(message, state.OfferedSlots)
	if !ok {
		if decision.Intent == IntentNegative {
			state.OfferedSlots = nil
			e.metrics.ObserveBooking("declined")
			return "Sem problemas! Quando quiser agendar, é só me avisar.", OutcomeFollowUp
		}
		// No recognizable choice: repeat the exact same offer.
		e.metrics.ObserveBooking("reoffered")
		return "Não consegui identificar o horário. " + FormatSlotOffer(state.OfferedSlots), OutcomeOfferedSlots
	}

	booking := Booking{
		SessionKey:   key,
		CustomerName: state.CustomerName,
		Contact:      state.Contact,
		Address:      state.Address,
		Service:      e.primaryService(state),
		Equipment:    state.Funnel.Equipment,
		Brand:        state.Funnel.Brand,
		Problem:      state.Funnel.Problem,
		Slot:         slot,
	}

	err := e.scheduler.Book(ctx, schedule.Booking{
		Slot:         schedule.Slot{Label: slot.Label, StartsAt: slot.StartsAt},
		SessionKey:   key,
		CustomerName: state.CustomerName,
		Contact:      state.Contact,
		Address:      state.Address,
		ServiceType:  string(booking.Service),
	})
	if errors.Is(err, schedule.ErrSlotTaken) {
		e.metrics.ObserveBooking("slot_taken")
		return e.offerSlots(ctx, state, "Esse horário acabou de ser preenchido. ")
	}
	if err != nil {
		e.logger.Error("engine: booking failed", "session", key, "error", err)
		e.metrics.ObserveBooking("error")
		return "Tive um problema para confirmar o agendamento. Pode tentar de novo em instantes?", OutcomeFollowUp
	}

	state.BookingConfirmed = true
	state.ConfirmedSlot = &slot
	state.OfferedSlots = nil
	e.metrics.ObserveBooking("confirmed")

	if e.recorder != nil {
		if err := e.recorder.Record(ctx, booking); err != nil {
			e.logger.Error("engine: order record failed", "session", key, "error", err)
		}
	}
	if e.notifier != nil {
		if err := e.notifier.BookingConfirmed(ctx, booking); err != nil {
			e.logger.Warn("engine: booking notification failed", "session", key, "error", err)
		}
	}
	if err := e.transcripts.MarkBooked(ctx, key, slot.StartsAt); err != nil {
		e.logger.Warn("engine: transcript booking stamp failed", "session", key, "error", err)
	}

	if name := firstName(state.CustomerName); name != "" {
		return fmt.Sprintf("Agendado, %s! Te esperamos %s. Qualquer imprevisto é só avisar por aqui.",
			name, slot.Label), OutcomeBooked
	}
	return fmt.Sprintf("Agendado! Te esperamos %s. Qualquer imprevisto é só avisar por aqui.",
		slot.Label), OutcomeBooked
}

// funnelTurn advances the slot-filling funnel by one step.
func (e *Engine) funnelTurn(ctx context.Context, key string, state *SessionState, req MessageRequest, decision Decision) (string, string) {
	if state.BookingConfirmed && state.ConfirmedSlot != nil {
		if decision.WantsSchedule || decision.Intent == IntentSchedule {
			// Reschedule: run the offer again, the confirmation turn
			// overwrites the stored slot.
			return e.offerSlots(ctx, state, "Claro, vamos remarcar. ")
		}
		return fmt.Sprintf("Seu atendimento já está agendado para %s. Posso ajudar em mais alguma coisa?",
			state.ConfirmedSlot.Label), OutcomeFollowUp
	}

	if state.PendingContactField != "" && decision.Intent != IntentNegative {
		if done := e.consumeContactAnswer(state, req.Message); !done {
			return e.askContact(state), OutcomeAskedContact
		}
		return e.offerSlots(ctx, state, "")
	}

	patch := e.extractor.Extract(ctx, req.Message, state.Funnel)
	e.applyPendingSlotAnswer(state, req.Message, &patch)
	state.Funnel = funnel.Merge(state.Funnel, patch)

	if state.PendingSlot != "" && slotFilled(state.Funnel, state.PendingSlot) {
		state.MarkResolved(state.PendingSlot)
		state.PendingSlot = ""
	}

	if state.Funnel.Equipment == "" {
		state.PendingSlot = funnel.SlotEquipment
		return "Oi! Para te ajudar, me conta qual aparelho está com problema: fogão, forno, micro-ondas, coifa, geladeira...", OutcomeAskedEquipment
	}

	if slot, ambiguous := funnel.AmbiguousSlot(state.Funnel); ambiguous {
		repeated := state.PendingSlot == slot
		state.PendingSlot = slot
		if !repeated {
			e.metrics.ObserveClarification(string(slot))
		}
		return clarifyingQuestion(slot, state.Funnel, repeated), OutcomeClarified
	}

	if state.InstallationMode {
		return e.installTurn(ctx, state, decision)
	}

	rows, err := e.policySrc.List(ctx)
	if err != nil {
		e.logger.Error("engine: policy load failed", "session", key, "error", err)
		rows = policies.DefaultRows()
	}

	eligible := funnel.Eligible(rows, state.Funnel)
	if len(eligible) == 0 {
		// Empty eligibility means "need more information", not a dead end.
		// Another detail often surfaces a term the policy table recognizes
		// ("é um cooktop de indução da Fischer"); only when every detail
		// question is spent do we admit there is no coverage.
		if q, slot, ok := e.nextDetailQuestion(state); ok {
			state.PendingSlot = slot
			return q, OutcomeFollowUp
		}
		e.metrics.ObserveBooking("no_coverage")
		return fmt.Sprintf("Por enquanto não atendemos %s. Posso anotar seu contato e avisar assim que passarmos a atender?",
			state.Funnel.Equipment), OutcomeNoCoverage
	}
	state.Services = eligible

	if !state.QuoteSent {
		state.QuoteSent = true
		return quoteMessage(rows, eligible, state.Funnel), OutcomeQuoted
	}

	if decision.WantsSchedule || decision.Intent == IntentSchedule || decision.Intent == IntentAffirmative {
		if next := e.nextContactField(state); next != "" {
			state.PendingContactField = next
			return e.askContact(state), OutcomeAskedContact
		}
		return e.offerSlots(ctx, state, "")
	}

	if q, slot, ok := e.nextDetailQuestion(state); ok {
		state.PendingSlot = slot
		return q, OutcomeFollowUp
	}
	return "Posso agendar a visita do técnico? É só me dizer quando prefere.", OutcomeFollowUp
}

// installTurn handles sessions flagged as installation requests.
func (e *Engine) installTurn(ctx context.Context, state *SessionState, decision Decision) (string, string) {
	// Gas appliances need a ready gas point before the visit. Asked once.
	if state.Funnel.EffectivePower() == funnel.PowerGas && !state.GasValveAsked {
		state.GasValveAsked = true
		return "Para a instalação: o ponto de gás já está pronto, com registro instalado?", OutcomeClarified
	}

	if !state.QuoteSent {
		state.QuoteSent = true
		state.Services = []funnel.ServiceType{ServiceInstallation}
		return fmt.Sprintf("Fazemos a instalação de %s! O técnico vai até você com todo o material necessário. Quer agendar?",
			state.Funnel.Equipment), OutcomeQuoted
	}

	if decision.WantsSchedule || decision.Intent == IntentSchedule || decision.Intent == IntentAffirmative {
		if next := e.nextContactField(state); next != "" {
			state.PendingContactField = next
			return e.askContact(state), OutcomeAskedContact
		}
		return e.offerSlots(ctx, state, "")
	}
	return "Quer que eu já agende a instalação?", OutcomeFollowUp
}

// applyPendingSlotAnswer interprets the message as a direct answer to the
// question asked on the previous turn, for answers the extractor cannot see
// ("é a gás", "Brastemp").
func (e *Engine) applyPendingSlotAnswer(state *SessionState, message string, patch *funnel.Patch) {
	if state.PendingSlot == "" {
		return
	}
	switch state.PendingSlot {
	case funnel.SlotPower:
		if patch.Power == "" {
			patch.Power = funnel.ParsePower(message)
		}
	case funnel.SlotMount:
		if patch.Mount == "" {
			patch.Mount = funnel.ParseMount(message)
		}
	case funnel.SlotBrand:
		if patch.Brand == "" && shortAnswer(message) {
			patch.Brand = strings.TrimSpace(message)
		}
	case funnel.SlotProblem:
		if patch.Problem == "" {
			patch.Problem = strings.TrimSpace(message)
		}
	}
}

// consumeContactAnswer stores the answer for the pending contact field and
// reports whether all contact data is now collected.
func (e *Engine) consumeContactAnswer(state *SessionState, message string) bool {
	value := strings.TrimSpace(message)
	switch state.PendingContactField {
	case "name":
		state.CustomerName = parseCustomerName(value)
	case "contact":
		state.Contact = value
	case "address":
		state.Address = value
	}
	state.PendingContactField = e.nextContactField(state)
	return state.PendingContactField == ""
}

func (e *Engine) nextContactField(state *SessionState) string {
	switch {
	case state.CustomerName == "":
		return "name"
	case state.Contact == "":
		return "contact"
	case state.Address == "":
		// Pickup services need the address too, for the courier.
		return "address"
	}
	return ""
}

func (e *Engine) askContact(state *SessionState) string {
	if state.PendingContactField == "" {
		state.PendingContactField = e.nextContactField(state)
	}
	switch state.PendingContactField {
	case "name":
		return "Ótimo! Para agendar, me diz seu nome completo?"
	case "contact":
		return "Qual o melhor telefone ou WhatsApp para contato?"
	default:
		return "Qual o endereço onde o aparelho está? Rua, número e bairro."
	}
}

// offerSlots starts the confirming phase. The exact offered list is persisted
// so the next turn matches against what the customer saw.
func (e *Engine) offerSlots(ctx context.Context, state *SessionState, prefix string) (string, string) {
	slots, err := e.scheduler.ListSlots(ctx, schedule.Request{
		From:        e.now(),
		Days:        e.scheduleDays,
		MaxSlots:    e.scheduleMaxSlots,
		ServiceType: string(e.primaryService(state)),
	})
	if err != nil || len(slots) == 0 {
		if err != nil {
			e.logger.Error("engine: slot listing failed", "error", err)
		}
		e.metrics.ObserveBooking("no_slots")
		state.OfferedSlots = nil
		return prefix + "Estou sem horários disponíveis agora. Nossa equipe vai te chamar por aqui para combinar o melhor dia, tudo bem?", OutcomeFollowUp
	}

	state.OfferedSlots = OfferSlots(slots)
	e.metrics.ObserveBooking("offered")
	return prefix + FormatSlotOffer(state.OfferedSlots), OutcomeOfferedSlots
}

func (e *Engine) primaryService(state *SessionState) funnel.ServiceType {
	if state.InstallationMode {
		return ServiceInstallation
	}
	if len(state.Services) > 0 {
		return state.Services[0]
	}
	return funnel.ServiceOnsite
}

// nextDetailQuestion picks the next order-enriching question that was not
// asked before.
func (e *Engine) nextDetailQuestion(state *SessionState) (string, funnel.Slot, bool) {
	if state.Funnel.Brand == "" && !state.ResolvedSlots[funnel.SlotBrand] && state.PendingSlot != funnel.SlotBrand {
		return fmt.Sprintf("Qual a marca do seu %s?", state.Funnel.Equipment), funnel.SlotBrand, true
	}
	if state.Funnel.Problem == "" && !state.ResolvedSlots[funnel.SlotProblem] && state.PendingSlot != funnel.SlotProblem {
		return "Me conta o que está acontecendo com ele?", funnel.SlotProblem, true
	}
	return "", "", false
}

func clarifyingQuestion(slot funnel.Slot, s funnel.State, repeated bool) string {
	switch slot {
	case funnel.SlotPower:
		if repeated {
			return "Só para confirmar: se acende chama de fogo, é a gás; se a superfície é de vidro e esquenta sem chama, é elétrico ou de indução. Qual é o seu?"
		}
		return "Seu fogão é a gás, elétrico ou de indução?"
	case funnel.SlotMount:
		name := "forno"
		if funnel.FamilyOf(s.Equipment) == funnel.FamilyMicrowave {
			name = "micro-ondas"
		}
		if repeated {
			return fmt.Sprintf("O %s fica preso no móvel da cozinha (embutido) ou apoiado na bancada?", name)
		}
		return fmt.Sprintf("Seu %s é de embutir ou de bancada?", name)
	default:
		return "Pode me dar mais detalhes sobre o aparelho?"
	}
}

// quoteMessage builds the first offer once eligibility resolves. Categories
// keep the order Eligible produced.
func quoteMessage(rows []funnel.PolicyRow, eligible []funnel.ServiceType, s funnel.State) string {
	var parts []string
	for _, svc := range eligible {
		if msg := funnel.OfferMessageFor(rows, svc, s.Equipment); msg != "" {
			parts = append(parts, msg)
			continue
		}
		parts = append(parts, defaultOfferMessage(svc))
	}
	return strings.Join(parts, " ") + " Quer agendar?"
}

func defaultOfferMessage(svc funnel.ServiceType) string {
	switch svc {
	case funnel.ServiceOnsite:
		return "Atendemos com visita técnica no seu endereço."
	case funnel.ServicePickupDiagnosis:
		return "Retiramos o aparelho para diagnóstico em bancada e enviamos o orçamento antes do reparo."
	case funnel.ServicePickupRepair:
		return "Retiramos o aparelho e devolvemos consertado, com garantia."
	}
	return "Podemos te atender!"
}

func slotFilled(s funnel.State, slot funnel.Slot) bool {
	switch slot {
	case funnel.SlotEquipment:
		return s.Equipment != ""
	case funnel.SlotBrand:
		return s.Brand != ""
	case funnel.SlotProblem:
		return s.Problem != ""
	case funnel.SlotMount:
		return s.EffectiveMount() != ""
	case funnel.SlotPower:
		return s.EffectivePower() != ""
	}
	return false
}

// nameLeadIns are conversational prefixes people put before their name.
// Longer phrases first so "sou a" wins over "sou".
var nameLeadIns = []string{
	"meu nome é", "meu nome e", "pode me chamar de", "me chamo",
	"aqui é o", "aqui é a", "aqui e o", "aqui e a",
	"sou o", "sou a", "sou", "é o", "é a", "nome:",
}

// parseCustomerName extracts the name span from a free-form answer, so
// "meu nome é Maria Souza" books as Maria, not "meu".
func parseCustomerName(answer string) string {
	name := strings.TrimSpace(answer)
	lowered := strings.ToLower(name)
	for _, lead := range nameLeadIns {
		if strings.HasPrefix(lowered, lead+" ") {
			name = strings.TrimSpace(name[len(lead):])
			break
		}
	}
	if name = strings.Trim(name, " .,!"); name != "" {
		return name
	}
	return strings.TrimSpace(answer)
}

func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func shortAnswer(message string) bool {
	return len(strings.Fields(message)) <= 4
}

// keyedMutex serializes turns per session key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*lockEntry)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
