package conversation

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/reparoja/reparoja-ai-platform/internal/funnel"
	"github.com/reparoja/reparoja-ai-platform/internal/observability/metrics"
)

// Intent is the coarse classification of a customer turn.
type Intent string

const (
	IntentRepair       Intent = "repair"
	IntentInstallation Intent = "installation"
	IntentSchedule     Intent = "schedule"
	IntentQuestion     Intent = "question"
	IntentAffirmative  Intent = "affirmative"
	IntentNegative     Intent = "negative"
	IntentUnknown      Intent = "unknown"
)

// Decision is what the router hands the engine. The engine treats it as a
// hint; slot state and the policy table stay authoritative.
type Decision struct {
	Intent        Intent `json:"intent"`
	WantsSchedule bool   `json:"wants_schedule"`
}

// DecisionRouter classifies turns with the model, degrading to keyword
// heuristics on any failure.
type DecisionRouter struct {
	llm     LLMClient
	model   string
	logger  *slog.Logger
	metrics *metrics.ConversationMetrics
}

func NewDecisionRouter(llm LLMClient, model string, logger *slog.Logger, m *metrics.ConversationMetrics) *DecisionRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DecisionRouter{llm: llm, model: model, logger: logger, metrics: m}
}

func (r *DecisionRouter) Decide(ctx context.Context, message string) Decision {
	normalized := funnel.Normalize(message)
	heuristic := heuristicDecision(normalized)

	if r == nil || r.llm == nil {
		return heuristic
	}

	resp, err := r.llm.Complete(ctx, LLMRequest{
		Model:       r.model,
		System:      []string{decisionSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: decisionUserPrompt(message)}},
		MaxTokens:   128,
		Temperature: 0,
	})
	if err != nil {
		r.logger.Warn("router: llm failed, using heuristic", "error", err)
		r.metrics.ObserveLLMFallback("router")
		return heuristic
	}

	obj, ok := extractJSONObject(resp.Text)
	if !ok {
		r.metrics.ObserveLLMFallback("router")
		return heuristic
	}
	var d Decision
	if err := json.Unmarshal([]byte(obj), &d); err != nil {
		r.metrics.ObserveLLMFallback("router")
		return heuristic
	}

	switch d.Intent {
	case IntentRepair, IntentInstallation, IntentSchedule, IntentQuestion,
		IntentAffirmative, IntentNegative, IntentUnknown:
	default:
		d.Intent = heuristic.Intent
	}
	// Deterministic repair evidence always beats the model's label. This is
	// what keeps installation handling from swallowing defect reports.
	if heuristic.Intent == IntentRepair {
		d.Intent = IntentRepair
	}
	d.WantsSchedule = d.WantsSchedule || heuristic.WantsSchedule
	return d
}

var scheduleMarkers = []string{
	"agendar", "agenda", "marcar", "marca uma", "pode vir", "podem vir",
	"quando vem", "quando podem", "manda o tecnico", "mandar o tecnico",
}

var affirmativeWords = map[string]bool{
	"sim": true, "pode": true, "pode sim": true, "pode ser": true,
	"ok": true, "claro": true, "isso": true, "quero": true, "vamos": true,
	"beleza": true, "fechado": true, "perfeito": true, "bora": true,
	"aceito": true, "combinado": true, "por favor": true, "sim por favor": true,
}

var negativeWords = map[string]bool{
	"nao": true, "nao quero": true, "nao precisa": true, "agora nao": true,
	"nao obrigado": true, "nao obrigada": true, "deixa": true,
}

// heuristicDecision classifies a normalized message with keyword tables only.
func heuristicDecision(normalized string) Decision {
	var d Decision
	for _, m := range scheduleMarkers {
		if strings.Contains(normalized, m) {
			d.WantsSchedule = true
			break
		}
	}

	exact := strings.Trim(normalized, " .!?")
	sig := funnel.DetectSignals(normalized)
	switch {
	case sig.LooksLikeRepair:
		d.Intent = IntentRepair
	case sig.MentionsInstall && !sig.NegatedInstall:
		d.Intent = IntentInstallation
	case d.WantsSchedule:
		d.Intent = IntentSchedule
	case affirmativeWords[exact]:
		d.Intent = IntentAffirmative
	case negativeWords[exact] || sig.NegatedInstall:
		d.Intent = IntentNegative
	case strings.HasPrefix(normalized, "quanto") || strings.HasPrefix(normalized, "qual") ||
		strings.HasPrefix(normalized, "como") || strings.HasSuffix(normalized, "?"):
		d.Intent = IntentQuestion
	default:
		d.Intent = IntentUnknown
	}
	return d
}
