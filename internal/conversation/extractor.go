package conversation

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/reparoja/reparoja-ai-platform/internal/funnel"
	"github.com/reparoja/reparoja-ai-platform/internal/observability/metrics"
)

// EntityExtractor turns a free-text customer message into a funnel.Patch.
// It asks the model first and falls back to keyword tables whenever the model
// is unavailable or returns garbage, so a turn never fails on extraction.
type EntityExtractor struct {
	llm     LLMClient
	model   string
	logger  *slog.Logger
	metrics *metrics.ConversationMetrics
}

func NewEntityExtractor(llm LLMClient, model string, logger *slog.Logger, m *metrics.ConversationMetrics) *EntityExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntityExtractor{llm: llm, model: model, logger: logger, metrics: m}
}

type llmPatch struct {
	Equipment   string `json:"equipment"`
	Brand       string `json:"brand"`
	Problem     string `json:"problem"`
	Mount       string `json:"mount"`
	Power       string `json:"power"`
	BurnerCount int    `json:"burner_count"`
}

// Extract builds a patch for the message. The deterministic tables always
// run; model output only fills fields the tables left empty.
func (e *EntityExtractor) Extract(ctx context.Context, message string, prev funnel.State) funnel.Patch {
	normalized := funnel.Normalize(message)
	patch := fallbackPatch(normalized)

	if e == nil || e.llm == nil {
		return patch
	}

	resp, err := e.llm.Complete(ctx, LLMRequest{
		Model:       e.model,
		System:      []string{extractionSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: extractionUserPrompt(message, prev)}},
		MaxTokens:   256,
		Temperature: 0,
	})
	if err != nil {
		e.logger.Warn("extractor: llm failed, using keyword tables", "error", err)
		e.metrics.ObserveLLMFallback("extractor")
		return patch
	}

	obj, ok := extractJSONObject(resp.Text)
	if !ok {
		e.logger.Warn("extractor: no JSON object in llm reply")
		e.metrics.ObserveLLMFallback("extractor")
		return patch
	}
	var lp llmPatch
	if err := json.Unmarshal([]byte(obj), &lp); err != nil {
		e.logger.Warn("extractor: invalid JSON from llm", "error", err)
		e.metrics.ObserveLLMFallback("extractor")
		return patch
	}

	if patch.Equipment == "" {
		patch.Equipment = strings.TrimSpace(lp.Equipment)
	}
	if patch.Brand == "" {
		patch.Brand = strings.TrimSpace(lp.Brand)
	}
	if patch.Problem == "" {
		patch.Problem = strings.TrimSpace(lp.Problem)
	}
	if patch.Mount == "" {
		patch.Mount = funnel.ParseMount(lp.Mount)
	}
	if patch.Power == "" {
		patch.Power = funnel.ParsePower(lp.Power)
	}
	if patch.BurnerCount == "" && lp.BurnerCount > 0 && lp.BurnerCount <= 8 {
		patch.BurnerCount = strconv.Itoa(lp.BurnerCount)
	}
	return patch
}

// equipmentSynonyms maps detected phrases to the canonical form stored in the
// funnel. Keys are normalized.
var equipmentSynonyms = map[string]string{
	"microondas":             "micro-ondas",
	"micro ondas":            "micro-ondas",
	"maquina de lavar loucas": "lava-louças",
	"lavadora de loucas":     "lava-louças",
	"lava loucas":            "lava-louças",
	"maquina de lavar roupa": "máquina de lavar",
	"lavadora de roupas":     "máquina de lavar",
	"lavadora":               "máquina de lavar",
	"refrigerador":           "geladeira",
}

// equipmentPhrases lists every appliance phrase the fallback recognizes,
// normalized. Longest match wins so "fogao a gas" beats "fogao".
var equipmentPhrases = []string{
	"fogao a gas",
	"fogao de inducao",
	"fogao por inducao",
	"fogao eletrico",
	"fogao industrial",
	"fogao",
	"cooktop a gas",
	"cooktop de inducao",
	"cooktop",
	"forno eletrico de embutir",
	"forno de embutir",
	"forno eletrico de bancada",
	"forno de bancada",
	"forno eletrico",
	"forno a gas",
	"forno",
	"micro-ondas",
	"microondas",
	"micro ondas",
	"coifa",
	"depurador",
	"exaustor",
	"geladeira",
	"refrigerador",
	"freezer",
	"frigobar",
	"adega",
	"maquina de lavar loucas",
	"lavadora de loucas",
	"lava loucas",
	"lava-loucas",
	"maquina de lavar roupa",
	"lavadora de roupas",
	"maquina de lavar",
	"lavadora",
	"lava e seca",
	"secadora",
}

func init() {
	sort.Slice(equipmentPhrases, func(i, j int) bool {
		return len(equipmentPhrases[i]) > len(equipmentPhrases[j])
	})
}

// knownBrands maps the normalized brand token to its display form.
var knownBrands = map[string]string{
	"brastemp":    "Brastemp",
	"consul":      "Consul",
	"electrolux":  "Electrolux",
	"fischer":     "Fischer",
	"suggar":      "Suggar",
	"atlas":       "Atlas",
	"esmaltec":    "Esmaltec",
	"dako":        "Dako",
	"mueller":     "Mueller",
	"continental": "Continental",
	"tramontina":  "Tramontina",
	"philco":      "Philco",
	"midea":       "Midea",
	"panasonic":   "Panasonic",
	"samsung":     "Samsung",
	"bosch":       "Bosch",
	"lg":          "LG",
}

var problemRes = []*regexp.Regexp{
	regexp.MustCompile(`nao (?:liga|acende|esquenta|gela|funciona|centrifuga|seca|gira|enche|drena)m?\b`),
	regexp.MustCompile(`(?:esta|ta) (?:vazando|pingando|fazendo barulho|com defeito|queimado|queimada)`),
	regexp.MustCompile(`vazando (?:gas|agua)`),
	regexp.MustCompile(`(?:dando|deu) (?:choque|curto|problema|defeito)`),
	regexp.MustCompile(`fazendo (?:barulho|faisca|fumaca)`),
	regexp.MustCompile(`(?:quebrou|quebrado|quebrada|pifou|parou de funcionar)`),
	regexp.MustCompile(`com defeito`),
}

var burnerCountRe = regexp.MustCompile(`\b(\d|uma|duas|tres|quatro|cinco|seis)\s+bocas?\b`)

var burnerWords = map[string]int{
	"uma": 1, "duas": 2, "tres": 3, "quatro": 4, "cinco": 5, "seis": 6,
}

// fallbackPatch runs the keyword tables over a normalized message.
func fallbackPatch(normalized string) funnel.Patch {
	var p funnel.Patch

	for _, phrase := range equipmentPhrases {
		if strings.Contains(normalized, phrase) {
			if canonical, ok := equipmentSynonyms[phrase]; ok {
				p.Equipment = canonical
			} else {
				p.Equipment = phrase
			}
			break
		}
	}

	for token, display := range knownBrands {
		if containsWord(normalized, token) {
			p.Brand = display
			break
		}
	}

	for _, re := range problemRes {
		if m := re.FindString(normalized); m != "" {
			p.Problem = m
			break
		}
	}

	// Slot answers go through funnel.ParseMount/ParsePower in the engine;
	// over a full message only the unambiguous markers are trusted.
	switch {
	case strings.Contains(normalized, "embutid") || strings.Contains(normalized, "embutir"):
		p.Mount = funnel.MountBuiltIn
	case strings.Contains(normalized, "bancada"):
		p.Mount = funnel.MountCountertop
	case strings.Contains(normalized, "cooktop"):
		p.Mount = funnel.MountCooktop
	}
	switch {
	case strings.Contains(normalized, "inducao"):
		p.Power = funnel.PowerInduction
	case containsWord(normalized, "gas"):
		p.Power = funnel.PowerGas
	case strings.Contains(normalized, "eletric"):
		p.Power = funnel.PowerElectric
	}

	if m := burnerCountRe.FindStringSubmatch(normalized); m != nil {
		// "duas bocas nao acendem" states a defect, not the stove size.
		rest := normalized[strings.Index(normalized, m[0])+len(m[0]):]
		if !strings.HasPrefix(strings.TrimSpace(rest), "nao") {
			if n, ok := burnerWords[m[1]]; ok {
				p.BurnerCount = strconv.Itoa(n)
			} else if m[1] >= "1" && m[1] <= "8" {
				p.BurnerCount = m[1]
			}
		}
	}

	return p
}

func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		leftOK := start == 0 || s[start-1] == ' '
		rightOK := end == len(s) || s[end] == ' '
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}
