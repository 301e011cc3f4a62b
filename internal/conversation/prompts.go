package conversation

import (
	"fmt"
	"strings"

	"github.com/reparoja/reparoja-ai-platform/internal/funnel"
)

// extractionSystemPrompt instructs the model to pull appliance slots out of a
// customer message. The reply must be a single JSON object; anything else is
// discarded and the deterministic extractor takes over.
const extractionSystemPrompt = `Você é um extrator de dados de uma assistência técnica de eletrodomésticos no Brasil.
Dada a mensagem de um cliente, extraia os campos abaixo. Responda APENAS com um objeto JSON, sem comentários.

Campos (use "" quando a mensagem não informar):
- "equipment": o aparelho como o cliente descreveu, ex: "fogão a gás", "micro-ondas", "coifa"
- "brand": a marca, ex: "Brastemp", "Consul", "Electrolux"
- "problem": o defeito relatado, ex: "não acende", "não esquenta"
- "mount": "piso", "cooktop", "bancada" ou "embutido"
- "power": "gás", "indução" ou "elétrico"
- "burner_count": número de bocas como inteiro, ou 0

Não invente valores. Copie os termos do cliente.`

// decisionSystemPrompt asks the model to classify the turn. The engine only
// trusts the coarse labels; every consequential action is validated against
// the deterministic rules afterwards.
const decisionSystemPrompt = `Você é o roteador de uma assistência técnica de eletrodomésticos no Brasil.
Classifique a mensagem do cliente e responda APENAS com um objeto JSON:

- "intent": um de "repair", "installation", "schedule", "question", "affirmative", "negative", "unknown"
- "wants_schedule": true se o cliente pediu para agendar ou marcar uma visita/coleta

"repair" cobre qualquer defeito ou conserto. "installation" só quando o cliente quer instalar um aparelho e NÃO relata defeito. "affirmative"/"negative" para respostas curtas de sim/não.`

func extractionUserPrompt(message string, s funnel.State) string {
	var b strings.Builder
	if s.Equipment != "" || s.Brand != "" || s.Problem != "" {
		b.WriteString("Já sabemos: ")
		if s.Equipment != "" {
			fmt.Fprintf(&b, "aparelho=%q ", s.Equipment)
		}
		if s.Brand != "" {
			fmt.Fprintf(&b, "marca=%q ", s.Brand)
		}
		if s.Problem != "" {
			fmt.Fprintf(&b, "defeito=%q ", s.Problem)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Mensagem do cliente: %q", message)
	return b.String()
}

func decisionUserPrompt(message string) string {
	return fmt.Sprintf("Mensagem do cliente: %q", message)
}
