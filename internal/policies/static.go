package policies

import (
	"context"

	"github.com/reparoja/reparoja-ai-platform/internal/funnel"
)

// StaticSource serves a fixed in-memory policy table. Used in development and
// as the fallback when Postgres is unavailable.
type StaticSource struct {
	rows []funnel.PolicyRow
}

// NewStaticSource wraps the given rows; with none, DefaultRows is used.
func NewStaticSource(rows []funnel.PolicyRow) *StaticSource {
	if len(rows) == 0 {
		rows = DefaultRows()
	}
	return &StaticSource{rows: rows}
}

// List returns the configured rows. Never fails.
func (s *StaticSource) List(_ context.Context) ([]funnel.PolicyRow, error) {
	out := make([]funnel.PolicyRow, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

// DefaultRows is the baseline policy table shipped with the product.
func DefaultRows() []funnel.PolicyRow {
	return []funnel.PolicyRow{
		{
			Service:      funnel.ServiceOnsite,
			Keywords:     []string{"fogão a gás", "coifa", "depurador", "geladeira", "refrigerador", "freezer", "máquina de lavar", "lava-louças", "secadora"},
			OfferMessage: "Fazemos a visita técnica no seu endereço. A taxa de visita é abatida do valor do conserto.",
			Enabled:      true,
		},
		{
			Service:      funnel.ServicePickupDiagnosis,
			Keywords:     []string{"cooktop", "fogão elétrico", "fogão de indução", "forno de embutir", "adega"},
			OfferMessage: "Retiramos o aparelho, fazemos o diagnóstico na bancada e enviamos o orçamento antes de qualquer reparo.",
			Enabled:      true,
		},
		{
			Service:      funnel.ServicePickupRepair,
			Keywords:     []string{"micro-ondas", "forno de bancada", "forno elétrico de bancada"},
			OfferMessage: "Retiramos o aparelho e devolvemos consertado, com garantia de 90 dias.",
			Enabled:      true,
		},
	}
}
