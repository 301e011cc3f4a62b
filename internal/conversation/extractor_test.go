package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reparoja/reparoja-ai-platform/internal/funnel"
)

type fakeLLM struct {
	text string
	err  error
	seen []LLMRequest
}

func (f *fakeLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	f.seen = append(f.seen, req)
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Text: f.text}, nil
}

func TestFallbackPatch(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    funnel.Patch
	}{
		{
			name:    "longest equipment phrase wins",
			message: "meu fogao a gas brastemp nao acende",
			want:    funnel.Patch{Equipment: "fogao a gas", Brand: "Brastemp", Problem: "nao acende", Power: funnel.PowerGas},
		},
		{
			name:    "microwave synonym canonicalized",
			message: "o microondas nao esquenta",
			want:    funnel.Patch{Equipment: "micro-ondas", Problem: "nao esquenta"},
		},
		{
			name:    "dishwasher long form",
			message: "minha maquina de lavar loucas esta vazando",
			want:    funnel.Patch{Equipment: "lava-louças", Problem: "esta vazando"},
		},
		{
			name:    "built-in oven",
			message: "forno de embutir consul",
			want:    funnel.Patch{Equipment: "forno de embutir", Brand: "Consul", Mount: funnel.MountBuiltIn},
		},
		{
			name:    "burner count as word",
			message: "fogao de quatro bocas",
			want:    funnel.Patch{Equipment: "fogao", BurnerCount: "4"},
		},
		{
			name:    "burner count in defect is not a size",
			message: "duas bocas nao acendem",
			want:    funnel.Patch{Problem: "nao acendem"},
		},
		{
			name:    "gasta does not mean gas",
			message: "o fogao gasta muito",
			want:    funnel.Patch{Equipment: "fogao"},
		},
		{
			name:    "nothing recognized",
			message: "bom dia",
			want:    funnel.Patch{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fallbackPatch(funnel.Normalize(tt.message))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractLLMFillsMissingFields(t *testing.T) {
	llm := &fakeLLM{text: `{"equipment":"","brand":"Fischer","problem":"porta nao fecha","mount":"embutido","power":"","burner_count":0}`}
	ex := NewEntityExtractor(llm, "test-model", nil, nil)

	patch := ex.Extract(context.Background(), "o forno ta com a porta ruim", funnel.State{})
	assert.Equal(t, "forno", patch.Equipment) // from the keyword tables
	assert.Equal(t, "Fischer", patch.Brand)
	assert.Equal(t, "porta nao fecha", patch.Problem)
	assert.Equal(t, funnel.MountBuiltIn, patch.Mount)
}

func TestExtractTablesBeatLLM(t *testing.T) {
	llm := &fakeLLM{text: `{"equipment":"geladeira","brand":"Samsung"}`}
	ex := NewEntityExtractor(llm, "test-model", nil, nil)

	patch := ex.Extract(context.Background(), "meu fogao a gas consul", funnel.State{})
	assert.Equal(t, "fogao a gas", patch.Equipment)
	assert.Equal(t, "Consul", patch.Brand)
}

func TestExtractLLMFailureFallsBack(t *testing.T) {
	llm := &fakeLLM{err: errors.New("model unavailable")}
	ex := NewEntityExtractor(llm, "test-model", nil, nil)

	patch := ex.Extract(context.Background(), "minha coifa esta fazendo barulho", funnel.State{})
	assert.Equal(t, "coifa", patch.Equipment)
	assert.NotEmpty(t, patch.Problem)
}

func TestExtractGarbageLLMReplyFallsBack(t *testing.T) {
	llm := &fakeLLM{text: "desculpe, não entendi"}
	ex := NewEntityExtractor(llm, "test-model", nil, nil)

	patch := ex.Extract(context.Background(), "cooktop electrolux", funnel.State{})
	assert.Equal(t, "cooktop", patch.Equipment)
	assert.Equal(t, "Electrolux", patch.Brand)
	assert.Equal(t, funnel.MountCooktop, patch.Mount)
}

func TestExtractNilReceiverUsesTables(t *testing.T) {
	var ex *EntityExtractor
	patch := ex.Extract(context.Background(), "fogao 6 bocas dako", funnel.State{})
	assert.Equal(t, "fogao", patch.Equipment)
	assert.Equal(t, "Dako", patch.Brand)
	assert.Equal(t, "6", patch.BurnerCount)
}
