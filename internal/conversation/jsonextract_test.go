package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"markdown fence", "```json\n{\"intent\":\"repair\"}\n```", `{"intent":"repair"}`, true},
		{"prose around", `Claro! Aqui está: {"equipment":"fogão"} espero que ajude`, `{"equipment":"fogão"}`, true},
		{"nested", `{"a":{"b":2}}`, `{"a":{"b":2}}`, true},
		{"brace inside string", `{"msg":"usa { sem fechar"}`, `{"msg":"usa { sem fechar"}`, true},
		{"escaped quote", `{"msg":"diz \"oi\" {"}`, `{"msg":"diz \"oi\" {"}`, true},
		{"no object", "sem json aqui", "", false},
		{"unbalanced", `{"a":1`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSONObject(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
