package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeFillsEmptySlots(t *testing.T) {
	prev := State{}
	patch := Patch{
		Equipment: "fogão",
		Brand:     "Brastemp",
		Problem:   "não acende",
		Power:     PowerGas,
	}

	next := Merge(prev, patch)

	assert.Equal(t, "fogão", next.Equipment)
	assert.Equal(t, "Brastemp", next.Brand)
	assert.Equal(t, "não acende", next.Problem)
	assert.Equal(t, PowerGas, next.Power)
	assert.Equal(t, FamilyStove, next.Family)
}

func TestMergeNeverClearsKnownValues(t *testing.T) {
	prev := State{
		Equipment: "fogão a gás",
		Family:    FamilyStove,
		Brand:     "Consul",
		Mount:     MountFloor,
	}

	next := Merge(prev, Patch{})

	assert.Equal(t, prev, next)
}

func TestMergeIdempotence(t *testing.T) {
	states := []State{
		{},
		{Equipment: "fogão", Family: FamilyStove},
		{Equipment: "micro-ondas", Family: FamilyMicrowave, Brand: "LG", Mount: MountCountertop},
	}
	patches := []Patch{
		{},
		{Equipment: "fogão a gás", Power: PowerGas},
		{Brand: "Electrolux", Problem: "não gela", BurnerCount: "4"},
	}

	for _, s := range states {
		for _, p := range patches {
			once := Merge(s, p)
			twice := Merge(once, p)
			assert.Equal(t, once, twice, "merge must be idempotent for state %+v patch %+v", s, p)
		}
	}
}

func TestMergeMonotonicEquipmentSpecificity(t *testing.T) {
	s := Merge(State{}, Patch{Equipment: "fogão"})
	s = Merge(s, Patch{Equipment: "fogão a gás"})
	assert.Equal(t, "fogão a gás", s.Equipment, "longer description must overwrite")

	// Reverse order must not regress to the shorter string.
	s = Merge(State{}, Patch{Equipment: "fogão a gás"})
	s = Merge(s, Patch{Equipment: "fogão"})
	assert.Equal(t, "fogão a gás", s.Equipment, "shorter description must not regress")
}

func TestMergeRecomputesFamily(t *testing.T) {
	s := Merge(State{}, Patch{Equipment: "forno"})
	assert.Equal(t, FamilyOven, s.Family)

	// A more specific description can move the state into a different family;
	// the stored family never blocks that.
	s = Merge(s, Patch{Equipment: "forno micro-ondas de bancada"})
	assert.Equal(t, FamilyMicrowave, s.Family)
}

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		equipment string
		family    Family
	}{
		{"fogão", FamilyStove},
		{"Fogão a Gás 4 bocas", FamilyStove},
		{"cooktop por indução", FamilyStove},
		{"forno elétrico", FamilyOven},
		{"forno micro-ondas", FamilyMicrowave},
		{"microondas", FamilyMicrowave},
		{"máquina de lavar roupa", FamilyWasher},
		{"máquina de lavar louças", FamilyDishwasher},
		{"lava-louças", FamilyDishwasher},
		{"lavadora", FamilyWasher},
		{"secadora", FamilyDryer},
		{"geladeira duplex", FamilyFridge},
		{"coifa", FamilyHood},
		{"depurador de ar", FamilyHood},
		{"adega climatizada", FamilyWineCooler},
		{"ar condicionado", FamilyUnknown},
		{"", FamilyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.equipment, func(t *testing.T) {
			assert.Equal(t, tt.family, FamilyOf(tt.equipment))
		})
	}
}

func TestSameFamily(t *testing.T) {
	assert.True(t, SameFamily("fogão", "cooktop a gás"))
	assert.True(t, SameFamily("micro-ondas", "forno microondas"))
	assert.False(t, SameFamily("fogão", "forno"))
	// Two unknown-family strings are never equivalent.
	assert.False(t, SameFamily("ar condicionado", "ventilador"))
	assert.False(t, SameFamily("", ""))
}

func TestEffectivePowerAndMount(t *testing.T) {
	s := State{Equipment: "fogão a gás"}
	assert.Equal(t, PowerGas, s.EffectivePower())

	s = State{Equipment: "cooktop por indução"}
	assert.Equal(t, PowerInduction, s.EffectivePower())

	s = State{Equipment: "forno elétrico"}
	assert.Equal(t, PowerElectric, s.EffectivePower())

	// Explicit slot wins over text inference.
	s = State{Equipment: "fogão a gás", Power: PowerElectric}
	assert.Equal(t, PowerElectric, s.EffectivePower())

	s = State{Equipment: "forno de embutir"}
	assert.Equal(t, MountBuiltIn, s.EffectiveMount())

	s = State{Equipment: "micro-ondas de bancada"}
	assert.Equal(t, MountCountertop, s.EffectiveMount())

	s = State{Equipment: "fogão"}
	assert.Equal(t, Power(""), s.EffectivePower())
	assert.Equal(t, Mount(""), s.EffectiveMount())
}

func TestParseMountAndPower(t *testing.T) {
	assert.Equal(t, MountBuiltIn, ParseMount("é embutido"))
	assert.Equal(t, MountBuiltIn, ParseMount("de embutir"))
	assert.Equal(t, MountCountertop, ParseMount("fica na bancada"))
	assert.Equal(t, MountFloor, ParseMount("de piso"))
	assert.Equal(t, Mount(""), ParseMount("não sei"))

	assert.Equal(t, PowerGas, ParsePower("é a gás"))
	assert.Equal(t, PowerInduction, ParsePower("indução"))
	assert.Equal(t, PowerElectric, ParsePower("elétrico"))
	assert.Equal(t, Power(""), ParsePower("sei lá"))
}
