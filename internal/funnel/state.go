package funnel

import "strings"

// Family is the broad equipment category derived from the free-text equipment
// description. It is always recomputed from Equipment, never set directly.
type Family string

const (
	FamilyStove      Family = "stove"
	FamilyOven       Family = "oven"
	FamilyMicrowave  Family = "microwave"
	FamilyWasher     Family = "washer"
	FamilyDishwasher Family = "dishwasher"
	FamilyDryer      Family = "dryer"
	FamilyFridge     Family = "fridge"
	FamilyHood       Family = "hood"
	FamilyWineCooler Family = "wine-cooler"
	FamilyUnknown    Family = "unknown"
)

// Mount describes how the equipment is installed.
type Mount string

const (
	MountFloor      Mount = "floor"
	MountCooktop    Mount = "cooktop"
	MountCountertop Mount = "countertop"
	MountBuiltIn    Mount = "built-in"
)

// Power is the equipment's energy source.
type Power string

const (
	PowerGas       Power = "gas"
	PowerInduction Power = "induction"
	PowerElectric  Power = "electric"
)

// State holds the slots collected across a conversation. Fields are monotonic:
// once set they are only replaced by a strictly more specific value.
type State struct {
	Equipment   string `json:"equipment,omitempty"`
	Family      Family `json:"family,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Problem     string `json:"problem,omitempty"`
	Mount       Mount  `json:"mount,omitempty"`
	Power       Power  `json:"power,omitempty"`
	BurnerCount string `json:"burner_count,omitempty"`
}

// Patch is a partial set of extracted slot values. Empty string means "no
// information", never "clear the slot".
type Patch struct {
	Equipment   string `json:"equipment,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Problem     string `json:"problem,omitempty"`
	Mount       Mount  `json:"mount,omitempty"`
	Power       Power  `json:"power,omitempty"`
	BurnerCount string `json:"burner_count,omitempty"`
}

// IsEmpty reports whether the patch carries no information at all.
func (p Patch) IsEmpty() bool {
	return p.Equipment == "" && p.Brand == "" && p.Problem == "" &&
		p.Mount == "" && p.Power == "" && p.BurnerCount == ""
}

// Merge folds a patch into a previous state. Pure and idempotent: applying the
// same patch twice yields the same result as applying it once.
//
// Every slot is fill-if-empty, except Equipment: a strictly longer normalized
// description overwrites a shorter one ("fogao a gas" beats "fogao"). Family
// is recomputed from the merged Equipment unconditionally.
func Merge(prev State, p Patch) State {
	next := prev

	if p.Equipment != "" {
		newEq := Normalize(p.Equipment)
		curEq := Normalize(next.Equipment)
		if curEq == "" || len(newEq) > len(curEq) {
			next.Equipment = p.Equipment
		}
	}
	if next.Brand == "" && p.Brand != "" {
		next.Brand = p.Brand
	}
	if next.Problem == "" && p.Problem != "" {
		next.Problem = p.Problem
	}
	if next.Mount == "" && p.Mount != "" {
		next.Mount = p.Mount
	}
	if next.Power == "" && p.Power != "" {
		next.Power = p.Power
	}
	if next.BurnerCount == "" && p.BurnerCount != "" {
		next.BurnerCount = p.BurnerCount
	}

	next.Family = FamilyOf(next.Equipment)
	return next
}

// familyRules map normalized equipment substrings to families. Order matters:
// "forno micro-ondas" must classify as microwave, and dishwasher variants must
// win over the generic washer terms.
var familyRules = []struct {
	keywords []string
	family   Family
}{
	{[]string{"micro"}, FamilyMicrowave},
	{[]string{"lava lou", "lava-lou", "lavalou", "lavar lou"}, FamilyDishwasher},
	{[]string{"lava e seca", "secadora"}, FamilyDryer},
	{[]string{"lava roup", "lava-roup", "lavadora", "maquina de lavar", "tanquinho"}, FamilyWasher},
	{[]string{"fogao", "cooktop"}, FamilyStove},
	{[]string{"forno"}, FamilyOven},
	{[]string{"geladeira", "refrigerador", "freezer", "frigobar"}, FamilyFridge},
	{[]string{"coifa", "depurador", "exaustor"}, FamilyHood},
	{[]string{"adega"}, FamilyWineCooler},
}

// FamilyOf derives the family from an equipment description. First matching
// rule wins; no match yields FamilyUnknown.
func FamilyOf(equipment string) Family {
	normalized := Normalize(equipment)
	if normalized == "" {
		return FamilyUnknown
	}
	for _, rule := range familyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, kw) {
				return rule.family
			}
		}
	}
	return FamilyUnknown
}

// SameFamily reports whether two equipment descriptions resolve to the same
// known family. Two unknown-family strings are never considered equivalent.
func SameFamily(a, b string) bool {
	fa, fb := FamilyOf(a), FamilyOf(b)
	return fa != FamilyUnknown && fa == fb
}

// EffectivePower returns the explicit power slot, or one inferred from the
// equipment description ("fogao a gas", "forno eletrico").
func (s State) EffectivePower() Power {
	if s.Power != "" {
		return s.Power
	}
	return powerFromText(s.Equipment)
}

// EffectiveMount returns the explicit mount slot, or one inferred from the
// equipment description ("forno de embutir", "micro-ondas de bancada").
func (s State) EffectiveMount() Mount {
	if s.Mount != "" {
		return s.Mount
	}
	return mountFromText(s.Equipment)
}

func powerFromText(text string) Power {
	n := Normalize(text)
	switch {
	case n == "":
		return ""
	case strings.Contains(n, "inducao"):
		return PowerInduction
	case strings.Contains(n, "a gas") || strings.Contains(n, "de gas") || strings.HasSuffix(n, "gas"):
		return PowerGas
	case strings.Contains(n, "eletric"):
		return PowerElectric
	}
	return ""
}

func mountFromText(text string) Mount {
	n := Normalize(text)
	switch {
	case n == "":
		return ""
	case strings.Contains(n, "embutid") || strings.Contains(n, "de embutir"):
		return MountBuiltIn
	case strings.Contains(n, "bancada") || strings.Contains(n, "de mesa"):
		return MountCountertop
	case strings.Contains(n, "cooktop"):
		return MountCooktop
	case strings.Contains(n, "de piso"):
		return MountFloor
	}
	return ""
}

// ParseMount maps free-text mount answers to the canonical enum.
func ParseMount(text string) Mount {
	n := Normalize(text)
	switch {
	case n == "":
		return ""
	case strings.Contains(n, "embutid") || strings.Contains(n, "embutir"):
		return MountBuiltIn
	case strings.Contains(n, "bancada") || strings.Contains(n, "mesa") || strings.Contains(n, "balcao"):
		return MountCountertop
	case strings.Contains(n, "cooktop"):
		return MountCooktop
	case strings.Contains(n, "piso") || strings.Contains(n, "chao"):
		return MountFloor
	}
	return ""
}

// ParsePower maps free-text power answers to the canonical enum.
func ParsePower(text string) Power {
	n := Normalize(text)
	switch {
	case n == "":
		return ""
	case strings.Contains(n, "inducao"):
		return PowerInduction
	case strings.Contains(n, "gas"):
		return PowerGas
	case strings.Contains(n, "eletric") || strings.Contains(n, "energia"):
		return PowerElectric
	}
	return ""
}
