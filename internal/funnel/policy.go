package funnel

import "strings"

// ServiceType is one of the three fulfillment policies.
type ServiceType string

const (
	ServiceOnsite          ServiceType = "onsite"
	ServicePickupDiagnosis ServiceType = "pickup-diagnosis"
	ServicePickupRepair    ServiceType = "pickup-repair"
)

// PolicyRow is one row of the configurable service-policy table.
type PolicyRow struct {
	Service      ServiceType `json:"service_type"`
	Keywords     []string    `json:"equipment_keywords"`
	OfferMessage string      `json:"offer_message,omitempty"`
	Enabled      bool        `json:"enabled"`
}

// Slot names the attribute the policy engine is still missing.
type Slot string

const (
	SlotEquipment Slot = "equipment"
	SlotBrand     Slot = "brand"
	SlotProblem   Slot = "problem"
	SlotMount     Slot = "mount"
	SlotPower     Slot = "power"
)

// AmbiguousSlot reports which disambiguating attribute must be known before
// any policy may fire for the state's equipment family. Stoves and cooktops
// need a power source; ovens and microwaves need a mount type.
func AmbiguousSlot(s State) (Slot, bool) {
	switch FamilyOf(s.Equipment) {
	case FamilyStove:
		if s.EffectivePower() == "" {
			return SlotPower, true
		}
	case FamilyOven, FamilyMicrowave:
		if s.EffectiveMount() == "" {
			return SlotMount, true
		}
	}
	return "", false
}

// genericFallbackOrder fixes the category priority for keyword matching.
var genericFallbackOrder = []ServiceType{
	ServicePickupRepair,
	ServicePickupDiagnosis,
	ServiceOnsite,
}

// Eligible maps the current state to the ordered, de-duplicated list of
// service categories it qualifies for. An empty result means "ask a clarifying
// question", never an error.
//
// Priority is: ambiguity gate, then the specific rules below in order. The
// generic keyword fallback runs only when no specific rule matched; a state
// precise enough for a specific rule must not pick up extra categories from
// looser table keywords ("fogao" is a substring of the "fogao eletrico" row
// keyword, but a gas stove is onsite only).
func Eligible(rows []PolicyRow, s State) []ServiceType {
	if _, ambiguous := AmbiguousSlot(s); ambiguous {
		return nil
	}

	family := FamilyOf(s.Equipment)
	if family == FamilyUnknown && Normalize(s.Equipment) == "" {
		return nil
	}

	power := s.EffectivePower()
	mount := s.EffectiveMount()

	var out []ServiceType
	appendUnique := func(svc ServiceType) {
		for _, existing := range out {
			if existing == svc {
				return
			}
		}
		out = append(out, svc)
	}

	// Specific rules, most specific first.
	switch {
	case family == FamilyMicrowave && mount == MountCountertop,
		family == FamilyOven && mount == MountCountertop:
		appendUnique(ServicePickupRepair)
	case family == FamilyStove && (power == PowerInduction || power == PowerElectric),
		family == FamilyOven && mount == MountBuiltIn && power == PowerElectric,
		family == FamilyMicrowave && mount == MountBuiltIn,
		family == FamilyWineCooler:
		appendUnique(ServicePickupDiagnosis)
	case family == FamilyStove && power == PowerGas,
		family == FamilyHood:
		appendUnique(ServiceOnsite)
	}

	if len(out) > 0 {
		return out
	}

	// Generic fallback over the policy table, in fixed category priority.
	equipment := Normalize(s.Equipment)
	for _, svc := range genericFallbackOrder {
		for _, row := range rows {
			if !row.Enabled || row.Service != svc {
				continue
			}
			if rowMatches(row, equipment) {
				appendUnique(svc)
				break
			}
		}
	}

	return out
}

// rowMatches checks keyword containment in either direction: the row keyword
// inside the equipment text, or the equipment text inside the keyword.
func rowMatches(row PolicyRow, equipment string) bool {
	if equipment == "" {
		return false
	}
	for _, kw := range row.Keywords {
		k := Normalize(kw)
		if k == "" {
			continue
		}
		if strings.Contains(equipment, k) || strings.Contains(k, equipment) {
			return true
		}
	}
	return false
}

// OfferMessageFor returns the configured offer text for the first enabled row
// of the given category that matches the equipment, or empty when none does.
func OfferMessageFor(rows []PolicyRow, svc ServiceType, equipment string) string {
	normalized := Normalize(equipment)
	for _, row := range rows {
		if !row.Enabled || row.Service != svc || row.OfferMessage == "" {
			continue
		}
		if rowMatches(row, normalized) {
			return row.OfferMessage
		}
	}
	return ""
}
