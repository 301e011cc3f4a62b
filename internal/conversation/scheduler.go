package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/reparoja/reparoja-ai-platform/internal/funnel"
	"github.com/reparoja/reparoja-ai-platform/internal/schedule"
)

// OfferedSlot is one appointment window as it was presented to the customer.
// The exact offered list is persisted so the confirmation turn matches against
// what the customer actually saw.
type OfferedSlot struct {
	Index    int       `json:"index"` // 1-based position in the offer message
	Label    string    `json:"label"`
	StartsAt time.Time `json:"starts_at"`
}

// OfferSlots converts provider slots into the offer that will be persisted.
func OfferSlots(slots []schedule.Slot) []OfferedSlot {
	out := make([]OfferedSlot, 0, len(slots))
	for i, s := range slots {
		out = append(out, OfferedSlot{Index: i + 1, Label: s.Label, StartsAt: s.StartsAt})
	}
	return out
}

// FormatSlotOffer renders the numbered offer message.
func FormatSlotOffer(slots []OfferedSlot) string {
	var b strings.Builder
	b.WriteString("Tenho estes horários disponíveis:\n")
	for _, s := range slots {
		fmt.Fprintf(&b, "%d. %s\n", s.Index, s.Label)
	}
	b.WriteString("Qual fica melhor para você? Pode responder com o número.")
	return b.String()
}

var (
	ordinalDigitRe = regexp.MustCompile(`\b([1-9])\b|\bopcao ([1-9])\b`)
	timeRe         = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2})|h(\d{2})?)?\b`)
)

var ordinalWords = map[string]int{
	"primeiro": 1, "primeira": 1,
	"segundo": 2, "segunda": 2,
	"terceiro": 3, "terceira": 3,
	"quarto": 4, "quarta": 4,
	"quinto": 5, "quinta": 5,
	"sexto": 6, "sexta": 6,
}

// MatchOfferedSlot resolves a confirmation message against the offered list.
// Three forms are accepted, tried in order: a bare ordinal digit ("2"), an
// ordinal word ("a primeira"), or a time mentioned in the slot label ("pode
// ser as 14h"). No match returns false and the engine re-offers.
func MatchOfferedSlot(message string, offered []OfferedSlot) (OfferedSlot, bool) {
	if len(offered) == 0 {
		return OfferedSlot{}, false
	}
	normalized := funnel.Normalize(message)

	if m := ordinalDigitRe.FindStringSubmatch(normalized); m != nil {
		digit := m[1]
		if digit == "" {
			digit = m[2]
		}
		if n, err := strconv.Atoi(digit); err == nil {
			for _, s := range offered {
				if s.Index == n {
					return s, true
				}
			}
		}
	}

	for word, n := range ordinalWords {
		if !containsWord(normalized, word) {
			continue
		}
		// "segunda" and similar double as weekday names. Only trust the
		// word when no slot label carries that weekday.
		if weekdayCollision(word, offered) {
			continue
		}
		for _, s := range offered {
			if s.Index == n {
				return s, true
			}
		}
	}

	for _, tm := range timeMentions(normalized) {
		for _, s := range offered {
			if s.StartsAt.Hour() == tm.hour && (tm.minute < 0 || s.StartsAt.Minute() == tm.minute) {
				return s, true
			}
			if strings.Contains(funnel.Normalize(s.Label), tm.text) {
				return s, true
			}
		}
	}

	return OfferedSlot{}, false
}

var weekdayOrdinals = map[string]time.Weekday{
	"segunda": time.Monday,
	"quarta":  time.Wednesday,
	"quinta":  time.Thursday,
	"sexta":   time.Friday,
}

func weekdayCollision(word string, offered []OfferedSlot) bool {
	wd, ambiguous := weekdayOrdinals[word]
	if !ambiguous {
		return false
	}
	for _, s := range offered {
		if s.StartsAt.Weekday() == wd {
			return true
		}
	}
	return false
}

type timeMention struct {
	hour   int
	minute int // -1 when the customer gave only the hour
	text   string
}

func timeMentions(normalized string) []timeMention {
	var out []timeMention
	for _, m := range timeRe.FindAllStringSubmatch(normalized, -1) {
		hour, err := strconv.Atoi(m[1])
		if err != nil || hour > 23 {
			continue
		}
		minute := -1
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		} else if m[3] != "" {
			minute, _ = strconv.Atoi(m[3])
		}
		if minute > 59 {
			continue
		}
		out = append(out, timeMention{hour: hour, minute: minute, text: m[0]})
	}
	return out
}
