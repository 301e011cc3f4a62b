package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Slot is one candidate appointment window offered to a customer.
type Slot struct {
	Label    string    `json:"label"`
	StartsAt time.Time `json:"starts_at"`
}

// Request describes the availability window being queried.
type Request struct {
	From        time.Time
	Days        int
	ServiceType string
	MaxSlots    int
}

// Booking carries everything needed to reserve a slot.
type Booking struct {
	Slot         Slot
	SessionKey   string
	CustomerName string
	Contact      string
	Address      string
	ServiceType  string
}

// ErrSlotTaken indicates the chosen slot was booked by someone else between
// offer and confirmation.
var ErrSlotTaken = errors.New("schedule: slot no longer available")

// Provider lists candidate slots and performs the actual reservation.
type Provider interface {
	ListSlots(ctx context.Context, req Request) ([]Slot, error)
	Book(ctx context.Context, b Booking) error
}

const defaultMaxSlots = 3

// weekday reports whether t falls on a working day.
func weekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// dayLabel renders a slot label like "seg 02/09 às 09:00".
func dayLabel(t time.Time) string {
	days := [...]string{"dom", "seg", "ter", "qua", "qui", "sex", "sáb"}
	return fmt.Sprintf("%s %02d/%02d às %02d:%02d",
		days[int(t.Weekday())], t.Day(), int(t.Month()), t.Hour(), t.Minute())
}

// StaticProvider generates slots from fixed business hours. It backs
// development environments and acts as the fallback when no calendar database
// is configured. Book always succeeds.
type StaticProvider struct {
	hours []int // offered start hours, e.g. 9, 14
}

// NewStaticProvider creates a provider offering the given start hours on
// working days. Defaults to 09:00 and 14:00.
func NewStaticProvider(hours ...int) *StaticProvider {
	if len(hours) == 0 {
		hours = []int{9, 14}
	}
	return &StaticProvider{hours: hours}
}

// ListSlots returns up to req.MaxSlots windows starting the next working day.
func (p *StaticProvider) ListSlots(_ context.Context, req Request) ([]Slot, error) {
	max := req.MaxSlots
	if max <= 0 {
		max = defaultMaxSlots
	}
	days := req.Days
	if days <= 0 {
		days = 7
	}

	from := req.From
	if from.IsZero() {
		from = time.Now()
	}

	var out []Slot
	for d := 1; d <= days && len(out) < max; d++ {
		day := from.AddDate(0, 0, d)
		if !weekday(day) {
			continue
		}
		for _, h := range p.hours {
			if len(out) >= max {
				break
			}
			start := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
			out = append(out, Slot{Label: dayLabel(start), StartsAt: start})
		}
	}
	return out, nil
}

// Book is a no-op for the static provider.
func (p *StaticProvider) Book(_ context.Context, _ Booking) error {
	return nil
}
