package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reparoja/reparoja-ai-platform/internal/schedule"
)

func offeredForTest() []OfferedSlot {
	return []OfferedSlot{
		{Index: 1, Label: "ter 01/09 às 09:00", StartsAt: time.Date(2026, 9, 1, 9, 0, 0, 0, time.Local)},
		{Index: 2, Label: "ter 01/09 às 14:00", StartsAt: time.Date(2026, 9, 1, 14, 0, 0, 0, time.Local)},
		{Index: 3, Label: "qua 02/09 às 09:00", StartsAt: time.Date(2026, 9, 2, 9, 0, 0, 0, time.Local)},
	}
}

func TestMatchOfferedSlot(t *testing.T) {
	offered := offeredForTest()

	tests := []struct {
		name      string
		message   string
		wantIndex int
		wantOK    bool
	}{
		{"bare digit", "2", 2, true},
		{"digit in sentence", "pode ser a 3", 3, true},
		{"ordinal word", "o primeiro", 1, true},
		{"ordinal feminine", "a primeira opção", 1, true},
		{"time with h", "pode ser às 14h", 2, true},
		{"time with colon", "14:00 fica ótimo", 2, true},
		{"hour only", "as 9 ta bom", 1, true},
		{"no match", "vou ver com minha esposa", 0, false},
		{"out of range digit", "opção 7", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, ok := MatchOfferedSlot(tt.message, offered)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantIndex, slot.Index)
			}
		})
	}
}

func TestMatchOfferedSlotWeekdayNotOrdinal(t *testing.T) {
	// "quarta" must mean Wednesday here, not the fourth option.
	offered := []OfferedSlot{
		{Index: 1, Label: "ter 01/09 às 09:00", StartsAt: time.Date(2026, 9, 1, 9, 0, 0, 0, time.Local)},
		{Index: 2, Label: "qua 02/09 às 09:00", StartsAt: time.Date(2026, 9, 2, 9, 0, 0, 0, time.Local)},
	}
	_, ok := MatchOfferedSlot("pode ser na quarta", offered)
	assert.False(t, ok)
}

func TestMatchOfferedSlotEmptyOffer(t *testing.T) {
	_, ok := MatchOfferedSlot("1", nil)
	assert.False(t, ok)
}

func TestFormatSlotOffer(t *testing.T) {
	msg := FormatSlotOffer(offeredForTest())
	assert.Contains(t, msg, "1. ter 01/09 às 09:00")
	assert.Contains(t, msg, "3. qua 02/09 às 09:00")
	assert.Contains(t, msg, "número")
}

func TestOfferSlotsIndexing(t *testing.T) {
	slots := []schedule.Slot{
		{Label: "a", StartsAt: time.Now()},
		{Label: "b", StartsAt: time.Now().Add(time.Hour)},
	}
	offered := OfferSlots(slots)
	require.Len(t, offered, 2)
	assert.Equal(t, 1, offered[0].Index)
	assert.Equal(t, 2, offered[1].Index)
	assert.Equal(t, "b", offered[1].Label)
}
