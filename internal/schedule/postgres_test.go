package schedule

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresListSlots(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	first := time.Date(2026, 9, 2, 9, 0, 0, 0, time.Local)
	second := time.Date(2026, 9, 2, 14, 0, 0, 0, time.Local)
	mock.ExpectQuery("SELECT starts_at").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), 3).
		WillReturnRows(pgxmock.NewRows([]string{"starts_at"}).AddRow(first).AddRow(second))

	p := NewPostgresProvider(mock)
	slots, err := p.ListSlots(context.Background(), Request{From: first.AddDate(0, 0, -1)})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, first, slots[0].StartsAt)
	assert.Contains(t, slots[0].Label, "09:00")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBook(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	starts := time.Date(2026, 9, 2, 9, 0, 0, 0, time.Local)
	mock.ExpectExec("UPDATE technician_slots").
		WithArgs("whatsapp:5511999990000", starts).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	p := NewPostgresProvider(mock)
	err = p.Book(context.Background(), Booking{
		SessionKey: "whatsapp:5511999990000",
		Slot:       Slot{StartsAt: starts},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBookSlotTaken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	starts := time.Date(2026, 9, 2, 9, 0, 0, 0, time.Local)
	mock.ExpectExec("UPDATE technician_slots").
		WithArgs("whatsapp:5511999990000", starts).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	p := NewPostgresProvider(mock)
	err = p.Book(context.Background(), Booking{
		SessionKey: "whatsapp:5511999990000",
		Slot:       Slot{StartsAt: starts},
	})
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaticProviderSkipsWeekends(t *testing.T) {
	// Friday 2026-09-04; the next working day is Monday the 7th.
	friday := time.Date(2026, 9, 4, 8, 0, 0, 0, time.Local)

	p := NewStaticProvider(9, 14)
	slots, err := p.ListSlots(context.Background(), Request{From: friday, MaxSlots: 3})
	require.NoError(t, err)
	require.Len(t, slots, 3)

	for _, s := range slots {
		wd := s.StartsAt.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
	}
	assert.Equal(t, time.Monday, slots[0].StartsAt.Weekday())
	assert.Equal(t, 9, slots[0].StartsAt.Hour())
	assert.Equal(t, 14, slots[1].StartsAt.Hour())
}
