package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	scheduled := time.Date(2026, 9, 7, 9, 0, 0, 0, time.Local)
	mock.ExpectExec("INSERT INTO service_orders").
		WithArgs(pgxmock.AnyArg(), "whatsapp:5511999990000", "Maria Souza", "5511999990000",
			"Rua das Flores, 123", "onsite", "coifa", "", "fazendo barulho", scheduled, StatusScheduled).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewStore(mock)
	id, err := store.Create(context.Background(), ServiceOrder{
		SessionKey:   "whatsapp:5511999990000",
		CustomerName: "Maria Souza",
		Contact:      "5511999990000",
		Address:      "Rua das Flores, 123",
		ServiceType:  "onsite",
		Equipment:    "coifa",
		Problem:      "fazendo barulho",
		ScheduledAt:  scheduled,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT id, session_key").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	store := NewStore(mock)
	_, err = store.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListBySession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	cols := []string{"id", "session_key", "customer_name", "contact", "address",
		"service_type", "equipment", "brand", "problem", "scheduled_at", "status", "created_at"}
	mock.ExpectQuery("SELECT id, session_key").
		WithArgs("whatsapp:1").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(uuid.New(), "whatsapp:1", "Maria", "1", "Rua A", "onsite",
				"coifa", "", "barulho", now, StatusScheduled, now))

	store := NewStore(mock)
	out, err := store.ListBySession(context.Background(), "whatsapp:1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "coifa", out[0].Equipment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSetStatusMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE service_orders").
		WithArgs(StatusDone, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewStore(mock)
	err = store.SetStatus(context.Background(), id, StatusDone)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
