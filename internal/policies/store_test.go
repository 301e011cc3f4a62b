package policies

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reparoja/reparoja-ai-platform/internal/funnel"
)

func TestStoreList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT service_type, equipment_keywords").
		WillReturnRows(sqlmock.NewRows([]string{"service_type", "equipment_keywords", "offer_message", "enabled"}).
			AddRow("onsite", pq.StringArray{"fogão a gás", "coifa"}, "Visita em domicílio.", true).
			AddRow("pickup-repair", pq.StringArray{"micro-ondas"}, "", true))

	store := NewStore(db)
	rows, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, funnel.ServiceOnsite, rows[0].Service)
	assert.Equal(t, []string{"fogão a gás", "coifa"}, rows[0].Keywords)
	assert.Equal(t, "Visita em domicílio.", rows[0].OfferMessage)
	assert.True(t, rows[0].Enabled)
	assert.Equal(t, funnel.ServicePickupRepair, rows[1].Service)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListNilStore(t *testing.T) {
	var store *Store
	rows, err := store.List(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, rows)
}

func TestStoreUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO service_policies").
		WithArgs(sqlmock.AnyArg(), "onsite", pq.StringArray{"coifa"}, "Atendemos coifas em domicílio.", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	id, err := store.Upsert(context.Background(), Record{
		PolicyRow: funnel.PolicyRow{
			Service:      funnel.ServiceOnsite,
			Keywords:     []string{"coifa"},
			OfferMessage: "Atendemos coifas em domicílio.",
			Enabled:      true,
		},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSetEnabled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE service_policies").
		WithArgs(false, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	require.NoError(t, store.SetEnabled(context.Background(), id, false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSetEnabledMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE service_policies").
		WithArgs(true, id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db)
	err = store.SetEnabled(context.Background(), id, true)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource(nil)
	rows, err := src.List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	// The default table must route a gas stove somewhere.
	got := funnel.Eligible(rows, funnel.State{Equipment: "fogão a gás"})
	assert.Equal(t, []funnel.ServiceType{funnel.ServiceOnsite}, got)

	// Returned slice is a copy; mutating it must not leak into the source.
	rows[0].Enabled = false
	again, _ := src.List(context.Background())
	assert.True(t, again[0].Enabled)
}
