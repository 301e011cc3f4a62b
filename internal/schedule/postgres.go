package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool the provider needs. pgxmock satisfies
// it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ Querier = (*pgxpool.Pool)(nil)

// PostgresProvider reads technician availability from the technician_slots
// table and marks slots booked on confirmation.
type PostgresProvider struct {
	db Querier
}

func NewPostgresProvider(db Querier) *PostgresProvider {
	if db == nil {
		panic("schedule: nil db")
	}
	return &PostgresProvider{db: db}
}

var _ Provider = (*PostgresProvider)(nil)

// ListSlots returns open slots inside the requested window, soonest first.
func (p *PostgresProvider) ListSlots(ctx context.Context, req Request) ([]Slot, error) {
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
	until := from.AddDate(0, 0, days)

	rows, err := p.db.Query(ctx, `
		SELECT starts_at
		FROM technician_slots
		WHERE booked_by IS NULL
		  AND starts_at > $1
		  AND starts_at <= $2
		ORDER BY starts_at
		LIMIT $3`,
		from, until, max)
	if err != nil {
		return nil, fmt.Errorf("schedule: list slots: %w", err)
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		var startsAt time.Time
		if err := rows.Scan(&startsAt); err != nil {
			return nil, fmt.Errorf("schedule: scan slot: %w", err)
		}
		out = append(out, Slot{Label: dayLabel(startsAt), StartsAt: startsAt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: iterate slots: %w", err)
	}
	return out, nil
}

// Book claims the slot for the session. The WHERE booked_by IS NULL guard
// makes the claim atomic; losing the race returns ErrSlotTaken.
func (p *PostgresProvider) Book(ctx context.Context, b Booking) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE technician_slots
		SET booked_by = $1, booked_at = NOW()
		WHERE starts_at = $2 AND booked_by IS NULL`,
		b.SessionKey, b.Slot.StartsAt)
	if err != nil {
		return fmt.Errorf("schedule: book slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotTaken
	}
	return nil
}
