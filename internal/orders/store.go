package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Querier = (*pgxpool.Pool)(nil)

// Order statuses.
const (
	StatusScheduled = "scheduled"
	StatusDone      = "done"
	StatusCanceled  = "canceled"
)

// ServiceOrder is one confirmed job: a technician visit or an equipment
// pickup at the agreed time.
type ServiceOrder struct {
	ID           uuid.UUID
	SessionKey   string
	CustomerName string
	Contact      string
	Address      string
	ServiceType  string
	Equipment    string
	Brand        string
	Problem      string
	ScheduledAt  time.Time
	Status       string
	CreatedAt    time.Time
}

// ErrNotFound indicates the order does not exist.
var ErrNotFound = errors.New("orders: not found")

// Store persists service orders in Postgres.
type Store struct {
	db Querier
}

func NewStore(db Querier) *Store {
	if db == nil {
		panic("orders: nil db")
	}
	return &Store{db: db}
}

// Create inserts the order and returns its generated ID.
func (s *Store) Create(ctx context.Context, o ServiceOrder) (uuid.UUID, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = StatusScheduled
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO service_orders
			(id, session_key, customer_name, contact, address, service_type,
			 equipment, brand, problem, scheduled_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())`,
		o.ID, o.SessionKey, o.CustomerName, o.Contact, o.Address, o.ServiceType,
		o.Equipment, o.Brand, o.Problem, o.ScheduledAt, o.Status)
	if err != nil {
		return uuid.Nil, fmt.Errorf("orders: create: %w", err)
	}
	return o.ID, nil
}

// Get loads a single order.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (ServiceOrder, error) {
	var o ServiceOrder
	err := s.db.QueryRow(ctx, `
		SELECT id, session_key, customer_name, contact, address, service_type,
		       equipment, brand, problem, scheduled_at, status, created_at
		FROM service_orders
		WHERE id = $1`,
		id).Scan(&o.ID, &o.SessionKey, &o.CustomerName, &o.Contact, &o.Address,
		&o.ServiceType, &o.Equipment, &o.Brand, &o.Problem, &o.ScheduledAt,
		&o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ServiceOrder{}, ErrNotFound
	}
	if err != nil {
		return ServiceOrder{}, fmt.Errorf("orders: get: %w", err)
	}
	return o, nil
}

// ListBySession returns every order for a session, newest first.
func (s *Store) ListBySession(ctx context.Context, sessionKey string) ([]ServiceOrder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, session_key, customer_name, contact, address, service_type,
		       equipment, brand, problem, scheduled_at, status, created_at
		FROM service_orders
		WHERE session_key = $1
		ORDER BY created_at DESC`,
		sessionKey)
	if err != nil {
		return nil, fmt.Errorf("orders: list by session: %w", err)
	}
	defer rows.Close()

	var out []ServiceOrder
	for rows.Next() {
		var o ServiceOrder
		if err := rows.Scan(&o.ID, &o.SessionKey, &o.CustomerName, &o.Contact,
			&o.Address, &o.ServiceType, &o.Equipment, &o.Brand, &o.Problem,
			&o.ScheduledAt, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("orders: scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orders: iterate orders: %w", err)
	}
	return out, nil
}

// SetStatus moves an order through its lifecycle.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE service_orders SET status = $1 WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("orders: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
