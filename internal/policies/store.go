package policies

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/reparoja/reparoja-ai-platform/internal/funnel"
)

// Source supplies the service-policy table. The conversation engine reloads
// it on every decision cycle; callers own any caching.
type Source interface {
	List(ctx context.Context) ([]funnel.PolicyRow, error)
}

// Store persists policy rows in Postgres and doubles as the admin CRUD
// backend.
type Store struct {
	db *sql.DB
}

// NewStore creates a policy store. Returns nil when no database is available
// so callers can fall back to the static table.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// Record is a stored policy row plus its identity, used by admin endpoints.
type Record struct {
	ID uuid.UUID `json:"id"`
	funnel.PolicyRow
}

// List returns all enabled policy rows in priority order.
func (s *Store) List(ctx context.Context) ([]funnel.PolicyRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT service_type, equipment_keywords, COALESCE(offer_message, ''), enabled
		FROM service_policies
		WHERE enabled = TRUE
		ORDER BY priority ASC, created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("policies: failed to list: %w", err)
	}
	defer rows.Close()

	var out []funnel.PolicyRow
	for rows.Next() {
		var row funnel.PolicyRow
		var keywords pq.StringArray
		if err := rows.Scan(&row.Service, &keywords, &row.OfferMessage, &row.Enabled); err != nil {
			return nil, fmt.Errorf("policies: failed to scan row: %w", err)
		}
		row.Keywords = keywords
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("policies: row iteration failed: %w", err)
	}
	return out, nil
}

// ListAll returns every row including disabled ones, for the admin screens.
func (s *Store) ListAll(ctx context.Context) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_type, equipment_keywords, COALESCE(offer_message, ''), enabled
		FROM service_policies
		ORDER BY priority ASC, created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("policies: failed to list all: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var keywords pq.StringArray
		if err := rows.Scan(&rec.ID, &rec.Service, &keywords, &rec.OfferMessage, &rec.Enabled); err != nil {
			return nil, fmt.Errorf("policies: failed to scan row: %w", err)
		}
		rec.Keywords = keywords
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("policies: row iteration failed: %w", err)
	}
	return out, nil
}

// Upsert inserts or updates a policy row and returns its id.
func (s *Store) Upsert(ctx context.Context, rec Record) (uuid.UUID, error) {
	if s == nil || s.db == nil {
		return uuid.Nil, fmt.Errorf("policies: store not configured")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_policies (id, service_type, equipment_keywords, offer_message, enabled)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (id)
		DO UPDATE SET service_type = EXCLUDED.service_type,
			equipment_keywords = EXCLUDED.equipment_keywords,
			offer_message = EXCLUDED.offer_message,
			enabled = EXCLUDED.enabled,
			updated_at = now()
	`, rec.ID, rec.Service, pq.StringArray(rec.Keywords), rec.OfferMessage, rec.Enabled)
	if err != nil {
		return uuid.Nil, fmt.Errorf("policies: failed to upsert: %w", err)
	}
	return rec.ID, nil
}

// SetEnabled flips a row without touching its contents.
func (s *Store) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("policies: store not configured")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE service_policies SET enabled = $1, updated_at = now() WHERE id = $2
	`, enabled, id)
	if err != nil {
		return fmt.Errorf("policies: failed to update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("policies: failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("policies: row %s not found", id)
	}
	return nil
}
