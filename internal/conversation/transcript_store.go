package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TranscriptStore persists conversations and messages to PostgreSQL for
// long-term history. All methods are nil-receiver safe so transcript
// persistence can be disabled by simply not configuring a database.
type TranscriptStore struct {
	db *sql.DB
}

func NewTranscriptStore(db *sql.DB) *TranscriptStore {
	if db == nil {
		return nil
	}
	return &TranscriptStore{db: db}
}

// parseSessionKey extracts channel and peer from "channel:peer".
func parseSessionKey(key string) (channel, peer string, ok bool) {
	channel, peer, ok = strings.Cut(key, ":")
	if !ok || channel == "" || peer == "" {
		return "", "", false
	}
	return channel, peer, true
}

// EnsureConversation creates or touches the conversation row for a session.
func (s *TranscriptStore) EnsureConversation(ctx context.Context, sessionKey string) (uuid.UUID, error) {
	if s == nil || s.db == nil {
		return uuid.Nil, nil
	}

	channel, peer, ok := parseSessionKey(sessionKey)
	if !ok {
		return uuid.Nil, fmt.Errorf("conversation: invalid session key: %s", sessionKey)
	}

	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO conversations (id, session_key, channel, peer, started_at, last_message_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (session_key)
		DO UPDATE SET last_message_at = NOW(), message_count = conversations.message_count + 1
		RETURNING id`,
		uuid.New(), sessionKey, channel, peer).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("conversation: failed to upsert conversation: %w", err)
	}
	return id, nil
}

// RecordMessage appends one transcript line.
func (s *TranscriptStore) RecordMessage(ctx context.Context, sessionKey, role, content string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if content == "" {
		return nil
	}

	convID, err := s.EnsureConversation(ctx, sessionKey)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, conversation_id, session_key, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`,
		uuid.New(), convID, sessionKey, role, content)
	if err != nil {
		return fmt.Errorf("conversation: failed to record message: %w", err)
	}
	return nil
}

// History returns the transcript for a session, oldest first.
func (s *TranscriptStore) History(ctx context.Context, sessionKey string) ([]Message, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content
		FROM conversation_messages
		WHERE session_key = $1
		ORDER BY created_at`,
		sessionKey)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load history: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("conversation: failed to scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: failed to iterate history: %w", err)
	}
	return out, nil
}

// MarkBooked stamps the conversation with its confirmed appointment.
func (s *TranscriptStore) MarkBooked(ctx context.Context, sessionKey string, startsAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET booked_at = NOW(), appointment_at = $1
		WHERE session_key = $2`,
		startsAt, sessionKey)
	if err != nil {
		return fmt.Errorf("conversation: failed to mark booked: %w", err)
	}
	return nil
}
