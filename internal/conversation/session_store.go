package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const sessionTTL = 30 * 24 * time.Hour

// SessionStore persists SessionState between turns.
type SessionStore interface {
	Load(ctx context.Context, key string) (*SessionState, error)
	Save(ctx context.Context, key string, state *SessionState) error
}

// RedisSessionStore keeps sessions in Redis under "session:<channel>:<peer>".
type RedisSessionStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func NewRedisSessionStore(client *redis.Client, tracer trace.Tracer) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("reparoja.internal.conversation.session")
	}
	return &RedisSessionStore{redis: client, tracer: tracer}
}

var _ SessionStore = (*RedisSessionStore)(nil)

func sessionKey(key string) string {
	return fmt.Sprintf("session:%s", key)
}

// Load returns the stored state, or a fresh zero state when none exists.
func (s *RedisSessionStore) Load(ctx context.Context, key string) (*SessionState, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_session")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return &SessionState{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load session: %w", err)
	}

	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	return &state, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, key string, state *SessionState) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_session")
	defer span.End()

	state.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(key), data, sessionTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist session: %w", err)
	}
	return nil
}
