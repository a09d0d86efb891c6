package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"helmsman/internal/domain"
)

// RedisStore implements Store on Redis, one JSON blob per session. Blobs
// are small (bounded turn logs), so read-modify-write per append is fine.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets the session expiration. Zero means no expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore connects to Redis at addr.
func NewRedisStore(addr, password string, db int, opts ...RedisOption) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient wraps an existing client, mostly for tests.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "helmsman:session:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// GetOrCreate returns the session, creating an empty one when absent.
func (s *RedisStore) GetOrCreate(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err == nil {
		return sess, nil
	}
	if err != domain.ErrSessionNotFound {
		return nil, err
	}

	sess = &domain.Session{SessionID: sessionID, CreatedAt: time.Now().UTC()}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns the session or ErrSessionNotFound.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// AppendTurn loads, appends, and saves the session blob.
func (s *RedisStore) AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	if turn.TurnID == "" {
		turn.TurnID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	sess.Turns = append(sess.Turns, turn)
	sess.TurnCount++

	return s.save(ctx, sess)
}

// Clear removes the session. Idempotent.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *RedisStore) save(ctx context.Context, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
