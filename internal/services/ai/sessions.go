package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL is how long an idle chat session is kept
const DefaultSessionTTL = 2 * time.Hour

// SessionStore persists chat sessions between requests
type SessionStore interface {
	// Load returns nil, nil when the user has no session
	Load(ctx context.Context, userID uuid.UUID) (*ChatSession, error)
	Save(ctx context.Context, session *ChatSession) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// MemorySessionStore keeps sessions in process memory
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*ChatSession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore creates an in-memory store; idle sessions expire after ttl
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		sessions: make(map[uuid.UUID]*ChatSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Load returns a copy of the stored session
func (m *MemorySessionStore) Load(ctx context.Context, userID uuid.UUID) (*ChatSession, error) {
	m.mu.RLock()
	session, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	if m.now().Sub(session.LastActivity) > m.ttl {
		m.mu.Lock()
		delete(m.sessions, userID)
		m.mu.Unlock()
		return nil, nil
	}
	return cloneSession(session), nil
}

// Save stores a copy of session
func (m *MemorySessionStore) Save(ctx context.Context, session *ChatSession) error {
	if session == nil {
		return errors.New("session is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.UserID] = cloneSession(session)
	return nil
}

// Delete removes a user's session
func (m *MemorySessionStore) Delete(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

func cloneSession(s *ChatSession) *ChatSession {
	c := *s
	c.Messages = append([]ChatMessage(nil), s.Messages...)
	return &c
}

// RedisSessionStore keeps sessions in Redis so any server replica can
// continue a conversation
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisSessionStore creates a Redis-backed store
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
		prefix: "study_planner:chat_session:",
	}
}

func (r *RedisSessionStore) key(userID uuid.UUID) string {
	return r.prefix + userID.String()
}

// Load reads and decodes a session
func (r *RedisSessionStore) Load(ctx context.Context, userID uuid.UUID) (*ChatSession, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	session := &ChatSession{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return session, nil
}

// Save writes a session and refreshes its expiry
func (r *RedisSessionStore) Save(ctx context.Context, session *ChatSession) error {
	if session == nil {
		return errors.New("session is nil")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(session.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Delete removes a user's session
func (r *RedisSessionStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var (
	_ SessionStore = (*MemorySessionStore)(nil)
	_ SessionStore = (*RedisSessionStore)(nil)
)
