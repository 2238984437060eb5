package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRevocationNamespace is used when no namespace is configured.
const DefaultRevocationNamespace = "helpdesk:session:revoked"

// RevocationStore remembers signed-out sessions until their tokens expire.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// RedisRevocationStore keeps the revocation list in Redis with per-key TTLs.
type RedisRevocationStore struct {
	client    *redis.Client
	namespace string
	now       func() time.Time
}

// NewRedisRevocationStore wraps a go-redis client. Session ids are stored as
// "<namespace>:<jti>".
func NewRedisRevocationStore(client *redis.Client, namespace string) *RedisRevocationStore {
	if namespace == "" {
		namespace = DefaultRevocationNamespace
	}
	return &RedisRevocationStore{client: client, namespace: namespace, now: time.Now}
}

func (s *RedisRevocationStore) key(sessionID string) string {
	return s.namespace + ":" + sessionID
}

// Revoke marks the session as signed out. Already expired sessions are skipped.
func (s *RedisRevocationStore) Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.key(sessionID), 1, ttl).Err()
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryRevocationStore keeps revocations in process. It backs the
// database-less development mode and tests.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore returns an empty store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, sessionID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	if expiresAt.After(now) {
		s.revoked[sessionID] = expiresAt
	}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.revoked[sessionID]
	return ok && exp.After(s.now()), nil
}
