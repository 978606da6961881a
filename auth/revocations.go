package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations is the set of logged-out token values. An entry only needs to
// outlive the token's own expiry; after that the signature check rejects it anyway.
type Revocations interface {
	Add(ctx context.Context, token string, expiresAt time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
}

// pruneInterval is the minimum time between sweeps of expired entries
const pruneInterval = time.Minute

// MemoryRevocations keeps the set in process memory. Expired entries are swept
// on write at most once per pruneInterval.
type MemoryRevocations struct {
	mu        sync.RWMutex
	entries   map[string]time.Time
	lastPrune time.Time
	now       func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{entries: map[string]time.Time{}, now: time.Now}
}

func (m *MemoryRevocations) Add(_ context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if now.Sub(m.lastPrune) >= pruneInterval {
		for k, exp := range m.entries {
			if now.After(exp) {
				delete(m.entries, k)
			}
		}
		m.lastPrune = now
	}
	if prev, ok := m.entries[token]; !ok || expiresAt.After(prev) {
		m.entries[token] = expiresAt
	}
	return nil
}

func (m *MemoryRevocations) Contains(_ context.Context, token string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[token]
	return ok, nil
}

func (m *MemoryRevocations) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// RedisClient is the subset of the go-redis client the revocation set needs
type RedisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisRevocations shares the set between processes. Keys expire with the token.
type RedisRevocations struct {
	client RedisClient
	prefix string
	now    func() time.Time
}

func NewRedisRevocations(client RedisClient) *RedisRevocations {
	return &RedisRevocations{client: client, prefix: "auth:revoked:", now: time.Now}
}

func (r *RedisRevocations) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return r.prefix + hex.EncodeToString(sum[:])
}

func (r *RedisRevocations) Add(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := r.client.Set(ctx, r.key(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revocation: %w", err)
	}
	return nil
}

func (r *RedisRevocations) Contains(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read revocation: %w", err)
	}
	return n > 0, nil
}
