// Package revocation keeps a deny list of access tokens that were logged out
// before they expired.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

type List interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

const keyPrefix = "blacklist:"

func key(token string) string {
	h := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(h[:])
}

// Redis stores entries with the token's remaining lifetime as TTL, so the list
// never outgrows the set of live tokens.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, key(token), 1, ttl).Err()
}

func (r *Redis) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Memory is the single-process fallback when no Redis is configured.
// Expired entries are dropped on write.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]time.Time{}, now: time.Now}
}

func (m *Memory) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, exp := range m.entries {
		if !now.Before(exp) {
			delete(m.entries, k)
		}
	}
	m.entries[key(token)] = now.Add(ttl)
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[key(token)]
	return ok && m.now().Before(exp), nil
}
