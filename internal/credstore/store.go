// Package credstore persists the bearer and refresh tokens between runs.
//
// Values live under fixed keys and may carry an expiry. Expired entries are
// pruned on read, so a Get after the expiry behaves exactly like a missing key.
package credstore

import (
	"context"
	stderrors "errors"
	"sync"
	"time"
)

// Well-known keys.
const (
	TokenKey        = "twc_jwt_token"
	RefreshTokenKey = "twc_refresh_token"
	ReturnToKey     = "twc_return_to"
)

// TokenTTL is the lifetime given to a freshly issued bearer token.
const TokenTTL = 7 * 24 * time.Hour

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = stderrors.New("credential not found")

// Store defines the interface for credential persistence.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key.
	// Returns ErrNotFound if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. A zero ttl means the value never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Clear removes the bearer and refresh tokens together.
	Clear(ctx context.Context) error
}

type entry struct {
	Value     string    `yaml:"value"`
	ExpiresAt time.Time `yaml:"expires_at,omitempty"`
}

func (e entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

func newEntry(value string, ttl time.Duration, now time.Time) entry {
	e := entry{Value: value}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	return e
}

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the value stored under key.
func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return "", ErrNotFound
	}
	return e.Value, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = newEntry(value, ttl, m.now())
	return nil
}

// Delete removes the given keys.
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// Clear removes both tokens.
func (m *MemoryStore) Clear(ctx context.Context) error {
	return m.Delete(ctx, TokenKey, RefreshTokenKey)
}

// Len returns the number of stored entries, including expired ones not yet pruned.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
