// Package cache wraps an in-process key/value store behind a Store
// interface shared by the subscription read-through cache and the ingest
// rate limiter. The interface is deliberately transport-shaped (keys,
// TTLs, byte values) so a networked backend could replace the in-process
// one without touching any caller.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is the cache surface webhookd components program against. All
// operations are best-effort: callers treat a failed read as a miss and
// never propagate cache errors to their own callers.
type Store interface {
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, bool)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	Delete(ctx context.Context, key string)
	TTL(ctx context.Context, key string) (time.Duration, bool)

	// Increment adds delta to the stored counter, creating it at zero
	// first, and returns the updated value. Used by the rate limiter.
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// Namespace returns a view of the same store whose keys are prefixed,
	// so independent callers never collide.
	Namespace(prefix string) Store
}

// Options configures the in-process store.
type Options struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	Prefix          string
}

// NewStore builds a go-cache backed Store.
func NewStore(opts Options) Store {
	defaultTTL := opts.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	cleanup := opts.CleanupInterval
	if cleanup <= 0 {
		cleanup = defaultTTL
	}
	return &memoryStore{
		backend:    gocache.New(defaultTTL, cleanup),
		defaultTTL: defaultTTL,
		prefix:     normalizePrefix(opts.Prefix),
	}
}

type memoryStore struct {
	backend    *gocache.Cache
	defaultTTL time.Duration
	prefix     string
}

func (s *memoryStore) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	s.backend.Set(s.prefixed(key), buf, s.normalizeTTL(ttl))
	return nil
}

func (s *memoryStore) GetBytes(_ context.Context, key string) ([]byte, bool) {
	raw, ok := s.backend.Get(s.prefixed(key))
	if !ok {
		return nil, false
	}
	stored, ok := raw.([]byte)
	if !ok {
		return nil, false
	}
	buf := make([]byte, len(stored))
	copy(buf, stored)
	return buf, true
}

func (s *memoryStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.SetBytes(ctx, key, data, ttl)
}

func (s *memoryStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok := s.GetBytes(ctx, key)
	if !ok {
		return false, nil
	}
	if dest == nil {
		return true, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *memoryStore) Delete(_ context.Context, key string) {
	s.backend.Delete(s.prefixed(key))
}

func (s *memoryStore) TTL(_ context.Context, key string) (time.Duration, bool) {
	_, exp, ok := s.backend.GetWithExpiration(s.prefixed(key))
	if !ok || exp.IsZero() {
		return 0, false
	}
	ttl := time.Until(exp)
	if ttl < 0 {
		return 0, false
	}
	return ttl, true
}

func (s *memoryStore) Increment(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, nil
	}
	full := s.prefixed(key)
	normalizedTTL := s.normalizeTTL(ttl)
	if _, ok := s.backend.Get(full); !ok {
		s.backend.Set(full, int64(0), normalizedTTL)
	}
	if err := s.backend.Increment(full, delta); err != nil {
		return 0, fmt.Errorf("cache increment: %w", err)
	}
	raw, ok := s.backend.Get(full)
	if !ok {
		return 0, nil
	}
	current, ok := raw.(int64)
	if !ok {
		return 0, fmt.Errorf("cache increment: stored value is not int64")
	}
	return current, nil
}

func (s *memoryStore) Namespace(prefix string) Store {
	return &memoryStore{
		backend:    s.backend,
		defaultTTL: s.defaultTTL,
		prefix:     joinPrefixes(s.prefix, prefix),
	}
}

func (s *memoryStore) prefixed(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.prefix
	}
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *memoryStore) normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.defaultTTL
	}
	return ttl
}

func normalizePrefix(prefix string) string {
	return strings.Trim(prefix, ": ")
}

func joinPrefixes(parts ...string) string {
	var normalized []string
	for _, part := range parts {
		if trimmed := normalizePrefix(part); trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return strings.Join(normalized, ":")
}
