package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is the TTL for cached entries.
const DefaultTTL = 5 * time.Minute

// DefaultOpTimeout bounds individual cache round trips so that a slow
// or unreachable Redis degrades to the persistent store instead of
// stalling the request.
const DefaultOpTimeout = 250 * time.Millisecond

// ErrCacheMiss indicates the key was absent from the cache.
var ErrCacheMiss = errors.New("cache miss")

// Store is a read-through, write-invalidate cache over a loader backed
// by the persistent store. Values are stored as JSON.
//
// The store is not authoritative: a concurrent GetOrSet racing a
// mutation may repopulate a just-invalidated key with the pre-mutation
// value until the TTL lapses. This staleness window is accepted; no
// locking is performed on the read path.
type Store struct {
	client    Client
	ttl       time.Duration
	opTimeout time.Duration
	logger    *slog.Logger
}

// NewStore creates a Store. Zero ttl or opTimeout select the defaults.
func NewStore(client Client, ttl, opTimeout time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	return &Store{
		client:    client,
		ttl:       ttl,
		opTimeout: opTimeout,
		logger:    logger.With("component", "cache.store"),
	}
}

// TTL returns the configured entry TTL.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// GetOrSet returns the cached value for key, or invokes loader, caches
// the result with the store TTL, and returns it.
//
// Cache failures fail open: the loader result is returned and the
// error is only logged.
func GetOrSet[T any](ctx context.Context, s *Store, key string, loader func(context.Context) (T, error)) (T, error) {
	var value T

	data, err := s.get(ctx, key)
	if err == nil {
		if jsonErr := json.Unmarshal(data, &value); jsonErr == nil {
			return value, nil
		}
		// Undecodable entry: drop it and fall through to the loader.
		s.invalidate(ctx, key)
	} else if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("cache read failed, falling back to store", "key", key, "error", err)
	}

	value, err = loader(ctx)
	if err != nil {
		return value, err
	}

	s.set(ctx, key, value)
	return value, nil
}

// InvalidateAndRefresh deletes the cache entry, invokes loader, writes
// the fresh result with the store TTL, and returns it. Used after
// updates so the next read observes post-mutation state.
func InvalidateAndRefresh[T any](ctx context.Context, s *Store, key string, loader func(context.Context) (T, error)) (T, error) {
	s.invalidate(ctx, key)

	value, err := loader(ctx)
	if err != nil {
		return value, err
	}

	s.set(ctx, key, value)
	return value, nil
}

// Invalidate deletes a cache entry without repopulating it. Used after
// deletes, where no fresh value exists.
func (s *Store) Invalidate(ctx context.Context, key string) {
	s.invalidate(ctx, key)
}

// InvalidateMany deletes a batch of entries with a single DEL.
func (s *Store) InvalidateMany(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Del(opCtx, keys...).Err(); err != nil {
		s.logger.Warn("cache batch invalidation failed", "keys", len(keys), "error", err)
	}
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	data, err := s.client.Get(opCtx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *Store) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache value not serializable", "key", key, "error", err)
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Set(opCtx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (s *Store) invalidate(ctx context.Context, key string) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Del(opCtx, key).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", "key", key, "error", err)
	}
}
