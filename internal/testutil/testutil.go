package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/trimlink/trimlink/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 731731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// TruncateAll empties every table the tests touch. Migrations are
// expected to have run already (MIGRATE_ON_START or goose by hand).
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "TRUNCATE click_stats, links, domains RESTART IDENTITY CASCADE"); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestDomain creates a test domain with sensible defaults.
func NewTestDomain(t testing.TB, hostname string) *model.Domain {
	t.Helper()
	now := time.Now().UTC()
	return &model.Domain{
		ID:        ulid.Make().String(),
		Hostname:  hostname,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestLink creates a test link with sensible defaults.
func NewTestLink(t testing.TB, alias string) *model.Link {
	t.Helper()
	now := time.Now().UTC()
	return &model.Link{
		ID:          ulid.Make().String(),
		ShortURL:    "trim.test/" + alias,
		Alias:       alias,
		OriginalURL: "https://example.com/" + alias,
		DomainID:    "test-domain",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewTestLinkWithExpiry creates a test link with an expiry time.
func NewTestLinkWithExpiry(t testing.TB, alias string, expiresAt time.Time) *model.Link {
	t.Helper()
	link := NewTestLink(t, alias)
	link.ExpiresAt = &expiresAt
	return link
}

// UniqueAlias generates a unique alias for tests.
func UniqueAlias(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
