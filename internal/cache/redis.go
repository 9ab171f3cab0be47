// Package cache provides the Redis cache-aside layer and the
// cache-backed distributed lock.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the minimal Redis surface the cache layer depends on.
// *redis.Client satisfies it; tests inject fakes.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Cache key namespace. String keys, JSON values.
const (
	linkKeyPrefix   = "link:"
	domainKeyPrefix = "domain:"
	domainsKey      = "domains"

	// CronLockKey gates the expiry sweep across instances.
	CronLockKey = "cronJobLock"
)

// LinkKey returns the cache key for a link by its short URL.
func LinkKey(shortURL string) string {
	return linkKeyPrefix + shortURL
}

// DomainKey returns the cache key for a domain by id.
func DomainKey(id string) string {
	return domainKeyPrefix + id
}

// DomainsKey returns the cache key for the full domain list.
func DomainsKey() string {
	return domainsKey
}

// Connect opens a Redis client from a URL and verifies connectivity.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
