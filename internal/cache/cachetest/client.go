// Package cachetest provides an in-memory cache.Client for tests.
package cachetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is an in-memory fake of the cache.Client interface. It
// implements enough of the Redis contract for the cache layer: GET,
// SET, SETNX, DEL, the compare-and-delete release script, and PING.
// TTLs are recorded but never enforced.
type Client struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration

	// Err, when set, is returned by every subsequent command. Used to
	// exercise fail-open paths.
	Err error
}

// New creates an empty fake client.
func New() *Client {
	return &Client{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

// Get implements cache.Client.
func (c *Client) Get(ctx context.Context, key string) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return redis.NewStringResult("", c.Err)
	}
	value, ok := c.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

// Set implements cache.Client.
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return redis.NewStatusResult("", c.Err)
	}
	c.data[key] = asString(value)
	c.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

// SetNX implements cache.Client.
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return redis.NewBoolResult(false, c.Err)
	}
	if _, exists := c.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	c.data[key] = asString(value)
	c.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

// Del implements cache.Client.
func (c *Client) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return redis.NewIntResult(0, c.Err)
	}
	var deleted int64
	for _, key := range keys {
		if _, ok := c.data[key]; ok {
			delete(c.data, key)
			delete(c.ttls, key)
			deleted++
		}
	}
	return redis.NewIntResult(deleted, nil)
}

// Eval implements cache.Client for the lock release script only:
// delete KEYS[1] when its value equals ARGV[1].
func (c *Client) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return redis.NewCmdResult(nil, c.Err)
	}
	if len(keys) == 1 && len(args) == 1 && c.data[keys[0]] == asString(args[0]) {
		delete(c.data, keys[0])
		delete(c.ttls, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

// Ping implements cache.Client.
func (c *Client) Ping(ctx context.Context) *redis.StatusCmd {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return redis.NewStatusResult("", c.Err)
	}
	return redis.NewStatusResult("PONG", nil)
}

// Value returns the stored value and whether the key exists.
func (c *Client) Value(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.data[key]
	return value, ok
}

// TTL returns the expiration recorded for key at last write.
func (c *Client) TTL(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttls[key]
}

// Put seeds the store with a raw value. Used to pre-warm the cache.
func (c *Client) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Len returns the number of stored keys.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
