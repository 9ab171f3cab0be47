package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// releaseScript deletes the lock key only when it still holds this
// instance's token, so a holder that outlived its lease cannot release
// a lock reacquired by another instance.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// Lock is a lease-based distributed mutex built on SET NX EX.
// The TTL is the crash-recovery path: a holder that dies without
// releasing blocks other instances only until the lease expires.
type Lock struct {
	client Client
	key    string
	token  string
}

// NewLock creates a lock on the given cache key.
func NewLock(client Client, key string) *Lock {
	return &Lock{client: client, key: key}
}

// Acquire attempts to take the lock for ttl. Returns true when this
// instance won; false when another holder exists.
func (l *Lock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release gives up the lock if this instance still holds it.
// Releasing explicitly allows the next cycle to run sooner than TTL
// expiry would.
func (l *Lock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""

	if err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
