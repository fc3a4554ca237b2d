package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/richxcame/roundup/pkg/resilience"
)

// ErrLockNotHeld is returned when releasing a lock the given token does not own.
var ErrLockNotHeld = errors.New("lock not held")

// releaseScript deletes the key only if it still carries our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Locker is a non-blocking distributed mutex on Redis using SET NX PX.
// The TTL bounds how long a crashed holder can block others. Every successful
// acquisition gets its own token, so a stale holder can never release a newer one.
type Locker struct {
	client     lockClient
	ttl        time.Duration
	newToken   func() string
	releaseCfg resilience.RetryConfig
}

// NewLocker creates a Locker whose locks expire after ttl.
func NewLocker(client lockClient, ttl time.Duration) *Locker {
	return &Locker{
		client:     client,
		ttl:        ttl,
		newToken:   func() string { return uuid.New().String() },
		releaseCfg: AggressiveRetryConfig(),
	}
}

// WithTokenSource overrides lock token generation.
func (l *Locker) WithTokenSource(fn func() string) *Locker {
	l.newToken = fn
	return l
}

// WithReleaseRetry overrides the retry policy used on release.
func (l *Locker) WithReleaseRetry(cfg resilience.RetryConfig) *Locker {
	l.releaseCfg = cfg
	return l
}

// TryAcquire makes a single attempt to take key. It never waits for a holder.
// On success it returns the token that must be handed back to Release.
func (l *Locker) TryAcquire(ctx context.Context, key string) (string, bool, error) {
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release frees key if it is still held under token.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if token == "" {
		return ErrLockNotHeld
	}

	deleted, err := RetryableOperation(ctx, l.releaseCfg, "lock.release", func(ctx context.Context) (int64, error) {
		return l.client.Eval(ctx, releaseScript, []string{key}, token).Int64()
	})
	if err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	if deleted == 0 {
		// expired and possibly taken by someone else
		return ErrLockNotHeld
	}
	return nil
}
