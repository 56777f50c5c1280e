package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/redis/go-redis/v9"
)

const defaultLockPrefix = "ledger:lock:"

// unlockScript deletes the key only while it still holds the caller's token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript refreshes the expiry only while the key holds the caller's token
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker implements appfinance.Locker with SET NX PX leases, so the
// pricing, cashflow and invoice jobs of every replica share the same locks
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLocker wraps an existing client. An empty prefix uses "ledger:lock:".
func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = defaultLockPrefix
	}
	return &RedisLocker{client: client, prefix: prefix}
}

// TryLock implements appfinance.Locker
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	if !ok {
		return "", finance.ErrLockNotAcquired
	}
	return token, nil
}

// Extend implements appfinance.Locker
func (l *RedisLocker) Extend(ctx context.Context, key, token string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.prefix + key}, token, ttl.Milliseconds()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to extend lease %s: %w", key, err)
	}
	if n == 0 {
		return finance.ErrLockNotAcquired
	}
	return nil
}

// Unlock implements appfinance.Locker
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	err := unlockScript.Run(ctx, l.client, []string{l.prefix + key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lease %s: %w", key, err)
	}
	return nil
}

var _ appfinance.Locker = (*RedisLocker)(nil)
