package cache

import (
	"context"
	"fmt"
	"time"

	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Coordination bundles the lease locker and the idempotency store used by
// the ledger jobs and event handlers
type Coordination struct {
	Locker      appfinance.Locker
	Idempotency shared.IdempotencyStore
	Backend     string // redis or memory

	client *redis.Client
}

// Close releases the idempotency store and the Redis client, if any
func (c *Coordination) Close() error {
	err := c.Idempotency.Close()
	if c.client != nil {
		if cerr := c.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Option configures NewCoordination
type Option func(*options)

type options struct {
	logger        *zap.Logger
	allowFallback bool
	pingTimeout   time.Duration
}

// WithLogger sets the logger used to report the chosen backend
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// process-local locks instead of failing. Defaults to true.
func WithInMemoryFallback(allow bool) Option {
	return func(o *options) { o.allowFallback = allow }
}

// NewCoordination picks Redis when a host is configured and reachable,
// in-memory leases otherwise
func NewCoordination(ctx context.Context, cfg config.RedisConfig, opts ...Option) (*Coordination, error) {
	o := options{logger: zap.NewNop(), allowFallback: true, pingTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	addr := cfg.Addr()
	if addr == "" {
		o.logger.Info("redis not configured, using in-memory leases")
		return newMemoryCoordination(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, o.pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !o.allowFallback {
			return nil, fmt.Errorf("redis required for ledger leases but unavailable: %w", err)
		}
		o.logger.Warn("redis unavailable, falling back to in-memory leases; "+
			"concurrent replicas will not see each other's locks",
			zap.String("addr", addr),
			zap.Error(err),
		)
		return newMemoryCoordination(), nil
	}

	o.logger.Info("using redis leases", zap.String("addr", addr), zap.Int("db", cfg.DB))
	return &Coordination{
		Locker:      NewRedisLocker(client, ""),
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Backend:     "redis",
		client:      client,
	}, nil
}

func newMemoryCoordination() *Coordination {
	return &Coordination{
		Locker:      NewMemoryLocker(),
		Idempotency: NewInMemoryIdempotencyStore(),
		Backend:     "memory",
	}
}
