package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_TryLock(t *testing.T) {
	ctx := context.Background()

	t.Run("second holder is refused", func(t *testing.T) {
		l := NewMemoryLocker()
		token, err := l.TryLock(ctx, "cashflow-batch", time.Minute)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		_, err = l.TryLock(ctx, "cashflow-batch", time.Minute)
		assert.ErrorIs(t, err, finance.ErrLockNotAcquired)
	})

	t.Run("keys are independent", func(t *testing.T) {
		l := NewMemoryLocker()
		_, err := l.TryLock(ctx, "pricing-point:a", time.Minute)
		require.NoError(t, err)
		_, err = l.TryLock(ctx, "pricing-point:b", time.Minute)
		assert.NoError(t, err)
	})

	t.Run("unlock frees the key", func(t *testing.T) {
		l := NewMemoryLocker()
		token, err := l.TryLock(ctx, "invoice:x", time.Minute)
		require.NoError(t, err)
		require.NoError(t, l.Unlock(ctx, "invoice:x", token))
		assert.False(t, l.Held("invoice:x"))

		_, err = l.TryLock(ctx, "invoice:x", time.Minute)
		assert.NoError(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		l := NewMemoryLocker()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := l.TryLock(cctx, "cashflow-batch", time.Minute)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemoryLocker_LeaseExpiryFreesStuckLock(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()
	clock := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	l.leases.now = func() time.Time { return clock }

	stale, err := l.TryLock(ctx, "pricing-point:a", 30*time.Second)
	require.NoError(t, err)

	clock = clock.Add(31 * time.Second)
	fresh, err := l.TryLock(ctx, "pricing-point:a", 30*time.Second)
	require.NoError(t, err)
	assert.NotEqual(t, stale, fresh)

	// the crashed holder coming back must not release the new lease
	require.NoError(t, l.Unlock(ctx, "pricing-point:a", stale))
	assert.True(t, l.Held("pricing-point:a"))
}

func TestMemoryLocker_Extend(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()
	clock := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	l.leases.now = func() time.Time { return clock }

	token, err := l.TryLock(ctx, "pricing-point:a", 30*time.Second)
	require.NoError(t, err)

	clock = clock.Add(20 * time.Second)
	require.NoError(t, l.Extend(ctx, "pricing-point:a", token, 30*time.Second))

	clock = clock.Add(20 * time.Second)
	assert.True(t, l.Held("pricing-point:a"), "extended lease outlives its first ttl")
	_, err = l.TryLock(ctx, "pricing-point:a", 30*time.Second)
	assert.ErrorIs(t, err, finance.ErrLockNotAcquired)

	err = l.Extend(ctx, "pricing-point:a", "someone-else", 30*time.Second)
	assert.ErrorIs(t, err, finance.ErrLockNotAcquired)

	clock = clock.Add(time.Minute)
	err = l.Extend(ctx, "pricing-point:a", token, 30*time.Second)
	assert.ErrorIs(t, err, finance.ErrLockNotAcquired, "an expired lease cannot be revived")
}
