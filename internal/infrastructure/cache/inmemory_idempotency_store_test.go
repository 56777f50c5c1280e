package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first mark wins", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "evt-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "evt-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)

		processed, err := store.IsProcessed(ctx, "evt-1")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("unknown id is not processed", func(t *testing.T) {
		processed, err := store.IsProcessed(ctx, "evt-unknown")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("expired id can be processed again", func(t *testing.T) {
		clock := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		store.leases.now = func() time.Time { return clock }

		isNew, err := store.MarkProcessed(ctx, "evt-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)

		clock = clock.Add(2 * time.Minute)
		processed, _ := store.IsProcessed(ctx, "evt-2")
		assert.False(t, processed)

		isNew, err = store.MarkProcessed(ctx, "evt-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.MarkProcessed(context.Background(), "evt-shared", time.Hour); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	clock := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store.leases.now = func() time.Time { return clock }

	_, _ = store.MarkProcessed(context.Background(), "short", time.Second)
	_, _ = store.MarkProcessed(context.Background(), "long", time.Hour)
	clock = clock.Add(time.Minute)

	assert.Equal(t, 1, store.leases.sweep())
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
