package finance

import (
	"context"
	"hash/fnv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// WorkQueue routes keyed jobs to a fixed pool of workers. A key always hashes
// to the same worker, and each worker drains its own FIFO channel, so jobs
// sharing a key are consumed by a single goroutine in submission order while
// distinct keys proceed in parallel.
type WorkQueue struct {
	workers int
}

// NewWorkQueue creates a queue with the given number of workers (at least one)
func NewWorkQueue(workers int) *WorkQueue {
	if workers < 1 {
		workers = 1
	}
	return &WorkQueue{workers: workers}
}

// Workers returns the pool size
func (q *WorkQueue) Workers() int {
	return q.workers
}

// WorkerFor returns the worker index owning the key (FNV-1a over the uuid bytes)
func (q *WorkQueue) WorkerFor(key uuid.UUID) int {
	h := fnv.New32a()
	_, _ = h.Write(key[:])
	return int(h.Sum32() % uint32(q.workers))
}

// Process dispatches every key to its worker and blocks until all workers
// have drained their channel or ctx is cancelled. fn receives the worker
// index for logging.
func (q *WorkQueue) Process(ctx context.Context, keys []uuid.UUID, fn func(ctx context.Context, worker int, key uuid.UUID)) error {
	queues := make([]chan uuid.UUID, q.workers)
	for i := range queues {
		queues[i] = make(chan uuid.UUID, len(keys))
	}
	for _, key := range keys {
		queues[q.WorkerFor(key)] <- key
	}
	for _, ch := range queues {
		close(ch)
	}

	g, gctx := errgroup.WithContext(ctx)
	for worker, ch := range queues {
		g.Go(func() error {
			for key := range ch {
				if err := gctx.Err(); err != nil {
					return err
				}
				fn(gctx, worker, key)
			}
			return nil
		})
	}
	return g.Wait()
}
