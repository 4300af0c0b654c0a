package pools

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitCompleted(t *testing.T, pool *WorkerPool, n uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		return pool.Stats().TasksCompleted >= n
	}, 5*time.Second, 5*time.Millisecond)
}

func TestWorkerPool_Basic(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, pool.Submit(func() {
			counter.Add(1)
		}))
	}

	waitCompleted(t, pool, 100)
	assert.Equal(t, int64(100), counter.Load())

	stats := pool.Stats()
	assert.Equal(t, 4, stats.NumWorkers)
	assert.Equal(t, uint64(100), stats.TasksSubmitted)
	assert.Zero(t, stats.TasksPending)
}

func TestWorkerPool_ParallelismBoundedByWorkers(t *testing.T) {
	const workers = 3
	pool := NewWorkerPool(workers)
	defer pool.Close()

	var running, peak atomic.Int64
	release := make(chan struct{})
	for i := 0; i < 12; i++ {
		require.NoError(t, pool.Submit(func() {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
		}))
	}

	require.Eventually(t, func() bool { return running.Load() == workers }, time.Second, time.Millisecond)
	// Remaining tasks wait in the queue rather than starting
	assert.Equal(t, 12-workers, pool.Stats().Queued)

	close(release)
	waitCompleted(t, pool, 12)
	assert.Equal(t, int64(workers), peak.Load())
}

func TestWorkerPool_TasksRunSeriallyPerWorker(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Close()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		i := i
		require.NoError(t, pool.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	waitCompleted(t, pool, 50)

	for i := range order {
		assert.Equal(t, i, order[i])
	}
}

func TestWorkerPool_PanicDoesNotKillWorker(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Close()

	require.NoError(t, pool.Submit(func() { panic("boom") }))
	done := make(chan struct{})
	require.NoError(t, pool.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
	waitCompleted(t, pool, 2)
	assert.Equal(t, uint64(1), pool.Stats().TasksPanicked)
}

func TestWorkerPool_CloseDrainsQueue(t *testing.T) {
	pool := NewWorkerPool(2)

	var counter atomic.Int64
	for i := 0; i < 200; i++ {
		require.NoError(t, pool.Submit(func() {
			time.Sleep(100 * time.Microsecond)
			counter.Add(1)
		}))
	}
	pool.Close()

	assert.Equal(t, int64(200), counter.Load())
	assert.ErrorIs(t, pool.Submit(func() {}), ErrPoolClosed)
	assert.Equal(t, uint64(1), pool.Stats().TasksRejected)

	// Close is idempotent
	pool.Close()
}

func TestWorkerPool_BoundedQueueRejects(t *testing.T) {
	pool := NewWorkerPool(1, WithQueue(NewBoundedQueue(2)))
	defer pool.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		close(started)
		<-block
	}))
	<-started

	require.NoError(t, pool.Submit(func() {}))
	require.NoError(t, pool.Submit(func() {}))
	assert.ErrorIs(t, pool.Submit(func() {}), ErrQueueFull)
	assert.Equal(t, uint64(1), pool.Stats().TasksRejected)

	close(block)
	waitCompleted(t, pool, 3)
}

func TestWorkerPool_NilTask(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Close()
	assert.Error(t, pool.Submit(nil))
}

func TestWorkerPool_DefaultWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Close()
	assert.Positive(t, pool.Workers())
}

func BenchmarkWorkerPool_Submit(b *testing.B) {
	pool := NewWorkerPool(8)
	defer pool.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = pool.Submit(func() {
				_ = 1 + 1
			})
		}
	})
}
