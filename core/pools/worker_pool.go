package pools

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Task represents a unit of work
type Task func()

// WorkerPool runs tasks on a fixed set of long-lived goroutines that share
// one Queue. Each worker runs a task to completion before taking the next.
type WorkerPool struct {
	numWorkers int
	queue      Queue
	logger     *zap.Logger
	wg         sync.WaitGroup
	closed     atomic.Bool

	// Statistics
	stats struct {
		tasksSubmitted atomic.Uint64
		tasksCompleted atomic.Uint64
		tasksRejected  atomic.Uint64
		tasksPanicked  atomic.Uint64
	}
}

// PoolOption configures a WorkerPool
type PoolOption func(*WorkerPool)

// WithQueue replaces the default unbounded queue
func WithQueue(q Queue) PoolOption {
	return func(p *WorkerPool) {
		p.queue = q
	}
}

// WithLogger sets the logger used for task panics
func WithLogger(l *zap.Logger) PoolOption {
	return func(p *WorkerPool) {
		p.logger = l
	}
}

// NewWorkerPool creates and starts numWorkers workers.
// numWorkers <= 0 means one worker per CPU.
func NewWorkerPool(numWorkers int, opts ...PoolOption) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		numWorkers: numWorkers,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(pool)
	}
	if pool.queue == nil {
		pool.queue = NewUnboundedQueue()
	}

	pool.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go pool.worker(i)
	}

	return pool
}

// Submit enqueues a task. It returns ErrPoolClosed after Close, or the
// queue's admission error (ErrQueueFull for a BoundedQueue).
func (p *WorkerPool) Submit(task Task) error {
	if task == nil {
		return fmt.Errorf("pools: nil task")
	}
	if p.closed.Load() {
		p.stats.tasksRejected.Add(1)
		return ErrPoolClosed
	}
	if err := p.queue.Push(task); err != nil {
		p.stats.tasksRejected.Add(1)
		return err
	}
	p.stats.tasksSubmitted.Add(1)
	return nil
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for {
		task, ok := p.queue.Pop()
		if !ok {
			return
		}
		p.run(id, task)
	}
}

// run executes one task; a panic is logged and the worker keeps going
func (p *WorkerPool) run(id int, task Task) {
	defer func() {
		p.stats.tasksCompleted.Add(1)
		if r := recover(); r != nil {
			p.stats.tasksPanicked.Add(1)
			p.logger.Error("worker task panicked",
				zap.Int("worker", id),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	task()
}

// Close stops accepting tasks, lets workers drain what is queued and waits
// for them to exit.
func (p *WorkerPool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.queue.Close()
	p.wg.Wait()
}

// Workers returns the configured worker count
func (p *WorkerPool) Workers() int {
	return p.numWorkers
}

// Stats returns pool statistics
func (p *WorkerPool) Stats() WorkerPoolStats {
	submitted := p.stats.tasksSubmitted.Load()
	completed := p.stats.tasksCompleted.Load()
	var pending uint64
	if submitted > completed {
		pending = submitted - completed
	}
	return WorkerPoolStats{
		NumWorkers:     p.numWorkers,
		TasksSubmitted: submitted,
		TasksCompleted: completed,
		TasksPending:   pending,
		TasksRejected:  p.stats.tasksRejected.Load(),
		TasksPanicked:  p.stats.tasksPanicked.Load(),
		Queued:         p.queue.Len(),
	}
}

// WorkerPoolStats contains pool statistics
type WorkerPoolStats struct {
	NumWorkers     int    `json:"num_workers"`
	TasksSubmitted uint64 `json:"tasks_submitted"`
	TasksCompleted uint64 `json:"tasks_completed"`
	TasksPending   uint64 `json:"tasks_pending"`
	TasksRejected  uint64 `json:"tasks_rejected"`
	TasksPanicked  uint64 `json:"tasks_panicked"`
	Queued         int    `json:"queued"`
}
