package pools

import (
	"errors"
	"sync"
)

var (
	ErrQueueFull  = errors.New("pools: queue full")
	ErrPoolClosed = errors.New("pools: closed")
)

// Queue feeds tasks to pool workers. Push must not block the caller;
// Pop blocks until a task is available or the queue is closed and drained.
type Queue interface {
	Push(task Task) error
	Pop() (Task, bool)
	Close()
	Len() int
}

// UnboundedQueue never rejects a task. Under sustained overload the backlog
// grows without limit.
type UnboundedQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []Task
	head   int
	closed bool
}

// NewUnboundedQueue creates an unbounded FIFO queue
func NewUnboundedQueue() *UnboundedQueue {
	q := &UnboundedQueue{tasks: make([]Task, 0, 64)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *UnboundedQueue) Push(task Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrPoolClosed
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	q.cond.Signal()
	return nil
}

func (q *UnboundedQueue) Pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.head == len(q.tasks) && !q.closed {
		q.cond.Wait()
	}
	if q.head == len(q.tasks) {
		return nil, false
	}

	task := q.tasks[q.head]
	q.tasks[q.head] = nil
	q.head++

	// Reclaim the consumed prefix once it dominates the slice
	if q.head > 64 && q.head*2 >= len(q.tasks) {
		n := copy(q.tasks, q.tasks[q.head:])
		q.tasks = q.tasks[:n]
		q.head = 0
	}
	return task, true
}

// Close stops new pushes; queued tasks are still handed out
func (q *UnboundedQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *UnboundedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks) - q.head
}

// BoundedQueue holds at most capacity tasks and rejects the rest with
// ErrQueueFull.
type BoundedQueue struct {
	mu     sync.RWMutex
	tasks  chan Task
	closed bool
}

// NewBoundedQueue creates a queue with admission control
func NewBoundedQueue(capacity int) *BoundedQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &BoundedQueue{tasks: make(chan Task, capacity)}
}

func (q *BoundedQueue) Push(task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrPoolClosed
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *BoundedQueue) Pop() (Task, bool) {
	task, ok := <-q.tasks
	return task, ok
}

func (q *BoundedQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
}

func (q *BoundedQueue) Len() int {
	return len(q.tasks)
}
