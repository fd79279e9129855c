// Package queue is the task queue and retry engine. Producers push
// tasks onto an unbounded FIFO; consumer loops pop one task at a time
// and dispatch it to a handler registered for the task's kind. A
// transiently failing task goes back to the tail with its retry count
// bumped, up to a fixed cap.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxRetries is the default retry cap. A task is attempted at most
// MaxRetries+1 times.
const MaxRetries = 5

// Task is one unit of work. Kind picks the handler; Payload is whatever
// that handler expects.
type Task struct {
	ID        string
	Kind      string
	Payload   any
	Retries   int
	AddedAt   time.Time
	LastRunAt time.Time
}

// Queue is an unbounded FIFO. Push never blocks; Pop blocks until a
// task arrives, the queue closes, or the context ends.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []*Task
	closed bool
}

func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a task, filling in its ID and enqueue time if unset. It
// reports whether the task was accepted; a closed queue takes nothing,
// and the caller decides what a refused task means.
func (q *Queue) Push(t *Task) bool {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.AddedAt.IsZero() {
		t.AddedAt = time.Now()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)
	q.cond.Signal()
	return true
}

// Pop removes and returns the oldest task. It returns false when the
// queue is closed or ctx ends before a task arrives.
func (q *Queue) Pop(ctx context.Context) (*Task, bool) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.cond.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.tasks) == 0 {
		if q.closed || ctx.Err() != nil {
			return nil, false
		}
		q.cond.Wait()
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t, true
}

// Len reports the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close wakes all blocked Pop calls. Queued tasks are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
