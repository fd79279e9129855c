package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/errkind"
)

func TestQueueFIFO(t *testing.T) {
	q := New()
	q.Push(&Task{Kind: "k", Payload: 1})
	q.Push(&Task{Kind: "k", Payload: 2})
	q.Push(&Task{Kind: "k", Payload: 3})
	assert.Equal(t, 3, q.Len())

	ctx := context.Background()
	for _, want := range []int{1, 2, 3} {
		task, ok := q.Pop(ctx)
		require.True(t, ok)
		assert.Equal(t, want, task.Payload)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueuePushFillsBookkeeping(t *testing.T) {
	q := New()
	q.Push(&Task{Kind: "k"})
	task, ok := q.Pop(context.Background())
	require.True(t, ok)
	assert.NotEmpty(t, task.ID)
	assert.False(t, task.AddedAt.IsZero())
}

func TestQueuePushAfterCloseIsRefused(t *testing.T) {
	q := New()
	assert.True(t, q.Push(&Task{Kind: "k"}))
	q.Close()
	assert.False(t, q.Push(&Task{Kind: "k"}))
	assert.Equal(t, 1, q.Len())
}

func TestQueuePopUnblocksOnClose(t *testing.T) {
	q := New()
	done := make(chan bool)
	go func() {
		_, ok := q.Pop(context.Background())
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop did not unblock on Close")
	}
}

func TestQueuePopUnblocksOnContextCancel(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool)
	go func() {
		_, ok := q.Pop(ctx)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop did not unblock on context cancel")
	}
}

func TestConsumerRetryBound(t *testing.T) {
	q := New()

	var fatalErr error
	attempts := 0
	consumer := NewConsumer(q, nil, MaxRetries, func(task *Task, err error) {
		fatalErr = err
		q.Close()
	})
	consumer.Handle("flaky", func(ctx context.Context, task *Task) error {
		attempts++
		return errkind.Transientf("still down")
	})

	q.Push(&Task{Kind: "flaky"})
	consumer.Run(context.Background())

	// Initial attempt plus MaxRetries re-enqueues, then dropped.
	assert.Equal(t, MaxRetries+1, attempts)
	require.Error(t, fatalErr)
	assert.Contains(t, fatalErr.Error(), "still down")
}

func TestConsumerPermanentErrorIsNotRetried(t *testing.T) {
	q := New()

	attempts := 0
	var fatal int
	consumer := NewConsumer(q, nil, MaxRetries, func(task *Task, err error) {
		fatal++
		q.Close()
	})
	consumer.Handle("doomed", func(ctx context.Context, task *Task) error {
		attempts++
		return errkind.Permanentf("bad request")
	})

	q.Push(&Task{Kind: "doomed"})
	consumer.Run(context.Background())

	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, fatal)
}

func TestConsumerSuccessAfterRetry(t *testing.T) {
	q := New()

	attempts := 0
	var fatal int
	consumer := NewConsumer(q, nil, MaxRetries, func(task *Task, err error) { fatal++ })
	consumer.Handle("recovers", func(ctx context.Context, task *Task) error {
		attempts++
		if attempts < 3 {
			return errkind.Transientf("not yet")
		}
		q.Close()
		return nil
	})

	q.Push(&Task{Kind: "recovers"})
	consumer.Run(context.Background())

	assert.Equal(t, 3, attempts)
	assert.Equal(t, 0, fatal)
}

func TestConsumerUnknownKindIsFatal(t *testing.T) {
	q := New()

	var fatalErr error
	consumer := NewConsumer(q, nil, MaxRetries, func(task *Task, err error) {
		fatalErr = err
		q.Close()
	})

	q.Push(&Task{Kind: "nobody-home"})
	consumer.Run(context.Background())
	require.Error(t, fatalErr)
	assert.Contains(t, fatalErr.Error(), "no handler")
}

func TestMultipleConsumersShareQueue(t *testing.T) {
	q := New()

	var mu sync.Mutex
	handled := make(map[int]bool)
	const n = 20

	var wg sync.WaitGroup
	handler := func(ctx context.Context, task *Task) error {
		mu.Lock()
		handled[task.Payload.(int)] = true
		done := len(handled) == n
		mu.Unlock()
		if done {
			q.Close()
		}
		return nil
	}

	for i := 0; i < 3; i++ {
		consumer := NewConsumer(q, nil, MaxRetries, nil)
		consumer.Handle("work", handler)
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Run(context.Background())
		}()
	}
	for i := 0; i < n; i++ {
		q.Push(&Task{Kind: "work", Payload: i})
	}
	wg.Wait()

	assert.Len(t, handled, n)
}

func TestConsumerRetryOnClosedQueueIsFatal(t *testing.T) {
	q := New()

	var fatal int
	consumer := NewConsumer(q, nil, MaxRetries, func(task *Task, err error) { fatal++ })
	consumer.Handle("stranded", func(ctx context.Context, task *Task) error {
		// Shutdown races the retry: the re-enqueue must not silently
		// swallow the task.
		q.Close()
		return errkind.Transientf("still down")
	})

	q.Push(&Task{Kind: "stranded"})
	consumer.Run(context.Background())

	assert.Equal(t, 1, fatal)
}

func TestConsumerCancelledTaskIsDropped(t *testing.T) {
	q := New()

	attempts := 0
	var fatal int
	consumer := NewConsumer(q, nil, MaxRetries, func(task *Task, err error) { fatal++ })
	consumer.Handle("cancelled", func(ctx context.Context, task *Task) error {
		attempts++
		q.Close()
		return fmt.Errorf("interrupted: %w", context.Canceled)
	})

	q.Push(&Task{Kind: "cancelled"})
	consumer.Run(context.Background())

	assert.Equal(t, 1, attempts)
	assert.Equal(t, 0, fatal)
}
