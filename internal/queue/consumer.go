package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkhoard/linkhoard/internal/errkind"
)

// Handler processes one task. A transient error re-enqueues the task; a
// permanent error drops it as failed.
type Handler func(ctx context.Context, t *Task) error

// FatalFunc is called once when a task fails for good, either with a
// permanent error or after exhausting its retries.
type FatalFunc func(t *Task, err error)

// Consumer runs a dispatch loop over a queue. Multiple consumers may
// share one queue; each processes one task at a time.
type Consumer struct {
	queue      *Queue
	handlers   map[string]Handler
	onFatal    FatalFunc
	maxRetries int
	logger     *slog.Logger
}

// NewConsumer wires a consumer. maxRetries <= 0 uses the default cap;
// onFatal may be nil.
func NewConsumer(q *Queue, logger *slog.Logger, maxRetries int, onFatal FatalFunc) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRetries <= 0 {
		maxRetries = MaxRetries
	}
	return &Consumer{
		queue:      q,
		handlers:   make(map[string]Handler),
		onFatal:    onFatal,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Handle registers the handler for a task kind. Not safe to call after
// Run starts.
func (c *Consumer) Handle(kind string, h Handler) {
	c.handlers[kind] = h
}

// Run pops and dispatches tasks until the queue closes or ctx ends.
func (c *Consumer) Run(ctx context.Context) {
	for {
		t, ok := c.queue.Pop(ctx)
		if !ok {
			return
		}
		c.dispatch(ctx, t)
	}
}

func (c *Consumer) dispatch(ctx context.Context, t *Task) {
	h, ok := c.handlers[t.Kind]
	if !ok {
		c.fatal(t, fmt.Errorf("no handler for task kind %q", t.Kind))
		return
	}

	t.LastRunAt = time.Now()
	err := h(ctx, t)
	switch {
	case err == nil:
		c.logger.Debug("task done", "task", t.ID, "kind", t.Kind,
			"elapsed", time.Since(t.AddedAt).Round(time.Millisecond))
	case errkind.IsCancelled(err):
		c.logger.Info("task cancelled", "task", t.ID, "kind", t.Kind)
	case errkind.IsTransient(err) && t.Retries < c.maxRetries:
		t.Retries++
		if !c.queue.Push(t) {
			// Queue closed between pop and re-enqueue; the task still
			// ends with a verdict.
			c.fatal(t, err)
			return
		}
		c.logger.Warn("task failed, re-enqueueing", "task", t.ID, "kind", t.Kind,
			"retries", t.Retries, "error", err)
	default:
		c.fatal(t, err)
	}
}

func (c *Consumer) fatal(t *Task, err error) {
	c.logger.Error("task failed", "task", t.ID, "kind", t.Kind,
		"retries", t.Retries, "error", err)
	if c.onFatal != nil {
		c.onFatal(t, err)
	}
}
