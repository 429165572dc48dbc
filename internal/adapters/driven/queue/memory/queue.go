// Package memory provides an in-process job queue backed by a buffered
// channel and a fixed pool of worker goroutines.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/logger"
)

var _ driven.JobQueue = (*Queue)(nil)

// Default sizing.
const (
	DefaultWorkers  = 4
	DefaultCapacity = 1024
)

// Queue runs tasks on a worker pool within the process.
// Tasks pending at Close are dropped.
type Queue struct {
	tasks   chan driven.Task
	workers int

	mu      sync.Mutex
	started bool
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewQueue returns a queue with the given worker count and buffer capacity.
// Non-positive values use the defaults.
func NewQueue(workers, capacity int) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		tasks:   make(chan driven.Task, capacity),
		workers: workers,
		done:    make(chan struct{}),
	}
}

// Enqueue buffers a task, blocking while the buffer is full.
func (q *Queue) Enqueue(ctx context.Context, task driven.Task) error {
	select {
	case <-q.done:
		return driven.ErrQueueClosed
	default:
	}
	select {
	case q.tasks <- task:
		return nil
	case <-q.done:
		return driven.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the workers. It may be called once.
func (q *Queue) Start(ctx context.Context, handler driven.TaskHandler) error {
	if handler == nil {
		return errors.New("queue: handler is required")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return errors.New("queue: already started")
	}
	select {
	case <-q.done:
		return driven.ErrQueueClosed
	default:
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, handler)
	}
	return nil
}

func (q *Queue) work(ctx context.Context, handler driven.TaskHandler) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			return
		case task := <-q.tasks:
			Run(ctx, handler, task)
		}
	}
}

// Close stops the workers and waits for in-flight tasks.
func (q *Queue) Close() error {
	q.once.Do(func() { close(q.done) })
	q.wg.Wait()
	return nil
}

// Len reports the number of buffered tasks.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Run executes one task, logging its error and containing panics so a
// faulty task cannot take down the worker.
func Run(ctx context.Context, handler driven.TaskHandler, task driven.Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task %s for tenant %s panicked: %v", task.Kind, task.TenantID, r)
		}
	}()
	if err := handler(ctx, task); err != nil {
		logger.With("task", task.Kind, "tenant_id", task.TenantID, "job_id", task.JobID).
			Warnw("task failed", "error", err, "kind", domain.KindOf(err))
	}
}
