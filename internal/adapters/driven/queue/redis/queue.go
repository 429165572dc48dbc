// Package redis provides a job queue shared across hub processes, stored
// as a Redis list. Producers LPUSH encoded tasks and workers BRPOP them.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/queue/memory"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/logger"
)

var _ driven.JobQueue = (*Queue)(nil)

// Defaults.
const (
	DefaultKey     = "sercha-hub:tasks"
	DefaultWorkers = 4

	// pollTimeout bounds each BRPOP so workers notice Close promptly.
	pollTimeout = time.Second
)

// Queue is a Redis list-backed job queue.
type Queue struct {
	rdb     *goredis.Client
	key     string
	workers int
	owned   bool

	mu      sync.Mutex
	started bool
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewQueue connects to redisURL (redis://host:port/db) and pings it.
func NewQueue(ctx context.Context, redisURL string, workers int) (*Queue, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("redis: url is required")
	}
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parsing url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	q := NewQueueFromClient(rdb, DefaultKey, workers)
	q.owned = true
	return q, nil
}

// NewQueueFromClient wraps an existing client. Close does not close it.
func NewQueueFromClient(rdb *goredis.Client, key string, workers int) *Queue {
	if key == "" {
		key = DefaultKey
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Queue{
		rdb:     rdb,
		key:     key,
		workers: workers,
		done:    make(chan struct{}),
	}
}

// Enqueue pushes the encoded task onto the list.
func (q *Queue) Enqueue(ctx context.Context, task driven.Task) error {
	select {
	case <-q.done:
		return driven.ErrQueueClosed
	default:
	}
	payload, err := task.Encode()
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
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
		default:
		}

		res, err := q.rdb.BRPop(ctx, pollTimeout, q.key).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, goredis.ErrClosed) {
				return
			}
			logger.Warn("redis brpop: %v", err)
			select {
			case <-time.After(pollTimeout):
			case <-ctx.Done():
				return
			case <-q.done:
				return
			}
			continue
		}
		// res is [key, value].
		if len(res) != 2 {
			continue
		}
		task, err := driven.DecodeTask([]byte(res[1]))
		if err != nil {
			logger.Warn("dropping malformed task: %v", err)
			continue
		}
		memory.Run(ctx, handler, task)
	}
}

// Len reports the number of queued tasks.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}

// Close stops the workers, waits for in-flight tasks and closes an owned client.
func (q *Queue) Close() error {
	q.once.Do(func() { close(q.done) })
	q.wg.Wait()
	if q.owned {
		return q.rdb.Close()
	}
	return nil
}
