package driven

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("queue closed")

// TaskKind identifies a background task.
type TaskKind string

// Background task kinds.
const (
	TaskSync   TaskKind = "sync"
	TaskEnrich TaskKind = "enrich"
)

// Task is one unit of background work.
type Task struct {
	Kind     TaskKind      `json:"kind"`
	TenantID string        `json:"tenant_id"`
	Source   domain.Source `json:"source,omitempty"`

	// JobID identifies the sync job for sync tasks.
	JobID string `json:"job_id,omitempty"`

	// ResourceIDs lists resources for enrichment tasks.
	ResourceIDs []string `json:"resource_ids,omitempty"`
}

// Encode serialises the task for queue transport.
func (t Task) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// DecodeTask parses a serialised task.
func DecodeTask(data []byte) (Task, error) {
	var t Task
	err := json.Unmarshal(data, &t)
	return t, err
}

// TaskHandler executes a dequeued task.
type TaskHandler func(ctx context.Context, task Task) error

// JobQueue runs background tasks outside the caller's request.
type JobQueue interface {
	// Enqueue schedules a task and returns without waiting for it.
	Enqueue(ctx context.Context, task Task) error

	// Start launches consumers that run handler for each task until ctx is
	// cancelled or Close is called. It returns once consumers are running.
	Start(ctx context.Context, handler TaskHandler) error

	// Close stops consumers and waits for in-flight tasks.
	Close() error
}
