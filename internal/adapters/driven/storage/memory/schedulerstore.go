package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// Ensure SchedulerStore implements the interface.
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// SchedulerStore is an in-memory implementation of driven.SchedulerStore.
type SchedulerStore struct {
	mu      sync.RWMutex
	tasks   map[string]domain.ScheduledTask
	history map[string][]domain.TaskResult
}

// NewSchedulerStore creates a new in-memory scheduler store.
func NewSchedulerStore() *SchedulerStore {
	return &SchedulerStore{
		tasks:   make(map[string]domain.ScheduledTask),
		history: make(map[string][]domain.TaskResult),
	}
}

// GetTask retrieves a task, or nil if it does not exist.
func (s *SchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

// ListTasks returns all tasks ordered by ID.
func (s *SchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]domain.ScheduledTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// SaveTask creates or updates a task.
func (s *SchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

// DeleteTask removes a task and its history.
func (s *SchedulerStore) DeleteTask(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, taskID)
	delete(s.history, taskID)
	return nil
}

// RecordResult appends a task result.
func (s *SchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	if result == nil || result.TaskID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[result.TaskID] = append(s.history[result.TaskID], *result)
	return nil
}

// GetTaskHistory returns up to limit results, most recent first.
func (s *SchedulerStore) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := newestFirst(s.history[taskID])
	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// PruneHistory keeps the most recent keep results per task.
func (s *SchedulerStore) PruneHistory(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, results := range s.history {
		sorted := newestFirst(results)
		if len(sorted) > keep {
			sorted = sorted[:keep]
		}
		s.history[id] = sorted
	}
	return nil
}

func newestFirst(results []domain.TaskResult) []domain.TaskResult {
	out := make([]domain.TaskResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}
