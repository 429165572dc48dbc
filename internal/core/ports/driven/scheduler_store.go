package driven

import (
	"context"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// SchedulerStore persists scheduled task state and execution history.
type SchedulerStore interface {
	// GetTask retrieves a scheduled task by ID.
	// Returns nil and no error if the task does not exist.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// ListTasks returns all scheduled tasks ordered by ID.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask creates or updates a task based on ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// DeleteTask removes a task and its history.
	DeleteTask(ctx context.Context, taskID string) error

	// RecordResult logs a task execution result.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns recent results for a task, most recent first.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps the most recent keep results per task.
	PruneHistory(ctx context.Context, keep int) error
}
