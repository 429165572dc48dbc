package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

const taskColumns = `id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled`

// GetTask retrieves a scheduled task by ID.
// Returns nil and no error if the task does not exist.
func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM scheduled_tasks WHERE id = ?`, taskID)
	if err != nil {
		return nil, storageError("get scheduled task", err)
	}
	tasks, err := scanScheduledTasks(rows)
	if err != nil || len(tasks) == 0 {
		return nil, err
	}
	return &tasks[0], nil
}

// ListTasks returns all scheduled tasks.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM scheduled_tasks ORDER BY id`)
	if err != nil {
		return nil, storageError("list scheduled tasks", err)
	}
	return scanScheduledTasks(rows)
}

// SaveTask persists a task's state.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_error = excluded.last_error,
			last_success = excluded.last_success,
			enabled = excluded.enabled
	`, task.ID, task.Name, int64(task.Interval.Seconds()),
		formatNullableTime(task.LastRun), formatNullableTime(task.NextRun),
		nullString(task.LastError), formatNullableTime(task.LastSuccess),
		boolToInt(task.Enabled))
	if err != nil {
		return storageError("save scheduled task", err)
	}
	return nil
}

// DeleteTask removes a task; its history goes with it.
func (s *schedulerStore) DeleteTask(ctx context.Context, taskID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM scheduled_tasks WHERE id = ?", taskID); err != nil {
		return storageError("delete scheduled task", err)
	}
	return nil
}

// RecordResult logs a task execution result.
func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil || result.TaskID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO task_results (task_id, started_at, ended_at, success, error, items_processed)
		VALUES (?, ?, ?, ?, ?, ?)
	`, result.TaskID, formatTime(result.StartedAt), formatTime(result.EndedAt),
		boolToInt(result.Success), nullString(result.Error), result.ItemsProcessed)
	if err != nil {
		return storageError("record task result", err)
	}
	return nil
}

// GetTaskHistory returns recent results for a task, most recent first.
func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT task_id, started_at, ended_at, success, error, items_processed
		FROM task_results
		WHERE task_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, taskID, limit)
	if err != nil {
		return nil, storageError("query task history", err)
	}
	defer rows.Close()

	results := make([]domain.TaskResult, 0)
	for rows.Next() {
		var result domain.TaskResult
		var startedAt, endedAt string
		var success int
		var errMsg sql.NullString
		if err := rows.Scan(&result.TaskID, &startedAt, &endedAt,
			&success, &errMsg, &result.ItemsProcessed); err != nil {
			return nil, fmt.Errorf("scanning task result: %w", err)
		}
		result.StartedAt = parseTime(startedAt)
		result.EndedAt = parseTime(endedAt)
		result.Success = success == 1
		result.Error = errMsg.String
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task history: %w", err)
	}
	return results, nil
}

// PruneHistory keeps the most recent keep results per task.
func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM task_results
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS rn
				FROM task_results
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return storageError("prune task history", err)
	}
	return nil
}

func scanScheduledTasks(rows *sql.Rows) ([]domain.ScheduledTask, error) {
	defer rows.Close()

	var tasks []domain.ScheduledTask //nolint:prealloc // size unknown from query
	for rows.Next() {
		var task domain.ScheduledTask
		var intervalSeconds int64
		var lastRun, nextRun, lastError, lastSuccess sql.NullString
		var enabled int
		if err := rows.Scan(&task.ID, &task.Name, &intervalSeconds,
			&lastRun, &nextRun, &lastError, &lastSuccess, &enabled); err != nil {
			return nil, fmt.Errorf("scanning scheduled task: %w", err)
		}
		task.Interval = time.Duration(intervalSeconds) * time.Second
		task.LastRun = parseNullableTime(lastRun)
		task.NextRun = parseNullableTime(nextRun)
		task.LastError = lastError.String
		task.LastSuccess = parseNullableTime(lastSuccess)
		task.Enabled = enabled == 1
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scheduled tasks: %w", err)
	}
	return tasks, nil
}

// formatNullableTime returns nil for the zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// parseNullableTime returns the zero time for NULL or unparseable values.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	return parseTime(s.String)
}
