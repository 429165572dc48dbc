package domain

import "time"

// ScheduledTask is a recurring background task and its run state.
type ScheduledTask struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`

	LastRun     time.Time `json:"last_run,omitempty"`
	NextRun     time.Time `json:"next_run,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	LastSuccess time.Time `json:"last_success,omitempty"`

	Enabled bool `json:"enabled"`
}

// Due reports whether an enabled task should run at now.
func (t *ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// TaskResult is the outcome of one task run.
type TaskResult struct {
	TaskID    string    `json:"task_id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`

	// ItemsProcessed counts the units of work the run handled,
	// e.g. sync jobs queued.
	ItemsProcessed int `json:"items_processed"`
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// Tick is how often due tasks are checked for.
	Tick time.Duration

	// HistoryLimit is the number of results kept per task.
	HistoryLimit int

	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// Task IDs for built-in tasks.
const (
	// TaskIDConnectionSync triggers a sync for every (tenant, source) with
	// a stored connection.
	TaskIDConnectionSync = "connection-sync"

	// TaskIDEnrichmentSweep re-enriches resources that have no embedding.
	TaskIDEnrichmentSweep = "enrichment-sweep"
)

// DefaultSchedulerConfig returns the default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:      true,
		Tick:         time.Minute,
		HistoryLimit: 100,
		TaskConfigs: map[string]TaskConfig{
			TaskIDConnectionSync: {
				Enabled:  true,
				Interval: time.Hour,
			},
			TaskIDEnrichmentSweep: {
				Enabled:  true,
				Interval: 6 * time.Hour,
			},
		},
	}
}
