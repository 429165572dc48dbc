package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	assert.True(t, config.Enabled)
	assert.Equal(t, time.Minute, config.Tick)
	assert.Len(t, config.TaskConfigs, 2)

	syncCfg := config.TaskConfigs[TaskIDConnectionSync]
	assert.True(t, syncCfg.Enabled)
	assert.Equal(t, time.Hour, syncCfg.Interval)

	sweepCfg := config.TaskConfigs[TaskIDEnrichmentSweep]
	assert.True(t, sweepCfg.Enabled)
	assert.Equal(t, 6*time.Hour, sweepCfg.Interval)
}

func TestSchedulerConfig_GetTaskConfig(t *testing.T) {
	config := DefaultSchedulerConfig()
	assert.True(t, config.GetTaskConfig(TaskIDConnectionSync).Enabled)

	unknownCfg := config.GetTaskConfig("unknown-task")
	assert.False(t, unknownCfg.Enabled)
	assert.Equal(t, time.Duration(0), unknownCfg.Interval)

	empty := SchedulerConfig{}
	assert.False(t, empty.GetTaskConfig("any-task").Enabled)
}

func TestScheduledTask_Due(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		task ScheduledTask
		want bool
	}{
		{"never run", ScheduledTask{Enabled: true}, true},
		{"past", ScheduledTask{Enabled: true, NextRun: now.Add(-time.Second)}, true},
		{"exactly now", ScheduledTask{Enabled: true, NextRun: now}, true},
		{"future", ScheduledTask{Enabled: true, NextRun: now.Add(time.Second)}, false},
		{"disabled", ScheduledTask{NextRun: now.Add(-time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.Due(now))
		})
	}
}
