package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-hub/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// sweepLimit caps resources inspected per tenant by one enrichment sweep.
const sweepLimit = 1000

// Scheduler manages background task execution.
// It is a pure core service with no external control API.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	syncOrch driving.SyncOrchestrator

	// Optional, for the enrichment sweep.
	conns     driven.ConnectionStore
	resources driven.ResourceStore
	enricher  driving.EnrichmentService

	now func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	syncOrch driving.SyncOrchestrator,
) *Scheduler {
	if config.Tick <= 0 {
		config.Tick = time.Minute
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 100
	}
	return &Scheduler{
		config:   config,
		store:    store,
		syncOrch: syncOrch,
		now:      time.Now,
	}
}

// WithEnrichmentSweep enables the enrichment-sweep task.
func (s *Scheduler) WithEnrichmentSweep(
	conns driven.ConnectionStore,
	resources driven.ResourceStore,
	enricher driving.EnrichmentService,
) *Scheduler {
	s.conns = conns
	s.resources = resources
	s.enricher = enricher
	return s
}

// Start begins the scheduler loop. This method blocks until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()
	defer close(done)

	if !s.config.Enabled {
		logger.Debug("scheduler disabled")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		}
	}

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	// Wait for the loop, then for running tasks to complete
	<-done
	s.wg.Wait()

	return nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if cfg := s.config.GetTaskConfig(domain.TaskIDConnectionSync); cfg.Enabled {
		if err := s.ensureTask(ctx, domain.TaskIDConnectionSync, "Connection Sync", cfg); err != nil {
			return err
		}
	}
	if cfg := s.config.GetTaskConfig(domain.TaskIDEnrichmentSweep); cfg.Enabled && s.enricher != nil {
		if err := s.ensureTask(ctx, domain.TaskIDEnrichmentSweep, "Enrichment Sweep", cfg); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  now.Add(cfg.Interval),
		}
	} else {
		// Recalculate next run when the interval changed.
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = now.Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks runs every due task once.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		if tasks[i].Due(now) {
			s.runTask(ctx, &tasks[i])
		}
	}
}

// runTask executes a single task in the background.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: s.now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDConnectionSync:
			result.ItemsProcessed, err = s.runConnectionSync(ctx)
		case domain.TaskIDEnrichmentSweep:
			result.ItemsProcessed, err = s.runEnrichmentSweep(ctx)
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = s.now()
		if err != nil {
			result.Error = err.Error()
			task.LastError = err.Error()
			logger.Warn("scheduler: task %s failed: %v", task.ID, err)
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		// Bookkeeping survives shutdown of the run context.
		saveCtx := context.WithoutCancel(ctx)
		if saveErr := s.store.SaveTask(saveCtx, task); saveErr != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}
		if recordErr := s.store.RecordResult(saveCtx, result); recordErr != nil {
			logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}
		if pruneErr := s.store.PruneHistory(saveCtx, s.config.HistoryLimit); pruneErr != nil {
			logger.Warn("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// runConnectionSync queues a sync for every connected (tenant, source).
func (s *Scheduler) runConnectionSync(ctx context.Context) (int, error) {
	if s.syncOrch == nil {
		return 0, nil
	}
	return s.syncOrch.SyncAll(ctx)
}

// runEnrichmentSweep queues enrichment for resources that have no embedding,
// such as those left pending by a provider outage.
func (s *Scheduler) runEnrichmentSweep(ctx context.Context) (int, error) {
	if s.conns == nil || s.resources == nil || s.enricher == nil {
		return 0, nil
	}
	conns, err := s.conns.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool)
	queued := 0
	for _, c := range conns {
		if seen[c.TenantID] {
			continue
		}
		seen[c.TenantID] = true

		resources, err := s.resources.Search(ctx, c.TenantID, domain.ResourceQuery{Limit: sweepLimit})
		if err != nil {
			return queued, err
		}
		var ids []string
		for _, r := range resources {
			if len(r.Embedding) == 0 {
				ids = append(ids, r.ID)
			}
		}
		if len(ids) == 0 {
			continue
		}
		if err := s.enricher.Enqueue(ctx, c.TenantID, ids); err != nil {
			return queued, err
		}
		queued += len(ids)
	}
	return queued, nil
}
