package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-hub/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// errCancelled is recorded on jobs stopped by Cancel.
var errCancelled = fmt.Errorf("sync cancelled: %w", context.Canceled)

type pairKey struct {
	tenantID string
	source   domain.Source
}

// activeJob tracks a queued or running job. snapshot is replaced, never
// mutated, so Status can hand out copies without racing the runner.
type activeJob struct {
	jobID     string
	snapshot  *domain.SyncJob
	cancel    context.CancelFunc
	cancelled bool
	running   bool
}

// SyncOrchestrator pulls from source platforms into the resource store.
// At most one job per (tenant, source) is queued or running at a time.
type SyncOrchestrator struct {
	registry driven.AdapterRegistry
	conns    driven.ConnectionStore
	store    driven.ResourceStore
	jobs     driven.SyncJobStore
	queue    driven.JobQueue
	enricher driving.EnrichmentService
	cfg      domain.SyncSettings

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	active map[pairKey]*activeJob
}

// NewSyncOrchestrator creates a sync orchestrator. The enricher is optional;
// when nil, stored resources are not queued for embedding.
func NewSyncOrchestrator(
	registry driven.AdapterRegistry,
	conns driven.ConnectionStore,
	store driven.ResourceStore,
	jobs driven.SyncJobStore,
	queue driven.JobQueue,
	enricher driving.EnrichmentService,
	cfg domain.SyncSettings,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		registry: registry,
		conns:    conns,
		store:    store,
		jobs:     jobs,
		queue:    queue,
		enricher: enricher,
		cfg:      withSyncDefaults(cfg),
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    sleepContext,
		active:   make(map[pairKey]*activeJob),
	}
}

func withSyncDefaults(cfg domain.SyncSettings) domain.SyncSettings {
	def := domain.DefaultSyncSettings()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = def.BackoffInitial
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		cfg.BackoffMax = max(def.BackoffMax, cfg.BackoffInitial)
	}
	if cfg.PullTimeout <= 0 {
		cfg.PullTimeout = def.PullTimeout
	}
	if cfg.MaxRecordedFailures <= 0 {
		cfg.MaxRecordedFailures = def.MaxRecordedFailures
	}
	return cfg
}

// TriggerSync queues a job for the pair and returns without waiting for it.
func (o *SyncOrchestrator) TriggerSync(ctx context.Context, tenantID string, source domain.Source) (*domain.SyncAck, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("trigger sync: %w: tenant id is required", domain.ErrInvalidInput)
	}
	if _, err := o.registry.Get(source); err != nil {
		return nil, fmt.Errorf("trigger sync: %w", err)
	}

	key := pairKey{tenantID, source}
	job := &domain.SyncJob{
		ID:       storage.NewID(),
		TenantID: tenantID,
		Source:   source,
		State:    domain.JobIdle,
		QueuedAt: o.now(),
	}

	o.mu.Lock()
	if _, busy := o.active[key]; busy {
		o.mu.Unlock()
		return nil, fmt.Errorf("trigger sync %s for tenant %s: %w", source, tenantID, domain.ErrSyncInProgress)
	}
	o.active[key] = &activeJob{jobID: job.ID, snapshot: cloneJob(job)}
	o.mu.Unlock()

	if err := o.jobs.Save(ctx, job); err != nil {
		o.release(key, job.ID)
		return nil, fmt.Errorf("save sync job: %w", err)
	}

	task := driven.Task{Kind: driven.TaskSync, TenantID: tenantID, Source: source, JobID: job.ID}
	if err := o.queue.Enqueue(ctx, task); err != nil {
		o.release(key, job.ID)
		_ = job.Fail(o.now(), err)
		if saveErr := o.jobs.Save(context.WithoutCancel(ctx), job); saveErr != nil {
			logger.Warn("saving failed job %s: %v", job.ID, saveErr)
		}
		return nil, fmt.Errorf("enqueue sync job: %w", err)
	}

	logger.Info("Queued %s sync %s for tenant %s", source, job.ID, tenantID)
	return &domain.SyncAck{
		JobID:    job.ID,
		TenantID: tenantID,
		Source:   source,
		Accepted: true,
		QueuedAt: job.QueuedAt,
	}, nil
}

// SyncAll queues a job for every (tenant, source) pair with a connection.
func (o *SyncOrchestrator) SyncAll(ctx context.Context) (int, error) {
	conns, err := o.conns.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list connections: %w", err)
	}

	seen := make(map[pairKey]bool)
	queued := 0
	var errs []error
	for _, c := range conns {
		key := pairKey{c.TenantID, c.Source}
		if seen[key] {
			continue
		}
		seen[key] = true

		if _, err := o.TriggerSync(ctx, c.TenantID, c.Source); err != nil {
			if errors.Is(err, domain.ErrSyncInProgress) {
				logger.Debug("Skipping %s for tenant %s: sync in progress", c.Source, c.TenantID)
				continue
			}
			errs = append(errs, err)
			continue
		}
		queued++
	}
	return queued, errors.Join(errs...)
}

// Cancel stops the queued or running job for the pair before its next batch.
func (o *SyncOrchestrator) Cancel(tenantID string, source domain.Source) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.active[pairKey{tenantID, source}]
	if !ok {
		return fmt.Errorf("cancel %s sync for tenant %s: no active job: %w", source, tenantID, domain.ErrNotFound)
	}
	a.cancelled = true
	if a.cancel != nil {
		a.cancel()
	}
	return nil
}

// Status returns the live job for the pair, or the most recent one.
func (o *SyncOrchestrator) Status(ctx context.Context, tenantID string, source domain.Source) (*domain.SyncJob, error) {
	o.mu.Lock()
	if a, ok := o.active[pairKey{tenantID, source}]; ok {
		snap := cloneJob(a.snapshot)
		o.mu.Unlock()
		return snap, nil
	}
	o.mu.Unlock()

	job, err := o.jobs.Latest(ctx, tenantID, source)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.SyncJob{TenantID: tenantID, Source: source, State: domain.JobIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest sync job: %w", err)
	}
	return job, nil
}

// Run executes a queued job to a terminal state. A job already terminal is
// returned unchanged. The returned error is the job's failure, if any.
func (o *SyncOrchestrator) Run(ctx context.Context, tenantID, jobID string) (*domain.SyncJob, error) {
	job, err := o.jobs.Get(ctx, tenantID, jobID)
	if err != nil {
		return nil, fmt.Errorf("load sync job %s: %w", jobID, err)
	}
	if job.State.IsTerminal() {
		return job, nil
	}

	key := pairKey{job.TenantID, job.Source}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	a, ok := o.active[key]
	if !ok {
		// Queued by another process sharing the queue.
		a = &activeJob{jobID: job.ID, snapshot: cloneJob(job)}
		o.active[key] = a
	}
	if a.jobID != job.ID {
		o.mu.Unlock()
		return o.finish(ctx, job, fmt.Errorf("run sync job %s: %w", job.ID, domain.ErrSyncInProgress), false)
	}
	if a.running {
		// Redelivered while still running.
		snap := cloneJob(a.snapshot)
		o.mu.Unlock()
		return snap, nil
	}
	a.running = true
	a.cancel = cancel
	cancelled := a.cancelled
	o.mu.Unlock()
	defer o.release(key, job.ID)

	if cancelled {
		return o.finish(ctx, job, errCancelled, true)
	}
	if err := job.Start(o.now()); err != nil {
		return o.finish(ctx, job, err, true)
	}
	o.publish(ctx, job)

	logger.Info("Starting %s sync %s for tenant %s", job.Source, job.ID, job.TenantID)
	runErr := o.execute(runCtx, job)
	if runErr != nil && runCtx.Err() != nil && ctx.Err() == nil {
		// Only Cancel cancels runCtx while the parent is live.
		runErr = errCancelled
	}
	return o.finish(ctx, job, runErr, true)
}

func (o *SyncOrchestrator) execute(ctx context.Context, job *domain.SyncJob) error {
	adapter, err := o.registry.Get(job.Source)
	if err != nil {
		return err
	}
	conns, err := o.conns.List(ctx, job.TenantID, job.Source)
	if err != nil {
		return fmt.Errorf("list connections: %w", err)
	}
	if len(conns) == 0 {
		return fmt.Errorf("no %s connection for tenant %s: %w", job.Source, job.TenantID, domain.ErrNotFound)
	}

	for _, conn := range conns {
		if err := adapter.ValidateConnection(conn); err != nil {
			return fmt.Errorf("connection %s: %w", conn.ID, err)
		}
		if err := o.syncConnection(ctx, adapter, conn, job); err != nil {
			return err
		}
	}
	return nil
}

// syncConnection pulls every page of one connection.
func (o *SyncOrchestrator) syncConnection(ctx context.Context, adapter driven.Adapter, conn *domain.Connection, job *domain.SyncJob) error {
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := o.pull(ctx, adapter, conn, cursor)
		if err != nil {
			return err
		}

		resources := make([]*domain.HubResource, 0, len(batch.Records))
		for _, raw := range batch.Records {
			job.Processed++
			res, err := o.mapRecord(adapter, raw, job.TenantID, conn.SourceSite)
			if err != nil {
				job.RecordFailure(mappingFailure(conn.SourceSite, err), o.cfg.MaxRecordedFailures)
				logger.Debug("Skipping record: %v", err)
				continue
			}
			resources = append(resources, res)
		}

		for start := 0; start < len(resources); start += o.cfg.BatchSize {
			end := min(start+o.cfg.BatchSize, len(resources))
			if err := ctx.Err(); err != nil {
				return err
			}
			// A batch that has started writing completes; Cancel is observed
			// between batches and pulls.
			writeCtx := context.WithoutCancel(ctx)
			stored, err := o.upsertWithRetry(writeCtx, job.TenantID, resources[start:end])
			if err != nil {
				return err
			}
			job.Upserted += len(stored)
			o.enqueueEnrichment(writeCtx, job.TenantID, stored)
		}

		job.Cursor = batch.Cursor
		o.publish(ctx, job)
		if batch.Done() {
			return nil
		}
		cursor = batch.Cursor
	}
}

func (o *SyncOrchestrator) pull(ctx context.Context, adapter driven.Adapter, conn *domain.Connection, cursor string) (*driven.PullBatch, error) {
	pullCtx, cancel := context.WithTimeout(ctx, o.cfg.PullTimeout)
	defer cancel()

	batch, err := adapter.Pull(pullCtx, conn, cursor)
	if err != nil {
		if ctx.Err() == nil && errors.Is(pullCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
			return nil, &domain.TimeoutError{Op: fmt.Sprintf("pull %s", adapter.Source()), Err: err}
		}
		return nil, fmt.Errorf("pull %s: %w", adapter.Source(), err)
	}
	if batch == nil {
		batch = &driven.PullBatch{}
	}
	return batch, nil
}

// mapRecord maps and validates one record. Both failures skip the record.
func (o *SyncOrchestrator) mapRecord(adapter driven.Adapter, raw domain.RawRecord, tenantID, site string) (*domain.HubResource, error) {
	res, err := adapter.Map(raw, tenantID, site)
	if err != nil {
		return nil, err
	}
	res.Normalise()
	if err := res.Validate(); err != nil {
		return nil, &domain.MappingError{Source: adapter.Source(), RecordID: res.SourceID, Reason: "invalid resource", Err: err}
	}
	return res, nil
}

func mappingFailure(site string, err error) domain.MappingFailure {
	f := domain.MappingFailure{SourceSite: site, Reason: err.Error()}
	var merr *domain.MappingError
	if errors.As(err, &merr) {
		f.RecordID = merr.RecordID
	}
	return f
}

// upsertWithRetry retries transient storage failures with exponential
// backoff. Any other error, authorization included, returns at once.
func (o *SyncOrchestrator) upsertWithRetry(ctx context.Context, tenantID string, batch []*domain.HubResource) ([]*domain.HubResource, error) {
	delay := o.cfg.BackoffInitial
	for attempt := 1; ; attempt++ {
		stored, err := o.store.Upsert(ctx, tenantID, batch)
		if err == nil {
			return stored, nil
		}
		if !domain.IsTransient(err) || attempt >= o.cfg.MaxAttempts {
			return nil, fmt.Errorf("upsert batch (attempt %d): %w", attempt, err)
		}
		logger.Warn("Upsert attempt %d/%d failed, retrying in %s: %v", attempt, o.cfg.MaxAttempts, delay, err)
		if err := o.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = min(delay*2, o.cfg.BackoffMax)
	}
}

func (o *SyncOrchestrator) enqueueEnrichment(ctx context.Context, tenantID string, stored []*domain.HubResource) {
	if o.enricher == nil || len(stored) == 0 {
		return
	}
	ids := make([]string, len(stored))
	for i, r := range stored {
		ids[i] = r.ID
	}
	if err := o.enricher.Enqueue(ctx, tenantID, ids); err != nil {
		logger.Warn("Enqueue enrichment for %d resources: %v", len(ids), err)
	}
}

// finish moves job to its terminal state and persists it.
func (o *SyncOrchestrator) finish(ctx context.Context, job *domain.SyncJob, runErr error, publish bool) (*domain.SyncJob, error) {
	now := o.now()
	if runErr == nil {
		_ = job.Complete(now)
		logger.Info("Sync %s complete: %d processed, %d upserted, %d skipped",
			job.ID, job.Processed, job.Upserted, job.Skipped)
	} else {
		_ = job.Fail(now, runErr)
		if errors.Is(runErr, domain.ErrUnauthorized) {
			logger.Security("sync aborted by tenant isolation violation",
				"tenant_id", job.TenantID, "source", job.Source, "job_id", job.ID, "error", runErr)
		} else {
			logger.Warn("Sync %s failed (%s): %v", job.ID, job.ErrorKind, runErr)
		}
	}

	if publish {
		o.publish(ctx, job)
	} else if err := o.jobs.Save(context.WithoutCancel(ctx), job); err != nil {
		logger.Warn("saving sync job %s: %v", job.ID, err)
	}
	return job, runErr
}

// publish persists job progress and refreshes the live snapshot.
func (o *SyncOrchestrator) publish(ctx context.Context, job *domain.SyncJob) {
	if err := o.jobs.Save(context.WithoutCancel(ctx), job); err != nil {
		logger.Warn("saving sync job %s: %v", job.ID, err)
	}
	o.mu.Lock()
	if a, ok := o.active[pairKey{job.TenantID, job.Source}]; ok && a.jobID == job.ID {
		a.snapshot = cloneJob(job)
	}
	o.mu.Unlock()
}

// release removes the pair's active entry if it still belongs to jobID.
func (o *SyncOrchestrator) release(key pairKey, jobID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if a, ok := o.active[key]; ok && a.jobID == jobID {
		delete(o.active, key)
	}
}

func cloneJob(j *domain.SyncJob) *domain.SyncJob {
	c := *j
	if j.Failures != nil {
		c.Failures = append([]domain.MappingFailure(nil), j.Failures...)
	}
	return &c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
