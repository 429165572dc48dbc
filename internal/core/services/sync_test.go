package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

const tenantA = "tenant-a"

type syncFixture struct {
	orch     *SyncOrchestrator
	adapter  *mockAdapter
	conns    *memory.ConnectionStore
	store    *flakyStore
	jobs     *memory.SyncJobStore
	queue    *mockQueue
	enricher *mockEnricher

	mu     sync.Mutex
	sleeps []time.Duration
}

func newSyncFixture(t *testing.T, cfg domain.SyncSettings) *syncFixture {
	t.Helper()
	f := &syncFixture{
		adapter:  newMockAdapter(domain.SourceWordPress),
		conns:    memory.NewConnectionStore(),
		store:    &flakyStore{ResourceStore: memory.NewResourceStore()},
		jobs:     memory.NewSyncJobStore(),
		queue:    &mockQueue{},
		enricher: &mockEnricher{},
	}
	f.orch = NewSyncOrchestrator(NewAdapterRegistry(f.adapter), f.conns, f.store, f.jobs, f.queue, f.enricher, cfg)
	f.orch.now = func() time.Time { return testTime }
	f.orch.sleep = func(ctx context.Context, d time.Duration) error {
		f.mu.Lock()
		f.sleeps = append(f.sleeps, d)
		f.mu.Unlock()
		return ctx.Err()
	}
	return f
}

func (f *syncFixture) connect(t *testing.T, tenantID, site string) {
	t.Helper()
	require.NoError(t, f.conns.Save(context.Background(), &domain.Connection{
		TenantID:   tenantID,
		Source:     domain.SourceWordPress,
		SourceSite: site,
		Params:     map[string]string{domain.ParamBaseURL: "https://" + site},
	}))
}

// trigger queues a job and returns its id.
func (f *syncFixture) trigger(t *testing.T, tenantID string) string {
	t.Helper()
	ack, err := f.orch.TriggerSync(context.Background(), tenantID, domain.SourceWordPress)
	require.NoError(t, err)
	return ack.JobID
}

func TestTriggerSync_QueuesJob(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})

	ack, err := f.orch.TriggerSync(context.Background(), tenantA, domain.SourceWordPress)
	require.NoError(t, err)
	assert.True(t, ack.Accepted)
	assert.Equal(t, tenantA, ack.TenantID)
	assert.Equal(t, testTime, ack.QueuedAt)

	tasks := f.queue.kinds(driven.TaskSync)
	require.Len(t, tasks, 1)
	assert.Equal(t, ack.JobID, tasks[0].JobID)
	assert.Equal(t, domain.SourceWordPress, tasks[0].Source)

	job, err := f.jobs.Get(context.Background(), tenantA, ack.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobIdle, job.State)
}

func TestTriggerSync_RejectsSecondJobForPair(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})
	f.trigger(t, tenantA)

	_, err := f.orch.TriggerSync(context.Background(), tenantA, domain.SourceWordPress)
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	// Another tenant is independent.
	_, err = f.orch.TriggerSync(context.Background(), "tenant-b", domain.SourceWordPress)
	assert.NoError(t, err)
}

func TestTriggerSync_InvalidInput(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})

	_, err := f.orch.TriggerSync(context.Background(), "", domain.SourceWordPress)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.orch.TriggerSync(context.Background(), tenantA, domain.SourceShopify)
	assert.ErrorIs(t, err, domain.ErrUnsupportedSource)
}

func TestTriggerSync_EnqueueFailureReleasesPair(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})
	f.queue.enqueueErr = errors.New("queue down")

	_, err := f.orch.TriggerSync(context.Background(), tenantA, domain.SourceWordPress)
	require.Error(t, err)

	status, err := f.orch.Status(context.Background(), tenantA, domain.SourceWordPress)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, status.State)

	f.queue.enqueueErr = nil
	_, err = f.orch.TriggerSync(context.Background(), tenantA, domain.SourceWordPress)
	assert.NoError(t, err)
}

func TestRun_PullsAllPagesInBatches(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{BatchSize: 100})
	f.connect(t, tenantA, "blog.example.com")
	f.adapter.setPage("", "page-2", records(150, "a")...)
	f.adapter.setPage("page-2", "", records(100, "b")...)

	jobID := f.trigger(t, tenantA)
	job, err := f.orch.Run(context.Background(), tenantA, jobID)
	require.NoError(t, err)

	assert.Equal(t, domain.JobCompleted, job.State)
	assert.Equal(t, 250, job.Processed)
	assert.Equal(t, 250, job.Upserted)
	assert.Zero(t, job.Skipped)
	assert.Empty(t, job.Cursor)
	require.NotNil(t, job.StartedAt)
	require.NotNil(t, job.FinishedAt)

	// 150 records split into 100+50, then 100.
	assert.Equal(t, 3, f.store.upserts)
	assert.Len(t, f.enricher.ids(tenantA), 250)

	results, err := f.store.Search(context.Background(), tenantA, domain.ResourceQuery{Limit: 1000})
	require.NoError(t, err)
	require.Len(t, results, 250)
	assert.Equal(t, "blog.example.com", results[0].SourceSite)

	stored, err := f.jobs.Get(context.Background(), tenantA, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, stored.State)
}

func TestRun_ResyncIsIdempotent(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})
	f.connect(t, tenantA, "")
	f.adapter.setPage("", "", records(5, "a")...)

	_, err := f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.NoError(t, err)
	_, err = f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.NoError(t, err)

	results, err := f.store.Search(context.Background(), tenantA, domain.ResourceQuery{})
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestRun_RerunAfterStorageFailureMatchesCleanRun(t *testing.T) {
	snapshot := func(f *syncFixture) map[string]string {
		results, err := f.store.Search(context.Background(), tenantA, domain.ResourceQuery{})
		require.NoError(t, err)
		out := make(map[string]string, len(results))
		for _, r := range results {
			out[r.Key().String()] = r.Title
		}
		return out
	}
	pages := func(f *syncFixture) {
		f.connect(t, tenantA, "")
		f.adapter.setPage("", "p2", records(3, "a")...)
		f.adapter.setPage("p2", "", records(3, "b")...)
	}

	clean := newSyncFixture(t, domain.SyncSettings{MaxAttempts: 1})
	pages(clean)
	_, err := clean.orch.Run(context.Background(), tenantA, clean.trigger(t, tenantA))
	require.NoError(t, err)

	f := newSyncFixture(t, domain.SyncSettings{MaxAttempts: 1})
	pages(f)
	var once sync.Once
	f.store.err = &domain.StorageError{Op: "upsert", Transient: true, Err: errors.New("connection reset")}
	f.adapter.pullHook = func(_ context.Context, cursor string) error {
		if cursor == "p2" {
			once.Do(func() {
				f.store.mu.Lock()
				f.store.failures = 1
				f.store.mu.Unlock()
			})
		}
		return nil
	}

	job, err := f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.Error(t, err)
	assert.Equal(t, domain.JobFailed, job.State)
	assert.Len(t, snapshot(f), 3)

	_, err = f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.NoError(t, err)
	assert.Equal(t, snapshot(clean), snapshot(f))
}

func TestRun_SkipsUnmappableRecords(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{MaxRecordedFailures: 2})
	f.connect(t, tenantA, "")
	recs := records(3, "ok")
	recs = append(recs,
		domain.RawRecord{"title": "no id"},
		domain.RawRecord{"title": "no id either"},
		domain.RawRecord{"id": "bad-type", "type": "widget"},
	)
	f.adapter.setPage("", "", recs...)

	job, err := f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.NoError(t, err)

	assert.Equal(t, domain.JobCompleted, job.State)
	assert.Equal(t, 6, job.Processed)
	assert.Equal(t, 3, job.Upserted)
	assert.Equal(t, 3, job.Skipped)
	assert.Len(t, job.Failures, 2)
}

func TestRun_RetriesTransientStorageErrors(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{
		BackoffInitial: time.Second,
		BackoffMax:     8 * time.Second,
		MaxAttempts:    3,
	})
	f.connect(t, tenantA, "")
	f.adapter.setPage("", "", records(2, "a")...)
	f.store.failures = 2
	f.store.err = &domain.StorageError{Op: "upsert", Transient: true, Err: errors.New("deadlock")}

	job, err := f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.NoError(t, err)

	assert.Equal(t, domain.JobCompleted, job.State)
	assert.Equal(t, 3, f.store.upserts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.sleeps)
}

func TestRun_FailsAfterMaxAttempts(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{MaxAttempts: 3})
	f.connect(t, tenantA, "")
	f.adapter.setPage("", "", records(2, "a")...)
	f.store.failures = 10
	f.store.err = &domain.StorageError{Op: "upsert", Transient: true, Err: errors.New("connection reset")}

	job, err := f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.Error(t, err)

	assert.Equal(t, domain.JobFailed, job.State)
	assert.Equal(t, domain.KindStorage, job.ErrorKind)
	assert.Equal(t, 3, f.store.upserts)
}

func TestRun_AuthorizationAbortsWithoutRetry(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})
	f.connect(t, tenantA, "")
	f.adapter.setPage("", "", records(2, "a")...)
	f.store.failures = 1
	f.store.err = &domain.AuthorizationError{TenantID: tenantA, Op: "upsert"}

	job, err := f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	assert.Equal(t, domain.KindAuthorization, job.ErrorKind)
	assert.Equal(t, 1, f.store.upserts)
	assert.Empty(t, f.sleeps)
}

func TestRun_PullTimeout(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{PullTimeout: 10 * time.Millisecond})
	f.connect(t, tenantA, "")
	f.adapter.pullHook = func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}

	job, err := f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.ErrorIs(t, err, domain.ErrTimeout)

	assert.Equal(t, domain.JobFailed, job.State)
	assert.Equal(t, domain.KindTimeout, job.ErrorKind)
}

func TestRun_CancelStopsBeforeNextBatch(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})
	f.connect(t, tenantA, "")
	f.adapter.setPage("", "page-2", records(3, "a")...)
	f.adapter.setPage("page-2", "page-3", records(3, "b")...)
	f.adapter.setPage("page-3", "", records(3, "c")...)
	f.adapter.pullHook = func(_ context.Context, cursor string) error {
		if cursor == "page-2" {
			require.NoError(t, f.orch.Cancel(tenantA, domain.SourceWordPress))
		}
		return nil
	}

	job, err := f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, domain.JobFailed, job.State)
	assert.Equal(t, domain.KindCancelled, job.ErrorKind)
	assert.Equal(t, 3, job.Upserted)
	assert.Equal(t, 2, f.adapter.pulls)
	assert.Equal(t, "page-2", job.Cursor)

	// The pair is free again.
	_, err = f.orch.TriggerSync(context.Background(), tenantA, domain.SourceWordPress)
	assert.NoError(t, err)
}

func TestRun_CancelDuringWriteCommitsBatch(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})
	f.connect(t, tenantA, "")
	f.adapter.setPage("", "page-2", records(3, "a")...)
	f.adapter.setPage("page-2", "", records(3, "b")...)

	var writeCtxErr error
	var once sync.Once
	f.store.hook = func(ctx context.Context) {
		once.Do(func() {
			require.NoError(t, f.orch.Cancel(tenantA, domain.SourceWordPress))
			writeCtxErr = ctx.Err()
		})
	}

	job, err := f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.ErrorIs(t, err, context.Canceled)

	assert.NoError(t, writeCtxErr)
	assert.Equal(t, domain.KindCancelled, job.ErrorKind)
	assert.Equal(t, 3, job.Upserted)
	assert.Equal(t, 1, f.adapter.pulls)
	assert.Equal(t, "page-2", job.Cursor)

	stored, err := f.store.Search(context.Background(), tenantA, domain.ResourceQuery{})
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	assert.Len(t, f.enricher.ids(tenantA), 3)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})
	f.connect(t, tenantA, "")
	jobID := f.trigger(t, tenantA)

	require.NoError(t, f.orch.Cancel(tenantA, domain.SourceWordPress))
	job, err := f.orch.Run(context.Background(), tenantA, jobID)
	require.Error(t, err)

	assert.Equal(t, domain.KindCancelled, job.ErrorKind)
	assert.Zero(t, f.adapter.pulls)
}

func TestCancel_NoActiveJob(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})
	assert.ErrorIs(t, f.orch.Cancel(tenantA, domain.SourceWordPress), domain.ErrNotFound)
}

func TestRun_NoConnections(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})

	job, err := f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.KindNotFound, job.ErrorKind)
}

func TestRun_InvalidConnection(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})
	f.connect(t, tenantA, "")
	verr := &domain.ValidationError{}
	verr.Add("base_url", "required")
	f.adapter.validateErr = verr

	job, err := f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.Error(t, err)
	assert.Equal(t, domain.KindSchema, job.ErrorKind)
	assert.Zero(t, f.adapter.pulls)
}

func TestRun_EveryConnectionOfTheSource(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})
	f.connect(t, tenantA, "one.example.com")
	f.connect(t, tenantA, "two.example.com")
	f.adapter.setPage("", "", records(2, "a")...)

	job, err := f.orch.Run(context.Background(), tenantA, f.trigger(t, tenantA))
	require.NoError(t, err)

	// Same source ids on different sites are different resources.
	assert.Equal(t, 4, job.Upserted)
	results, err := f.store.Search(context.Background(), tenantA, domain.ResourceQuery{})
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestRun_TerminalJobUnchanged(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})
	f.connect(t, tenantA, "")
	jobID := f.trigger(t, tenantA)

	first, err := f.orch.Run(context.Background(), tenantA, jobID)
	require.NoError(t, err)
	again, err := f.orch.Run(context.Background(), tenantA, jobID)
	require.NoError(t, err)

	assert.Equal(t, first.State, again.State)
	assert.Equal(t, 1, f.adapter.pulls)
}

func TestStatus(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})
	ctx := context.Background()

	status, err := f.orch.Status(ctx, tenantA, domain.SourceWordPress)
	require.NoError(t, err)
	assert.Equal(t, domain.JobIdle, status.State)
	assert.Empty(t, status.ID)

	f.connect(t, tenantA, "")
	jobID := f.trigger(t, tenantA)
	status, err = f.orch.Status(ctx, tenantA, domain.SourceWordPress)
	require.NoError(t, err)
	assert.Equal(t, jobID, status.ID)
	assert.Equal(t, domain.JobIdle, status.State)

	_, err = f.orch.Run(ctx, tenantA, jobID)
	require.NoError(t, err)
	status, err = f.orch.Status(ctx, tenantA, domain.SourceWordPress)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, status.State)

	// Status never crosses tenants.
	other, err := f.orch.Status(ctx, "tenant-b", domain.SourceWordPress)
	require.NoError(t, err)
	assert.Empty(t, other.ID)
}

func TestSyncAll_QueuesEachPairOnce(t *testing.T) {
	f := newSyncFixture(t, domain.SyncSettings{})
	f.connect(t, tenantA, "one.example.com")
	f.connect(t, tenantA, "two.example.com")
	f.connect(t, "tenant-b", "")

	n, err := f.orch.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Pairs already queued are skipped, not failed.
	n, err = f.orch.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
