package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// blockingScheduler runs until its context is cancelled.
type blockingScheduler struct{}

func (blockingScheduler) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingScheduler) Stop() error { return nil }

// failingScheduler fails on start.
type failingScheduler struct{ err error }

func (s failingScheduler) Start(context.Context) error { return s.err }
func (failingScheduler) Stop() error { return nil }

// recordingSync records manual sync triggers.
type recordingSync struct {
	mu      sync.Mutex
	tenants []string
	err     error
}

func (r *recordingSync) TriggerSync(_ context.Context, tenantID string, source domain.Source) (*domain.SyncAck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if source == domain.SourceManual {
		r.tenants = append(r.tenants, tenantID)
	}
	if r.err != nil {
		return nil, r.err
	}
	return &domain.SyncAck{JobID: "job-1", TenantID: tenantID, Source: source, Accepted: true}, nil
}

func (r *recordingSync) triggered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tenants...)
}

func (r *recordingSync) Run(context.Context, string, string) (*domain.SyncJob, error) { return nil, nil }
func (r *recordingSync) SyncAll(context.Context) (int, error) { return 0, nil }
func (r *recordingSync) Cancel(string, domain.Source) error { return nil }
func (r *recordingSync) Status(context.Context, string, domain.Source) (*domain.SyncJob, error) {
	return &domain.SyncJob{State: domain.JobIdle}, nil
}

func saveConn(t *testing.T, store *memory.ConnectionStore, conn *domain.Connection) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), conn))
}

func TestDaemon_InboxChangeTriggersManualSync(t *testing.T) {
	inbox := t.TempDir()
	conns := memory.NewConnectionStore()
	saveConn(t, conns, &domain.Connection{
		ID: "c1", TenantID: "acme", Source: domain.SourceManual,
		Params: map[string]string{domain.ParamPath: inbox},
	})
	saveConn(t, conns, &domain.Connection{
		ID: "c2", TenantID: "acme", Source: domain.SourceWordPress, SourceSite: "blog",
		Params: map[string]string{domain.ParamBaseURL: "https://blog.example.com"},
	})
	syncOrch := &recordingSync{}
	d := &daemon{scheduler: blockingScheduler{}, conns: conns, syncOrch: syncOrch, debounce: 20 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()

	// The watcher starts before Run blocks; retry the write until it is seen.
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(inbox, "page.json"), []byte(`{"id":"p1"}`), 0o644)
		return len(syncOrch.triggered()) > 0
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.Equal(t, "acme", syncOrch.triggered()[0])
}

func TestDaemon_MissingInboxIsNotFatal(t *testing.T) {
	conns := memory.NewConnectionStore()
	saveConn(t, conns, &domain.Connection{
		ID: "c1", TenantID: "acme", Source: domain.SourceManual,
		Params: map[string]string{domain.ParamPath: filepath.Join(t.TempDir(), "missing")},
	})
	want := errors.New("scheduler broke")
	d := &daemon{scheduler: failingScheduler{err: want}, conns: conns, syncOrch: &recordingSync{}}

	err := d.Run(context.Background())

	assert.ErrorIs(t, err, want)
}

func TestDaemon_InboxChangedToleratesInProgress(t *testing.T) {
	syncOrch := &recordingSync{err: domain.ErrSyncInProgress}
	d := &daemon{syncOrch: syncOrch}

	d.inboxChanged(context.Background(), "acme")()

	assert.Equal(t, []string{"acme"}, syncOrch.triggered())
}
