package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage/storagetest"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DatabaseFile), store.Path())
	assert.FileExists(t, store.Path())
}

func TestNewStore_RecordsMigrations(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
	require.NoError(t, store.Close())

	// Reopening must not re-run applied migrations.
	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	var count int
	require.NoError(t, reopened.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestResourceStore(t *testing.T) {
	storagetest.ResourceStore(t, func(t *testing.T) driven.ResourceStore {
		return setupTestStore(t).ResourceStore()
	})
}

func TestResourceStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	out, err := store.ResourceStore().Upsert(ctx, "T", []*domain.HubResource{
		storagetest.Resource("T", domain.SourceShopify, "shop1", "p1"),
	})
	require.NoError(t, err)
	require.NoError(t, store.ResourceStore().SetEmbedding(ctx, "T", out[0].ID, []float32{0.5, -1}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.ResourceStore().Get(ctx, "T", out[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "shop1", got.SourceSite)
	assert.Equal(t, []float32{0.5, -1}, got.Embedding)
}

func TestResourceStore_UnicodeSearch(t *testing.T) {
	ctx := context.Background()
	rs := setupTestStore(t).ResourceStore()

	r := storagetest.Resource("T", domain.SourceWordPress, "", "1")
	r.Title = "ÉTÉ Collection"
	_, err := rs.Upsert(ctx, "T", []*domain.HubResource{r})
	require.NoError(t, err)

	found, err := rs.Search(ctx, "T", domain.ResourceQuery{Text: "été"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestResourceStore_ConcurrentUpsertsSameKey(t *testing.T) {
	ctx := context.Background()
	rs := setupTestStore(t).ResourceStore()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := rs.Upsert(ctx, "T", []*domain.HubResource{
				storagetest.Resource("T", domain.SourceShopify, "", "same"),
			})
			if assert.NoError(t, err) {
				ids[i] = out[0].ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
	all, err := rs.Search(ctx, "T", domain.ResourceQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConnectionStore(t *testing.T) {
	storagetest.ConnectionStore(t, setupTestStore(t).ConnectionStore())
}

func TestSyncJobStore(t *testing.T) {
	storagetest.SyncJobStore(t, setupTestStore(t).SyncJobStore())
}

func TestStagingStore(t *testing.T) {
	storagetest.StagingStore(t, setupTestStore(t).StagingStore())
}

func TestSiteIntegrationStore(t *testing.T) {
	storagetest.SiteIntegrationStore(t, setupTestStore(t).SiteIntegrationStore())
}

func TestSchedulerStore(t *testing.T) {
	storagetest.SchedulerStore(t, setupTestStore(t).SchedulerStore())
}

func TestStorageError(t *testing.T) {
	assert.NoError(t, storageError("op", nil))

	err := storageError("save", sql.ErrConnDone)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.False(t, domain.IsTransient(err))
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
}

func TestIsBusy_NonSQLiteError(t *testing.T) {
	assert.False(t, isBusy(errors.New("plain")))
}

func TestFloat32Conversion(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
