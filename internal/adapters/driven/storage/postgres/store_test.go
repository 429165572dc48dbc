package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage/storagetest"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// setupTestStore connects to TEST_POSTGRES_DSN and empties every table.
// The database needs the pgvector extension available.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	_, err = store.pool.Exec(ctx,
		`TRUNCATE hub_resources, connections, sync_jobs, staged_pushes, site_integrations`)
	require.NoError(t, err)
	return store
}

func TestResourceStore(t *testing.T) {
	storagetest.ResourceStore(t, func(t *testing.T) driven.ResourceStore {
		return setupTestStore(t).ResourceStore()
	})
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

func TestNewStore_MigrationsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.migrate(ctx, migrations.FS))

	var count int
	require.NoError(t, store.pool.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestInTenant_RequiresTenant(t *testing.T) {
	s := &Store{}
	err := s.inTenant(context.Background(), "", "op", nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestNewStore_EmptyDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "  ")
	assert.Error(t, err)
}

func TestVectorLiteral(t *testing.T) {
	assert.Nil(t, vectorLiteral(nil))
	assert.Equal(t, "[0.5,-1,0.25]", vectorLiteral([]float32{0.5, -1, 0.25}))
}

func TestParseVector(t *testing.T) {
	s := "[0.5, -1,0.25]"
	v, err := parseVector(&s)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1, 0.25}, v)

	v, err = parseVector(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	empty := "[]"
	v, err = parseVector(&empty)
	require.NoError(t, err)
	assert.Nil(t, v)

	bad := "[1,x]"
	_, err = parseVector(&bad)
	assert.Error(t, err)
}

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0.1, 0.2, 1e-7, 3.4028235e+38}
	lit := vectorLiteral(in).(string)
	out, err := parseVector(&lit)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now \\o/`, escapeLike(`50% off_now \o/`))
}

func TestStorageError(t *testing.T) {
	assert.NoError(t, storageError("op", nil))
	assert.Same(t, domain.ErrNotFound, storageError("op", domain.ErrNotFound))
	assert.ErrorIs(t, storageError("op", context.Canceled), context.Canceled)

	serr := storageError("op", &pgconn.PgError{Code: "40001"})
	var se *domain.StorageError
	require.True(t, errors.As(serr, &se))
	assert.True(t, se.Transient)
	assert.Equal(t, domain.KindStorage, domain.KindOf(serr))

	serr = storageError("op", &pgconn.PgError{Code: "23505"})
	require.True(t, errors.As(serr, &se))
	assert.False(t, se.Transient)
}

func TestJSONText(t *testing.T) {
	got, err := jsonText(map[string]string(nil), "{}")
	require.NoError(t, err)
	assert.Equal(t, "{}", got)

	got, err = jsonText(map[string]string{"a": "b"}, "{}")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"b"}`, got)
}
