package file

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDataDir, EnvDatabaseURL, EnvRedisURL, EnvOpenAIAPIKey, EnvGeminiAPIKey} {
		t.Setenv(k, "")
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)

	s, err := LoadSettings(newTestStore(t))
	require.NoError(t, err)

	want := domain.DefaultAppSettings()
	want.Storage.DataDir = dir
	assert.Equal(t, want, s)
}

func TestLoadSettings_NilStore(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, t.TempDir())

	s, err := LoadSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StorageSQLite, s.Storage.Driver)
}

func TestLoadSettings_FromFile(t *testing.T) {
	clearEnv(t)
	store := newTestStore(t)
	values := map[string]any{
		KeyStorageDriver:           "Postgres",
		KeyStorageDatabaseURL:      "postgres://hub@localhost/hub",
		KeyStorageDataDir:          "/var/lib/hub",
		KeyEmbeddingProvider:       "ollama",
		KeyEmbeddingModel:          "nomic-embed-text",
		KeyEmbeddingFallback:       false,
		KeyEmbeddingConcurrency:    2,
		KeySyncBatchSize:           50,
		KeySyncMaxAttempts:         5,
		KeySyncBackoffInitial:      "500ms",
		KeySyncBackoffMax:          "4s",
		KeySyncPullTimeout:         "1m",
		KeySyncPushTimeout:         10,
		KeySyncMaxRecordedFailures: 7,
		KeyQueueWorkers:            8,
		KeySchedulerEnabled:        false,
		KeySchedulerTick:           "30s",
		KeyLogFormat:               "JSON",
	}
	for k, v := range values {
		require.NoError(t, store.Set(k, v))
	}
	require.NoError(t, store.Set("scheduler.connection_sync.interval", "15m"))
	require.NoError(t, store.Set("scheduler.enrichment_sweep.enabled", false))

	s, err := LoadSettings(store)
	require.NoError(t, err)

	assert.Equal(t, domain.StorageSettings{
		Driver:      domain.StoragePostgres,
		DataDir:     "/var/lib/hub",
		DatabaseURL: "postgres://hub@localhost/hub",
	}, s.Storage)
	assert.Equal(t, domain.AIProviderOllama, s.Embedding.Provider)
	assert.Equal(t, 768, s.Embedding.Dimensions)
	assert.False(t, s.Embedding.FallbackOnError)
	assert.Equal(t, 2, s.Embedding.Concurrency)
	assert.Equal(t, domain.SyncSettings{
		BatchSize:           50,
		MaxAttempts:         5,
		BackoffInitial:      500 * time.Millisecond,
		BackoffMax:          4 * time.Second,
		PullTimeout:         time.Minute,
		PushTimeout:         10 * time.Second,
		MaxRecordedFailures: 7,
	}, s.Sync)
	assert.Equal(t, 8, s.Queue.Workers)
	assert.False(t, s.Scheduler.Enabled)
	assert.Equal(t, 30*time.Second, s.Scheduler.Tick)
	assert.Equal(t, domain.TaskConfig{Enabled: true, Interval: 15 * time.Minute},
		s.Scheduler.GetTaskConfig(domain.TaskIDConnectionSync))
	assert.False(t, s.Scheduler.GetTaskConfig(domain.TaskIDEnrichmentSweep).Enabled)
	assert.Equal(t, "json", s.LogFormat)
}

func TestLoadSettings_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)
	t.Setenv(EnvDatabaseURL, "postgres://env@db/hub")
	t.Setenv(EnvRedisURL, "redis://cache:6379/0")
	t.Setenv(EnvOpenAIAPIKey, "sk-env")

	store := newTestStore(t)
	require.NoError(t, store.Set(KeyStorageDataDir, "/ignored"))
	require.NoError(t, store.Set(KeyEmbeddingProvider, "openai"))

	s, err := LoadSettings(store)
	require.NoError(t, err)

	assert.Equal(t, dir, s.Storage.DataDir)
	assert.Equal(t, domain.StoragePostgres, s.Storage.Driver)
	assert.Equal(t, "postgres://env@db/hub", s.Storage.DatabaseURL)
	assert.Equal(t, domain.QueueRedis, s.Queue.Driver)
	assert.Equal(t, "redis://cache:6379/0", s.Queue.RedisURL)
	assert.Equal(t, "sk-env", s.Embedding.APIKey)
	assert.True(t, s.Embedding.IsConfigured())
}

func TestLoadSettings_EnvKeepsExplicitDrivers(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvDatabaseURL, "postgres://env@db/hub")
	t.Setenv(EnvRedisURL, "redis://cache:6379/0")
	t.Setenv(EnvGeminiAPIKey, "gm-env")

	store := newTestStore(t)
	require.NoError(t, store.Set(KeyStorageDriver, "sqlite"))
	require.NoError(t, store.Set(KeyQueueDriver, "memory"))
	require.NoError(t, store.Set(KeyEmbeddingProvider, "hash"))

	s, err := LoadSettings(store)
	require.NoError(t, err)

	assert.Equal(t, domain.StorageSQLite, s.Storage.Driver)
	assert.Equal(t, domain.QueueMemory, s.Queue.Driver)
	// Provider keys only apply to the provider that uses them.
	assert.Empty(t, s.Embedding.APIKey)
}

func TestLoadSettings_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, t.TempDir())

	store := newTestStore(t)
	require.NoError(t, store.Set(KeyStorageDriver, "postgres"))
	require.NoError(t, store.Set(KeyEmbeddingProvider, "anthropic"))
	require.NoError(t, store.Set(KeyQueueDriver, "kafka"))
	require.NoError(t, store.Set(KeyLogFormat, "xml"))

	_, err := LoadSettings(store)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		KeyEmbeddingProvider,
		KeyLogFormat,
		KeyQueueDriver,
		KeyStorageDatabaseURL,
	}, verr.Fields())
}

func TestLoadSettings_RedisWithoutURL(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, t.TempDir())

	store := newTestStore(t)
	require.NoError(t, store.Set(KeyQueueDriver, "redis"))

	_, err := LoadSettings(store)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
