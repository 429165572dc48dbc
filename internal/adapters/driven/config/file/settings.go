package file

import (
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// Environment variables that override the config file.
const (
	EnvDatabaseURL  = "DATABASE_URL"
	EnvRedisURL     = "REDIS_URL"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
)

// Config keys read by LoadSettings.
const (
	KeyStorageDriver      = "storage.driver"
	KeyStorageDataDir     = "storage.data_dir"
	KeyStorageDatabaseURL = "storage.database_url"

	KeyEmbeddingProvider    = "embedding.provider"
	KeyEmbeddingModel       = "embedding.model"
	KeyEmbeddingBaseURL     = "embedding.base_url"
	KeyEmbeddingAPIKey      = "embedding.api_key"
	KeyEmbeddingDimensions  = "embedding.dimensions"
	KeyEmbeddingFallback    = "embedding.fallback_on_error"
	KeyEmbeddingConcurrency = "embedding.concurrency"

	KeySyncBatchSize           = "sync.batch_size"
	KeySyncMaxAttempts         = "sync.max_attempts"
	KeySyncBackoffInitial      = "sync.backoff_initial"
	KeySyncBackoffMax          = "sync.backoff_max"
	KeySyncPullTimeout         = "sync.pull_timeout"
	KeySyncPushTimeout         = "sync.push_timeout"
	KeySyncMaxRecordedFailures = "sync.max_recorded_failures"

	KeyQueueDriver   = "queue.driver"
	KeyQueueRedisURL = "queue.redis_url"
	KeyQueueWorkers  = "queue.workers"

	KeySchedulerEnabled      = "scheduler.enabled"
	KeySchedulerTick         = "scheduler.tick"
	KeySchedulerHistoryLimit = "scheduler.history_limit"

	KeyLogFormat = "log.format"
)

// schedulerTaskKeys maps task IDs to their config table.
var schedulerTaskKeys = map[string]string{
	domain.TaskIDConnectionSync:  "scheduler.connection_sync",
	domain.TaskIDEnrichmentSweep: "scheduler.enrichment_sweep",
}

// LoadSettings builds application settings from defaults, then the config
// store, then environment variables.
func LoadSettings(cfg driven.ConfigStore) (domain.AppSettings, error) {
	s := domain.DefaultAppSettings()

	if cfg != nil {
		applyStorage(cfg, &s.Storage)
		applyEmbedding(cfg, &s.Embedding)
		applySync(cfg, &s.Sync)
		applyQueue(cfg, &s.Queue)
		applyScheduler(cfg, &s.Scheduler)
		if v := cfg.GetString(KeyLogFormat); v != "" {
			s.LogFormat = strings.ToLower(v)
		}
	}

	applyEnv(cfg, &s)

	if s.Storage.DataDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return s, fmt.Errorf("resolve data dir: %w", err)
		}
		s.Storage.DataDir = dir
	}

	if err := validateSettings(s); err != nil {
		return s, err
	}
	return s, nil
}

func applyStorage(cfg driven.ConfigStore, s *domain.StorageSettings) {
	if v := cfg.GetString(KeyStorageDriver); v != "" {
		s.Driver = domain.StorageDriver(strings.ToLower(v))
	}
	if v := cfg.GetString(KeyStorageDataDir); v != "" {
		s.DataDir = v
	}
	if v := cfg.GetString(KeyStorageDatabaseURL); v != "" {
		s.DatabaseURL = v
	}
}

func applyEmbedding(cfg driven.ConfigStore, s *domain.EmbeddingSettings) {
	if v := cfg.GetString(KeyEmbeddingProvider); v != "" {
		s.Provider = domain.AIProvider(strings.ToLower(v))
	}
	if v := cfg.GetString(KeyEmbeddingModel); v != "" {
		s.Model = v
	}
	if v := cfg.GetString(KeyEmbeddingBaseURL); v != "" {
		s.BaseURL = v
	}
	if v := cfg.GetString(KeyEmbeddingAPIKey); v != "" {
		s.APIKey = v
	}
	if v := cfg.GetInt(KeyEmbeddingDimensions); v > 0 {
		s.Dimensions = v
	} else if s.Model != "" {
		if d := domain.EmbeddingDimensions()[s.Model]; d > 0 {
			s.Dimensions = d
		}
	}
	if _, ok := cfg.Get(KeyEmbeddingFallback); ok {
		s.FallbackOnError = cfg.GetBool(KeyEmbeddingFallback)
	}
	if v := cfg.GetInt(KeyEmbeddingConcurrency); v > 0 {
		s.Concurrency = v
	}
}

func applySync(cfg driven.ConfigStore, s *domain.SyncSettings) {
	if v := cfg.GetInt(KeySyncBatchSize); v > 0 {
		s.BatchSize = v
	}
	if v := cfg.GetInt(KeySyncMaxAttempts); v > 0 {
		s.MaxAttempts = v
	}
	if v := cfg.GetDuration(KeySyncBackoffInitial); v > 0 {
		s.BackoffInitial = v
	}
	if v := cfg.GetDuration(KeySyncBackoffMax); v > 0 {
		s.BackoffMax = v
	}
	if v := cfg.GetDuration(KeySyncPullTimeout); v > 0 {
		s.PullTimeout = v
	}
	if v := cfg.GetDuration(KeySyncPushTimeout); v > 0 {
		s.PushTimeout = v
	}
	if v := cfg.GetInt(KeySyncMaxRecordedFailures); v > 0 {
		s.MaxRecordedFailures = v
	}
}

func applyQueue(cfg driven.ConfigStore, s *domain.QueueSettings) {
	if v := cfg.GetString(KeyQueueDriver); v != "" {
		s.Driver = domain.QueueDriver(strings.ToLower(v))
	}
	if v := cfg.GetString(KeyQueueRedisURL); v != "" {
		s.RedisURL = v
	}
	if v := cfg.GetInt(KeyQueueWorkers); v > 0 {
		s.Workers = v
	}
}

func applyScheduler(cfg driven.ConfigStore, s *domain.SchedulerConfig) {
	if _, ok := cfg.Get(KeySchedulerEnabled); ok {
		s.Enabled = cfg.GetBool(KeySchedulerEnabled)
	}
	if v := cfg.GetDuration(KeySchedulerTick); v > 0 {
		s.Tick = v
	}
	if v := cfg.GetInt(KeySchedulerHistoryLimit); v > 0 {
		s.HistoryLimit = v
	}
	for id, prefix := range schedulerTaskKeys {
		task := s.GetTaskConfig(id)
		if _, ok := cfg.Get(prefix + ".enabled"); ok {
			task.Enabled = cfg.GetBool(prefix + ".enabled")
		}
		if v := cfg.GetDuration(prefix + ".interval"); v > 0 {
			task.Interval = v
		}
		if s.TaskConfigs == nil {
			s.TaskConfigs = make(map[string]domain.TaskConfig)
		}
		s.TaskConfigs[id] = task
	}
}

// applyEnv layers environment overrides. DATABASE_URL and REDIS_URL also
// select their driver unless the config file names one explicitly.
func applyEnv(cfg driven.ConfigStore, s *domain.AppSettings) {
	explicit := func(key string) bool {
		return cfg != nil && cfg.GetString(key) != ""
	}

	if v := os.Getenv(EnvDataDir); v != "" {
		s.Storage.DataDir = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		s.Storage.DatabaseURL = v
		if !explicit(KeyStorageDriver) {
			s.Storage.Driver = domain.StoragePostgres
		}
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		s.Queue.RedisURL = v
		if !explicit(KeyQueueDriver) {
			s.Queue.Driver = domain.QueueRedis
		}
	}

	switch s.Embedding.Provider {
	case domain.AIProviderOpenAI:
		if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
			s.Embedding.APIKey = v
		}
	case domain.AIProviderGemini:
		if v := os.Getenv(EnvGeminiAPIKey); v != "" {
			s.Embedding.APIKey = v
		}
	}
}

func validateSettings(s domain.AppSettings) error {
	verr := &domain.ValidationError{}
	switch s.Storage.Driver {
	case domain.StorageSQLite, domain.StorageMemory:
	case domain.StoragePostgres:
		if s.Storage.DatabaseURL == "" {
			verr.Add(KeyStorageDatabaseURL, "required for the postgres driver")
		}
	default:
		verr.Add(KeyStorageDriver, fmt.Sprintf("unknown driver %q", s.Storage.Driver))
	}
	if !s.Embedding.Provider.IsValid() {
		verr.Add(KeyEmbeddingProvider, fmt.Sprintf("unknown provider %q", s.Embedding.Provider))
	}
	switch s.Queue.Driver {
	case domain.QueueMemory:
	case domain.QueueRedis:
		if s.Queue.RedisURL == "" {
			verr.Add(KeyQueueRedisURL, "required for the redis driver")
		}
	default:
		verr.Add(KeyQueueDriver, fmt.Sprintf("unknown driver %q", s.Queue.Driver))
	}
	if s.LogFormat != "console" && s.LogFormat != "json" {
		verr.Add(KeyLogFormat, fmt.Sprintf("unknown format %q", s.LogFormat))
	}
	if err := verr.OrNil(); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	return nil
}
