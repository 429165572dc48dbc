package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderHash is the deterministic offline provider.
	AIProviderHash AIProvider = "hash"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGemini is Google's Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderHash, AIProviderOllama, AIProviderOpenAI, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGemini
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHash:
		return "Deterministic hash (offline)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// DefaultEmbeddingDimensions is the vector size of the default model.
const DefaultEmbeddingDimensions = 1536

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI/Gemini).
	APIKey string

	// Dimensions is the fixed vector size every stored embedding must have.
	Dimensions int

	// FallbackOnError substitutes the deterministic embedding when the
	// provider fails. When false, failed resources stay pending.
	FallbackOnError bool

	// Concurrency bounds parallel provider calls per enrichment run.
	Concurrency int
}

// IsConfigured returns true if a real embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderHash {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// StorageDriver selects the resource store implementation.
type StorageDriver string

// Available storage drivers.
const (
	StorageSQLite   StorageDriver = "sqlite"
	StoragePostgres StorageDriver = "postgres"
	StorageMemory   StorageDriver = "memory"
)

// StorageSettings holds persistence configuration.
type StorageSettings struct {
	Driver StorageDriver

	// DataDir holds the sqlite database.
	DataDir string

	// DatabaseURL is the postgres DSN.
	DatabaseURL string
}

// SyncSettings holds sync orchestrator tuning.
type SyncSettings struct {
	// BatchSize bounds resources per upsert call.
	BatchSize int

	// MaxAttempts bounds retries of a failed batch upsert.
	MaxAttempts int

	// BackoffInitial is the delay before the second attempt.
	BackoffInitial time.Duration

	// BackoffMax caps the exponential backoff.
	BackoffMax time.Duration

	// PullTimeout bounds one adapter pull call.
	PullTimeout time.Duration

	// PushTimeout bounds one adapter push call.
	PushTimeout time.Duration

	// MaxRecordedFailures is how many mapping failures a job summary keeps.
	MaxRecordedFailures int
}

// QueueDriver selects the background job queue implementation.
type QueueDriver string

// Available queue drivers.
const (
	QueueMemory QueueDriver = "memory"
	QueueRedis  QueueDriver = "redis"
)

// QueueSettings holds background job queue configuration.
type QueueSettings struct {
	Driver QueueDriver

	// RedisURL is used by the redis driver.
	RedisURL string

	// Workers is the number of concurrent job consumers.
	Workers int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Storage   StorageSettings
	Embedding EmbeddingSettings
	Sync      SyncSettings
	Queue     QueueSettings
	Scheduler SchedulerConfig

	// LogFormat is "console" or "json".
	LogFormat string
}

// DefaultAppSettings returns settings with sensible defaults.
// The deterministic embedding provider is used until a real one is configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Storage: StorageSettings{Driver: StorageSQLite},
		Embedding: EmbeddingSettings{
			Provider:        AIProviderHash,
			Dimensions:      DefaultEmbeddingDimensions,
			FallbackOnError: true,
			Concurrency:     4,
		},
		Sync:      DefaultSyncSettings(),
		Queue:     QueueSettings{Driver: QueueMemory, Workers: 4},
		Scheduler: DefaultSchedulerConfig(),
		LogFormat: "console",
	}
}

// DefaultSyncSettings returns the orchestrator defaults.
func DefaultSyncSettings() SyncSettings {
	return SyncSettings{
		BatchSize:           DefaultBatchSize,
		MaxAttempts:         3,
		BackoffInitial:      time.Second,
		BackoffMax:          8 * time.Second,
		PullTimeout:         30 * time.Second,
		PushTimeout:         30 * time.Second,
		MaxRecordedFailures: 20,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHash,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "gemini-embedding-001",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"gemini-embedding-001": 768,
	}
}
