package driven

import "time"

// ConfigStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and type conversion.
// Keys are dotted paths such as "sync.batch_size".
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	// Returns empty string if key doesn't exist or isn't a string.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	// Returns 0 if key doesn't exist or isn't an integer.
	GetInt(key string) int

	// GetBool retrieves a boolean configuration value.
	GetBool(key string) bool

	// GetDuration retrieves a duration written as a Go duration string ("1s", "8s").
	// Returns 0 if key doesn't exist or cannot be parsed.
	GetDuration(key string) time.Duration

	// GetStringSlice retrieves a string slice configuration value.
	GetStringSlice(key string) []string

	// Set stores a configuration value and persists it immediately.
	Set(key string, value any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
