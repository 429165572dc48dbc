package manual

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// Configuration errors.
var (
	ErrMissingPath  = errors.New("manual: path is required")
	ErrNotDirectory = errors.New("manual: path is not a directory")
)

// Config holds manual inbox configuration.
type Config struct {
	// Root is the absolute inbox directory.
	Root string
}

// ParseConfig extracts configuration from a connection.
func ParseConfig(conn *domain.Connection) (*Config, error) {
	path := strings.TrimSpace(conn.Param(domain.ParamPath))
	if path == "" {
		return nil, ErrMissingPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manual: resolve %s: %w", path, err)
	}
	return &Config{Root: abs}, nil
}

// Check verifies the inbox exists and is a directory.
func (c *Config) Check() error {
	info, err := os.Stat(c.Root)
	if err != nil {
		return fmt.Errorf("manual: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, c.Root)
	}
	return nil
}
