package drive

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-hub/internal/connectors/google"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// DefaultPageSize is the number of files requested per page.
const DefaultPageSize = 100

// Config holds Google Drive connection configuration.
type Config struct {
	// FolderID limits syncing to direct children of one folder (optional).
	FolderID string
	// PageSize is the page size for files.list.
	PageSize int64
}

// ParseConfig extracts configuration from a connection.
func ParseConfig(conn *domain.Connection) (*Config, error) {
	if !google.HasCredentials(conn) {
		return nil, google.ErrMissingCredentials
	}
	cfg := &Config{
		FolderID: strings.TrimSpace(conn.Param(domain.ParamFolderID)),
		PageSize: DefaultPageSize,
	}
	if strings.ContainsAny(cfg.FolderID, `'\`) {
		return nil, fmt.Errorf("drive: invalid folder_id %q", cfg.FolderID)
	}
	return cfg, nil
}

// Query returns the files.list search expression.
func (c *Config) Query() string {
	q := "trashed = false and mimeType != '" + MimeTypeFolder + "'"
	if c.FolderID != "" {
		q += " and '" + c.FolderID + "' in parents"
	}
	return q
}
