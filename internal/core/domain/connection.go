package domain

import "time"

// Well-known connection parameter keys.
const (
	ParamBaseURL     = "base_url"
	ParamAccessToken = "access_token"
	ParamStoreDomain = "store_domain"
	ParamAPIVersion  = "api_version"
	ParamPostTypes   = "post_types"
	ParamFolderID    = "folder_id"
	ParamPath        = "path"

	ParamRefreshToken = "refresh_token"
	ParamClientID     = "client_id"
	ParamClientSecret = "client_secret"
)

// secretParams are masked by Redacted.
var secretParams = map[string]bool{
	ParamAccessToken:  true,
	ParamRefreshToken: true,
	ParamClientSecret: true,
}

// Connection holds the platform parameters needed to pull from one tenant site.
// Params are opaque to the core and passed through to the adapter.
type Connection struct {
	// ID is the unique identifier for the connection.
	ID string `json:"id"`

	TenantID string `json:"tenant_id"`
	Source   Source `json:"source"`

	// SourceSite becomes the source_site of every resource pulled through
	// this connection. Empty for single-site platforms.
	SourceSite string `json:"source_site,omitempty"`

	Params map[string]string `json:"params,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Param returns a connection parameter or the empty string.
func (c *Connection) Param(key string) string {
	if c == nil || c.Params == nil {
		return ""
	}
	return c.Params[key]
}

// Redacted returns a copy safe for display, with secrets masked.
func (c Connection) Redacted() Connection {
	out := c
	out.Params = make(map[string]string, len(c.Params))
	for k, v := range c.Params {
		if secretParams[k] && v != "" {
			v = "****"
		}
		out.Params[k] = v
	}
	return out
}
