package shopify

import (
	"errors"
	"strings"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// DefaultAPIVersion is the Admin API version used when none is configured.
const DefaultAPIVersion = "2024-10"

// Configuration errors.
var (
	ErrMissingStoreDomain = errors.New("shopify: store_domain is required")
	ErrMissingAccessToken = errors.New("shopify: access_token is required")
)

// Config holds Shopify connection configuration.
type Config struct {
	StoreDomain string
	AccessToken string
	APIVersion  string

	// BaseURL overrides https://{StoreDomain}, for proxies and tests.
	BaseURL string
}

// ParseConfig extracts Shopify configuration from a connection.
func ParseConfig(conn *domain.Connection) (*Config, error) {
	store := strings.TrimSpace(conn.Param(domain.ParamStoreDomain))
	if store == "" {
		store = strings.TrimSpace(conn.SourceSite)
	}
	if store == "" {
		return nil, ErrMissingStoreDomain
	}
	token := strings.TrimSpace(conn.Param(domain.ParamAccessToken))
	if token == "" {
		return nil, ErrMissingAccessToken
	}
	cfg := &Config{
		StoreDomain: store,
		AccessToken: token,
		APIVersion:  conn.Param(domain.ParamAPIVersion),
		BaseURL:     strings.TrimRight(conn.Param(domain.ParamBaseURL), "/"),
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + store
	}
	return cfg, nil
}

// GraphQLURL returns the Admin API endpoint.
func (c *Config) GraphQLURL() string {
	return c.BaseURL + "/admin/api/" + c.APIVersion + "/graphql.json"
}
