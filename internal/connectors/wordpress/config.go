package wordpress

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// Configuration errors.
var (
	ErrMissingBaseURL = errors.New("wordpress: base_url is required")
	ErrMissingSite    = errors.New("wordpress: source site is required")
	ErrInvalidRoute   = errors.New("wordpress: invalid route")
)

// DefaultRoutes are pulled when post_types is not configured.
var DefaultRoutes = []string{"posts", "pages"}

// Config holds WordPress connection configuration.
type Config struct {
	// APIBase is the REST root ending in /wp-json.
	APIBase string

	// Token is sent as a Bearer token when set.
	Token string

	// Routes are the wp/v2 collections to pull (posts, pages, product).
	Routes []string
}

// ParseConfig extracts WordPress configuration from a connection.
func ParseConfig(conn *domain.Connection) (*Config, error) {
	base := strings.TrimRight(strings.TrimSpace(conn.Param(domain.ParamBaseURL)), "/")
	if base == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingBaseURL, err)
	}
	if strings.TrimSpace(conn.SourceSite) == "" {
		return nil, ErrMissingSite
	}
	if !strings.HasSuffix(base, "/wp-json") {
		base += "/wp-json"
	}

	cfg := &Config{
		APIBase: base,
		Token:   conn.Param(domain.ParamAccessToken),
		Routes:  DefaultRoutes,
	}
	if raw := conn.Param(domain.ParamPostTypes); raw != "" {
		cfg.Routes = nil
		for _, r := range strings.Split(raw, ",") {
			r = strings.TrimSpace(r)
			if r == "" {
				continue
			}
			if _, ok := routeTypes[r]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrInvalidRoute, r)
			}
			cfg.Routes = append(cfg.Routes, r)
		}
	}
	return cfg, nil
}

// routeTypes maps wp/v2 collections to resource types.
var routeTypes = map[string]domain.ResourceType{
	"posts":   domain.TypePost,
	"pages":   domain.TypePage,
	"product": domain.TypeProduct,
	"media":   domain.TypeAsset,
}

// typeRoutes maps resource types back to their collection for writes.
var typeRoutes = map[domain.ResourceType]string{
	domain.TypePost:    "posts",
	domain.TypePage:    "pages",
	domain.TypeProduct: "product",
	domain.TypeAsset:   "media",
}

// postTypes maps the WordPress "type" field to resource types.
var postTypes = map[string]domain.ResourceType{
	"post":       domain.TypePost,
	"page":       domain.TypePage,
	"product":    domain.TypeProduct,
	"attachment": domain.TypeAsset,
}
