package wordpress

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-hub/internal/connectors/httpapi"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.Adapter = (*Adapter)(nil)

const (
	// PerPage is the WordPress page size; 100 is the REST API maximum.
	PerPage = 100

	totalPagesHeader = "X-WP-TotalPages"
)

// Adapter pulls from and pushes to the WordPress REST API.
type Adapter struct {
	opts httpapi.Options
	now  func() time.Time

	mu      sync.Mutex
	clients map[string]*httpapi.Client
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPOptions overrides the HTTP client options (timeouts, retries).
func WithHTTPOptions(opts httpapi.Options) Option {
	return func(a *Adapter) { a.opts = opts }
}

// WithClock overrides the clock used to default updated_at.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New creates a WordPress adapter.
func New(options ...Option) *Adapter {
	a := &Adapter{
		opts:    httpapi.Options{RateLimit: httpapi.RateLimitConfig{RequestsPerSecond: 5, BurstSize: 10}},
		now:     time.Now,
		clients: make(map[string]*httpapi.Client),
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Source returns the platform this adapter serves.
func (a *Adapter) Source() domain.Source { return domain.SourceWordPress }

// ValidateConnection checks the base URL and site are configured.
func (a *Adapter) ValidateConnection(conn *domain.Connection) error {
	_, err := ParseConfig(conn)
	return err
}

// WritableFields lists the fields the REST API accepts on update.
func (a *Adapter) WritableFields() []domain.Field {
	return []domain.Field{domain.FieldTitle, domain.FieldSlug, domain.FieldBodyHTML, domain.FieldTags}
}

func (a *Adapter) client(cfg *Config) *httpapi.Client {
	key := cfg.APIBase + "\x00" + cfg.Token
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[key]; ok {
		return c
	}
	opts := a.opts
	opts.Header = opts.Header.Clone()
	if opts.Header == nil {
		opts.Header = http.Header{}
	}
	if cfg.Token != "" {
		opts.Header.Set("Authorization", "Bearer "+cfg.Token)
	}
	c := httpapi.New(opts)
	a.clients[key] = c
	return c
}

// Pull fetches one page of one route.
func (a *Adapter) Pull(ctx context.Context, conn *domain.Connection, cursor string) (*driven.PullBatch, error) {
	cfg, err := ParseConfig(conn)
	if err != nil {
		return nil, err
	}
	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if cur.Route >= len(cfg.Routes) {
		return &driven.PullBatch{}, nil
	}

	route := cfg.Routes[cur.Route]
	endpoint := fmt.Sprintf("%s/wp/v2/%s?per_page=%d&page=%d&context=edit&_embed=1",
		cfg.APIBase, route, PerPage, cur.Page)

	var items []map[string]any
	header, err := a.client(cfg).Do(ctx, http.MethodGet, endpoint, nil, &items)
	if err != nil {
		return nil, fmt.Errorf("list %s page %d: %w", route, cur.Page, err)
	}

	batch := &driven.PullBatch{Records: make([]domain.RawRecord, 0, len(items))}
	for _, item := range items {
		item[RouteField] = route
		batch.Records = append(batch.Records, item)
	}

	totalPages, _ := strconv.Atoi(header.Get(totalPagesHeader))
	switch {
	case cur.Page < totalPages:
		batch.Cursor = (&Cursor{Version: CursorVersion, Route: cur.Route, Page: cur.Page + 1}).Encode()
	case cur.Route+1 < len(cfg.Routes):
		batch.Cursor = (&Cursor{Version: CursorVersion, Route: cur.Route + 1, Page: 1}).Encode()
	}
	return batch, nil
}

// ToOrigin builds a REST update body for the fields diff touches.
func (a *Adapter) ToOrigin(res *domain.HubResource, diff domain.FieldDiff) (domain.OriginPayload, error) {
	route, ok := typeRoutes[res.Type]
	if !ok {
		return nil, fmt.Errorf("wordpress: no route for type %s: %w", res.Type, domain.ErrNotWritable)
	}
	payload := domain.OriginPayload{RouteField: route}
	for _, f := range diff.Fields() {
		switch f {
		case domain.FieldTitle:
			payload["title"] = res.Title
		case domain.FieldSlug:
			payload["slug"] = res.Slug
		case domain.FieldBodyHTML:
			payload["content"] = res.BodyHTML
		case domain.FieldTags:
			payload["tags"] = tagValues(res.Tags)
		default:
			return nil, fmt.Errorf("wordpress: %s: %w", f, domain.ErrNotWritable)
		}
	}
	return payload, nil
}

// Push sends an update to /wp/v2/{route}/{id}.
func (a *Adapter) Push(ctx context.Context, conn *domain.Connection, sourceID string, payload domain.OriginPayload) error {
	cfg, err := ParseConfig(conn)
	if err != nil {
		return err
	}
	route, _ := payload[RouteField].(string)
	if route == "" {
		route = "posts"
	}
	body := make(map[string]any, len(payload))
	for k, v := range payload {
		if k != RouteField {
			body[k] = v
		}
	}

	endpoint := fmt.Sprintf("%s/wp/v2/%s/%s", cfg.APIBase, route, sourceID)
	if _, err := a.client(cfg).Do(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return fmt.Errorf("update %s %s: %w", route, sourceID, err)
	}
	return nil
}
