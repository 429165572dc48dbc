package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-hub/internal/connectors/httpapi"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.Adapter = (*Adapter)(nil)

const accessTokenHeader = "X-Shopify-Access-Token"

// Adapter pulls products from and pushes edits to the Shopify Admin API.
type Adapter struct {
	opts httpapi.Options
	now  func() time.Time

	mu      sync.Mutex
	clients map[string]*httpapi.Client
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPOptions overrides the HTTP client options.
func WithHTTPOptions(opts httpapi.Options) Option {
	return func(a *Adapter) { a.opts = opts }
}

// WithClock overrides the clock used to default updated_at.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New creates a Shopify adapter.
func New(options ...Option) *Adapter {
	a := &Adapter{
		// Admin API leaky bucket: 2 requests/second, bucket of 40.
		opts:    httpapi.Options{RateLimit: httpapi.RateLimitConfig{RequestsPerSecond: 2, BurstSize: 40}},
		now:     time.Now,
		clients: make(map[string]*httpapi.Client),
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Source returns the platform this adapter serves.
func (a *Adapter) Source() domain.Source { return domain.SourceShopify }

// ValidateConnection checks the store domain and token are configured.
func (a *Adapter) ValidateConnection(conn *domain.Connection) error {
	_, err := ParseConfig(conn)
	return err
}

// WritableFields lists the product fields productUpdate accepts.
func (a *Adapter) WritableFields() []domain.Field {
	return []domain.Field{
		domain.FieldTitle, domain.FieldSlug, domain.FieldBodyHTML, domain.FieldTags, domain.FieldSEO,
	}
}

func (a *Adapter) client(cfg *Config) *httpapi.Client {
	key := cfg.GraphQLURL() + "\x00" + cfg.AccessToken
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
	opts.Header.Set(accessTokenHeader, cfg.AccessToken)
	c := httpapi.New(opts)
	a.clients[key] = c
	return c
}

// Pull fetches one page of products. The cursor is the GraphQL endCursor.
func (a *Adapter) Pull(ctx context.Context, conn *domain.Connection, cursor string) (*driven.PullBatch, error) {
	cfg, err := ParseConfig(conn)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{"first": PageSize}
	if cursor != "" {
		vars["after"] = cursor
	}

	var page productsPage
	if err := execute(ctx, a.client(cfg), cfg, productsQuery, vars, &page); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	batch := &driven.PullBatch{Records: make([]domain.RawRecord, 0, len(page.Products.Edges))}
	for _, edge := range page.Products.Edges {
		if edge.Node == nil {
			continue
		}
		batch.Records = append(batch.Records, flattenNode(edge.Node, page.Shop.CurrencyCode))
	}
	if page.Products.PageInfo.HasNextPage {
		batch.Cursor = page.Products.PageInfo.EndCursor
	}
	return batch, nil
}

// ToOrigin builds a ProductInput for the fields diff touches.
func (a *Adapter) ToOrigin(res *domain.HubResource, diff domain.FieldDiff) (domain.OriginPayload, error) {
	if res.Type != domain.TypeProduct {
		return nil, fmt.Errorf("shopify: type %s: %w", res.Type, domain.ErrNotWritable)
	}
	payload := domain.OriginPayload{"id": res.SourceID}
	for _, f := range diff.Fields() {
		switch f {
		case domain.FieldTitle:
			payload["title"] = res.Title
		case domain.FieldSlug:
			payload["handle"] = res.Slug
		case domain.FieldBodyHTML:
			payload["descriptionHtml"] = res.BodyHTML
		case domain.FieldTags:
			tags := res.Tags
			if tags == nil {
				tags = []string{}
			}
			payload["tags"] = tags
		case domain.FieldSEO:
			payload["seo"] = map[string]any{
				"title":       res.SEO["title"],
				"description": res.SEO["description"],
			}
		default:
			return nil, fmt.Errorf("shopify: %s: %w", f, domain.ErrNotWritable)
		}
	}
	return payload, nil
}

// Push runs productUpdate. User errors from the mutation fail the push.
func (a *Adapter) Push(ctx context.Context, conn *domain.Connection, sourceID string, payload domain.OriginPayload) error {
	cfg, err := ParseConfig(conn)
	if err != nil {
		return err
	}
	input := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		input[k] = v
	}
	input["id"] = sourceID

	var result productUpdateResult
	if err := execute(ctx, a.client(cfg), cfg, productUpdateMutation, map[string]any{"input": input}, &result); err != nil {
		return fmt.Errorf("update product %s: %w", sourceID, err)
	}
	if errs := result.ProductUpdate.UserErrors; len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			field := strings.Join(e.Field, ".")
			if field != "" {
				msgs = append(msgs, field+": "+e.Message)
			} else {
				msgs = append(msgs, e.Message)
			}
		}
		return fmt.Errorf("update product %s: %w: %s", sourceID, ErrGraphQL, strings.Join(msgs, "; "))
	}
	return nil
}
