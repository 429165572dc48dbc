package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// RawRecord is one platform record exactly as pulled, before mapping.
type RawRecord map[string]any

// OriginKey is a resource's platform-of-record identity.
// An absent source site is the empty string, never a wildcard.
type OriginKey struct {
	TenantID   string
	Source     Source
	SourceSite string
	SourceID   string
}

// String returns a stable textual form of the key.
func (k OriginKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.TenantID, k.Source, k.SourceSite, k.SourceID)
}

// HubResource is the canonical resource shape shared by every source.
type HubResource struct {
	// ID is assigned by the store on first insert and never changes.
	ID string `json:"id"`

	// TenantID is the owning tenant. Immutable once set.
	TenantID string `json:"tenant_id"`

	Source     Source       `json:"source"`
	SourceSite string       `json:"source_site,omitempty"`
	SourceID   string       `json:"source_id"`
	Type       ResourceType `json:"type"`

	Slug     string `json:"slug,omitempty"`
	Title    string `json:"title,omitempty"`
	BodyHTML string `json:"body_html,omitempty"`

	// BodyText is the plain-text projection of BodyHTML.
	BodyText string `json:"body_text,omitempty"`

	Images []string `json:"images,omitempty"`

	// Price and Currency are both set or both absent.
	Price    *float64 `json:"price,omitempty"`
	Currency string   `json:"currency,omitempty"`

	// Tags have set semantics; order is kept for display only.
	Tags []string `json:"tags,omitempty"`

	Attributes map[string]string `json:"attributes,omitempty"`
	SEO        map[string]string `json:"seo,omitempty"`
	Locale     string            `json:"locale,omitempty"`
	URL        string            `json:"url,omitempty"`

	PublishedAt *time.Time `json:"published_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Embedding is written only by the enrichment pipeline.
	// It is internal and never serialised in default responses.
	Embedding []float32 `json:"-"`
}

// Key returns the resource's origin key.
func (r *HubResource) Key() OriginKey {
	return OriginKey{
		TenantID:   r.TenantID,
		Source:     r.Source,
		SourceSite: r.SourceSite,
		SourceID:   r.SourceID,
	}
}

// Normalise puts tags, attributes and seo into their canonical shapes.
// Tags are trimmed and de-duplicated case-sensitively keeping first
// occurrence order. Empty attribute and seo values are dropped.
func (r *HubResource) Normalise() {
	r.Tags = NormaliseTags(r.Tags)
	r.Attributes = dropEmpty(r.Attributes)
	r.SEO = dropEmpty(r.SEO)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.SourceID = strings.TrimSpace(r.SourceID)
	r.SourceSite = strings.TrimSpace(r.SourceSite)
	if len(r.Images) == 0 {
		r.Images = nil
	}
}

// NormaliseTags trims and de-duplicates tags.
func NormaliseTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func dropEmpty(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Validate checks the resource against the canonical schema.
// It reports every violated field, not just the first.
func (r *HubResource) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(r.TenantID) == "" {
		verr.Add("tenant_id", "required")
	}
	if !r.Source.IsValid() {
		verr.Add("source", fmt.Sprintf("unknown source %q", r.Source))
	}
	if !r.Type.IsValid() {
		verr.Add("type", fmt.Sprintf("unknown type %q", r.Type))
	}
	if strings.TrimSpace(r.SourceID) == "" {
		verr.Add("source_id", "required")
	}
	switch {
	case r.Price != nil && r.Currency == "":
		verr.Add("currency", "required when price is set")
	case r.Price == nil && r.Currency != "":
		verr.Add("price", "required when currency is set")
	}
	if r.Price != nil && *r.Price < 0 {
		verr.Add("price", "must not be negative")
	}
	if r.UpdatedAt.IsZero() {
		verr.Add("updated_at", "required")
	}
	return verr.OrNil()
}

// EmbeddingText is the text the enrichment pipeline embeds: the plain
// body followed by seo values in key order. Resources without a plain
// body fall back to the html body, then the title.
func (r *HubResource) EmbeddingText() string {
	body := r.BodyText
	if body == "" {
		body = r.BodyHTML
	}
	if body == "" {
		body = r.Title
	}
	if len(r.SEO) == 0 {
		return body
	}
	var b strings.Builder
	b.WriteString(body)
	for _, k := range slices.Sorted(maps.Keys(r.SEO)) {
		b.WriteString("\n")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(r.SEO[k])
	}
	return b.String()
}

// Clone returns a deep copy of the resource.
func (r *HubResource) Clone() *HubResource {
	c := *r
	c.Images = slices.Clone(r.Images)
	c.Tags = slices.Clone(r.Tags)
	c.Attributes = maps.Clone(r.Attributes)
	c.SEO = maps.Clone(r.SEO)
	c.Embedding = slices.Clone(r.Embedding)
	if r.Price != nil {
		p := *r.Price
		c.Price = &p
	}
	if r.PublishedAt != nil {
		t := *r.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}

// HasTag reports whether the resource carries tag t.
func (r *HubResource) HasTag(t string) bool {
	return slices.Contains(r.Tags, t)
}

// ResourceQuery filters a tenant-scoped search.
type ResourceQuery struct {
	// Text is matched case-insensitively against title, slug, body text and tags.
	Text string

	// Type restricts results to a single resource type.
	Type ResourceType

	// Source restricts results to a single source.
	Source Source

	// Limit caps the number of results. Zero means the store default.
	Limit int
}

// DefaultSearchLimit caps unbounded searches.
const DefaultSearchLimit = 100

// EffectiveLimit returns Limit, or DefaultSearchLimit when unset.
func (q ResourceQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultSearchLimit
	}
	return q.Limit
}

// Matches applies the query filters to r. Stores that cannot push the
// filter down to their engine use this directly.
func (q ResourceQuery) Matches(r *HubResource) bool {
	if q.Type != "" && r.Type != q.Type {
		return false
	}
	if q.Source != "" && r.Source != q.Source {
		return false
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))
	if text == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Title), text) ||
		strings.Contains(strings.ToLower(r.Slug), text) ||
		strings.Contains(strings.ToLower(r.BodyText), text) {
		return true
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), text) {
			return true
		}
	}
	return false
}

// SortByRecency orders resources by updated_at descending, then id.
func SortByRecency(resources []*HubResource) {
	slices.SortStableFunc(resources, func(a, b *HubResource) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
