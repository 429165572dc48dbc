package manual

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-hub/internal/connectors/record"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.Adapter = (*Adapter)(nil)

// PageSize is the number of files read per pull.
const PageSize = 100

// ErrManifestConflict indicates a push would overwrite a manifest that
// belongs to another resource.
var ErrManifestConflict = errors.New("manual: manifest belongs to another resource")

// Adapter reads resources from a local inbox directory.
type Adapter struct {
	now func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock overrides the clock used to default updated_at.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New creates a manual adapter.
func New(options ...Option) *Adapter {
	a := &Adapter{now: time.Now}
	for _, o := range options {
		o(a)
	}
	return a
}

// Source returns the platform this adapter serves.
func (a *Adapter) Source() domain.Source { return domain.SourceManual }

// ValidateConnection checks the inbox directory exists.
func (a *Adapter) ValidateConnection(conn *domain.Connection) error {
	cfg, err := ParseConfig(conn)
	if err != nil {
		return err
	}
	return cfg.Check()
}

// WritableFields lists every content field; manifests store them all.
func (a *Adapter) WritableFields() []domain.Field {
	return []domain.Field{
		domain.FieldTitle, domain.FieldSlug, domain.FieldBodyHTML, domain.FieldTags, domain.FieldSEO,
		domain.FieldPrice, domain.FieldCurrency, domain.FieldImages, domain.FieldAttributes, domain.FieldLocale,
	}
}

// Pull reads the next page of files. The cursor is the relative path of
// the last file returned.
func (a *Adapter) Pull(ctx context.Context, conn *domain.Connection, cursor string) (*driven.PullBatch, error) {
	cfg, err := ParseConfig(conn)
	if err != nil {
		return nil, err
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	paths, err := listFiles(cfg.Root)
	if err != nil {
		return nil, err
	}

	start := sort.SearchStrings(paths, cursor)
	if start < len(paths) && paths[start] == cursor {
		start++
	}
	end := min(start+PageSize, len(paths))

	batch := &driven.PullBatch{Records: make([]domain.RawRecord, 0, end-start)}
	for _, rel := range paths[start:end] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := readRecord(cfg.Root, rel)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		batch.Records = append(batch.Records, raw)
	}
	if end < len(paths) {
		batch.Cursor = paths[end-1]
	}
	return batch, nil
}

// ToOrigin renders the full canonical manifest of res. Pushing rewrites
// the whole manifest, so untouched fields are included too.
func (a *Adapter) ToOrigin(res *domain.HubResource, diff domain.FieldDiff) (domain.OriginPayload, error) {
	writable := make(map[domain.Field]bool)
	for _, f := range a.WritableFields() {
		writable[f] = true
	}
	for _, f := range diff.Fields() {
		if !writable[f] {
			return nil, fmt.Errorf("manual: %s: %w", f, domain.ErrNotWritable)
		}
	}
	return Manifest(res), nil
}

// Manifest renders a resource as manifest fields.
func Manifest(res *domain.HubResource) domain.OriginPayload {
	m := domain.OriginPayload{
		"id":         res.SourceID,
		"type":       string(res.Type),
		"title":      res.Title,
		"updated_at": res.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	set := func(key, v string) {
		if v != "" {
			m[key] = v
		}
	}
	set("slug", res.Slug)
	set("body_html", res.BodyHTML)
	set("currency", res.Currency)
	set("locale", res.Locale)
	set("url", res.URL)
	if res.BodyHTML == "" {
		set("body_text", res.BodyText)
	}
	if len(res.Tags) > 0 {
		m["tags"] = res.Tags
	}
	if len(res.Images) > 0 {
		m["images"] = res.Images
	}
	if len(res.Attributes) > 0 {
		m["attributes"] = res.Attributes
	}
	if len(res.SEO) > 0 {
		m["seo"] = res.SEO
	}
	if res.Price != nil {
		m["price"] = *res.Price
	}
	if res.PublishedAt != nil {
		m["published_at"] = res.PublishedAt.UTC().Format(time.RFC3339Nano)
	}
	return m
}

// Push writes the manifest for sourceID. An existing manifest is rewritten
// in place; a plain content file is replaced by a JSON manifest with the
// same id, so the resource keeps its origin key.
func (a *Adapter) Push(ctx context.Context, conn *domain.Connection, sourceID string, payload domain.OriginPayload) error {
	cfg, err := ParseConfig(conn)
	if err != nil {
		return err
	}
	target, replaced, err := a.locate(cfg.Root, sourceID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	manifest := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		manifest[k] = v
	}
	manifest["id"] = sourceID

	format, _ := FormatOf(target)
	var data []byte
	if format == FormatYAML {
		data, err = yaml.Marshal(manifest)
	} else {
		data, err = json.MarshalIndent(manifest, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode manifest %s: %w", sourceID, err)
	}

	full := filepath.Join(cfg.Root, filepath.FromSlash(target))
	if err := writeFileAtomic(full, data); err != nil {
		return fmt.Errorf("write manifest %s: %w", target, err)
	}
	if replaced != "" {
		if err := os.Remove(filepath.Join(cfg.Root, filepath.FromSlash(replaced))); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", replaced, err)
		}
	}
	return nil
}

// locate finds the manifest path for sourceID. replaced is set when a
// content file is being converted into a manifest.
func (a *Adapter) locate(root, sourceID string) (target, replaced string, err error) {
	paths, err := listFiles(root)
	if err != nil {
		return "", "", err
	}
	for _, rel := range paths {
		format, _ := FormatOf(rel)
		if !format.IsManifest() {
			continue
		}
		raw, err := readRecord(root, rel)
		if err != nil {
			return "", "", err
		}
		id := record.String(raw["id"])
		if id == sourceID || (id == "" && rel == sourceID) {
			return rel, "", nil
		}
	}

	target = sourceID
	if format, ok := FormatOf(sourceID); ok && !format.IsManifest() {
		replaced = sourceID
		target = sourceID[:len(sourceID)-len(path.Ext(sourceID))] + ".json"
	} else if !ok {
		target = sourceID + ".json"
	}
	if filepath.IsAbs(target) || !filepath.IsLocal(filepath.FromSlash(target)) {
		return "", "", fmt.Errorf("manual: invalid source id %q", sourceID)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(target))); err == nil {
		return "", "", fmt.Errorf("%w: %s", ErrManifestConflict, target)
	}
	return target, replaced, nil
}
