package manual

import (
	"bytes"
	"path"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/custodia-labs/sercha-hub/internal/connectors/record"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/normalisers/html"
)

var markdown = goldmark.New()

// Map converts an inbox record to a canonical resource.
func (a *Adapter) Map(raw domain.RawRecord, tenantID, sourceSite string) (*domain.HubResource, error) {
	rel := record.String(raw[PathField])
	if msg := record.String(raw[ErrorField]); msg != "" {
		return nil, &domain.MappingError{Source: domain.SourceManual, RecordID: rel, Reason: msg}
	}

	var (
		res *domain.HubResource
		err error
	)
	if Format(record.String(raw[FormatField])).IsManifest() || rel == "" {
		res, err = fromManifest(raw, rel)
	} else {
		res, err = fromFile(raw, rel)
	}
	if err != nil {
		return nil, err
	}
	res.TenantID = tenantID
	res.Source = domain.SourceManual
	res.SourceSite = sourceSite
	if res.UpdatedAt.IsZero() {
		if modified := record.Time(raw[ModifiedField]); modified != nil {
			res.UpdatedAt = *modified
		} else {
			res.UpdatedAt = a.now().UTC()
		}
	}
	res.Normalise()
	return res, nil
}

func fromManifest(raw domain.RawRecord, rel string) (*domain.HubResource, error) {
	id := strings.TrimSpace(record.String(raw["id"]))
	if id == "" {
		id = rel
	}
	if id == "" {
		return nil, &domain.MappingError{Source: domain.SourceManual, Reason: "missing id"}
	}
	rtype := domain.ResourceType(record.String(raw["type"]))
	if rtype == "" {
		return nil, &domain.MappingError{Source: domain.SourceManual, RecordID: id, Reason: "missing type"}
	}
	if !rtype.IsValid() {
		return nil, &domain.MappingError{Source: domain.SourceManual, RecordID: id, Reason: "unsupported type " + string(rtype)}
	}

	body := record.String(raw["body_html"])
	res := &domain.HubResource{
		SourceID:    id,
		Type:        rtype,
		Slug:        record.String(raw["slug"]),
		Title:       record.String(raw["title"]),
		BodyHTML:    body,
		BodyText:    record.String(raw["body_text"]),
		Images:      record.Strings(raw["images"]),
		Tags:        record.Strings(raw["tags"]),
		Attributes:  stringMap(raw["attributes"]),
		SEO:         stringMap(raw["seo"]),
		Currency:    record.String(raw["currency"]),
		Locale:      record.String(raw["locale"]),
		URL:         record.String(raw["url"]),
		PublishedAt: record.Time(raw["published_at"]),
	}
	if res.BodyText == "" {
		res.BodyText = html.Text(body)
	}
	if price, ok := record.Float(raw["price"]); ok {
		res.Price = &price
	}
	if updated := record.Time(raw["updated_at"]); updated != nil {
		res.UpdatedAt = *updated
	}
	return res, nil
}

func fromFile(raw domain.RawRecord, rel string) (*domain.HubResource, error) {
	content := record.String(raw[ContentField])
	res := &domain.HubResource{
		SourceID: rel,
		Type:     domain.TypeAsset,
		Slug:     slug(rel),
	}
	switch Format(record.String(raw[FormatField])) {
	case FormatHTML:
		res.BodyHTML = content
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(content), &buf); err != nil {
			return nil, &domain.MappingError{Source: domain.SourceManual, RecordID: rel, Reason: "render markdown", Err: err}
		}
		res.BodyHTML = buf.String()
	default:
		res.BodyText = strings.TrimSpace(content)
	}
	if res.BodyHTML != "" {
		res.BodyText = html.Text(res.BodyHTML)
	}
	res.Title = html.Title(res.BodyHTML, rel)
	return res, nil
}

// slug derives a URL slug from a relative path: "Docs/Read Me.md" becomes
// "docs/read-me".
func slug(rel string) string {
	s := strings.TrimSuffix(rel, path.Ext(rel))
	s = strings.ToLower(strings.Join(strings.Fields(s), "-"))
	return s
}

func stringMap(v any) map[string]string {
	m := record.Map(v)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, item := range m {
		out[k] = record.String(item)
	}
	return out
}
