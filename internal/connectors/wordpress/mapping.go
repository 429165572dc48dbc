package wordpress

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-hub/internal/connectors/record"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/normalisers/html"
)

// RouteField annotates pulled records and write payloads with their wp/v2 collection.
const RouteField = "_route"

// Map converts a WordPress post or page to a canonical resource.
func (a *Adapter) Map(raw domain.RawRecord, tenantID, sourceSite string) (*domain.HubResource, error) {
	id := strings.TrimSpace(record.String(raw["id"]))
	if id == "" {
		return nil, &domain.MappingError{Source: domain.SourceWordPress, Reason: "missing id"}
	}
	rtype, reason := resolveType(raw)
	if reason != "" {
		return nil, &domain.MappingError{Source: domain.SourceWordPress, RecordID: id, Reason: reason}
	}

	body := rendered(raw["content"])
	res := &domain.HubResource{
		TenantID:    tenantID,
		Source:      domain.SourceWordPress,
		SourceSite:  sourceSite,
		SourceID:    id,
		Type:        rtype,
		Slug:        record.String(raw["slug"]),
		Title:       rendered(raw["title"]),
		BodyHTML:    body,
		BodyText:    html.Text(body),
		Images:      featuredMedia(raw),
		Tags:        record.Strings(raw["tags"]),
		Attributes:  attributes(raw),
		SEO:         seo(raw),
		Locale:      record.String(raw["lang"]),
		URL:         record.String(raw["link"]),
		PublishedAt: record.Time(raw["date_gmt"]),
	}
	if updated := record.Time(raw["modified_gmt"]); updated != nil {
		res.UpdatedAt = *updated
	} else {
		res.UpdatedAt = a.now().UTC()
	}
	res.Normalise()
	return res, nil
}

// resolveType reads the post type, falling back to the route the record
// was pulled from. Pull stamps RouteField on every record, so only records
// built outside Pull can miss both. The reason is empty on success.
func resolveType(raw domain.RawRecord) (domain.ResourceType, string) {
	if t := record.String(raw["type"]); t != "" {
		rtype, ok := postTypes[t]
		if !ok {
			return "", "unsupported post type " + strconv.Quote(t)
		}
		return rtype, ""
	}
	if rtype, ok := routeTypes[record.String(raw[RouteField])]; ok {
		return rtype, ""
	}
	return "", "missing type"
}

// rendered reads a {"rendered": ...} object or a plain string.
func rendered(v any) string {
	if m := record.Map(v); m != nil {
		return record.String(m["rendered"])
	}
	return record.String(v)
}

func featuredMedia(raw domain.RawRecord) []string {
	var images []string
	for _, item := range record.Slice(record.Lookup(raw, "_embedded", "wp:featuredmedia")) {
		if src := record.String(record.Lookup(item, "source_url")); src != "" {
			images = append(images, src)
		}
	}
	return images
}

func attributes(raw domain.RawRecord) map[string]string {
	attrs := make(map[string]string)
	for k, v := range record.Map(raw["meta"]) {
		attrs[k] = record.String(v)
	}
	for k, v := range record.Map(raw["acf"]) {
		attrs["acf."+k] = record.String(v)
	}
	return attrs
}

func seo(raw domain.RawRecord) map[string]string {
	yoast := record.Map(raw["yoast_head_json"])
	if yoast == nil {
		return nil
	}
	out := map[string]string{
		"title":       record.String(yoast["title"]),
		"description": record.String(yoast["description"]),
	}
	switch schema := yoast["schema"].(type) {
	case nil:
	case string:
		out["schema"] = schema
	default:
		if data, err := json.Marshal(schema); err == nil {
			out["schema"] = string(data)
		}
	}
	return out
}

// tagValues converts tags to the REST representation: numeric term ids
// stay numbers, anything else is sent as a name.
func tagValues(tags []string) []any {
	out := make([]any, 0, len(tags))
	for _, t := range tags {
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			out = append(out, n)
			continue
		}
		out = append(out, t)
	}
	return out
}
