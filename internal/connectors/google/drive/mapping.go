package drive

import (
	"strings"

	"github.com/custodia-labs/sercha-hub/internal/connectors/record"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/normalisers/html"
)

// Map converts a Drive file record to an asset resource.
func (a *Adapter) Map(raw domain.RawRecord, tenantID, sourceSite string) (*domain.HubResource, error) {
	id := strings.TrimSpace(record.String(raw["id"]))
	if id == "" {
		return nil, &domain.MappingError{Source: domain.SourceDrive, Reason: "missing id"}
	}
	if record.String(raw["mimeType"]) == MimeTypeFolder {
		return nil, &domain.MappingError{Source: domain.SourceDrive, RecordID: id, Reason: "folders are not resources"}
	}

	name := record.String(raw["name"])
	content := record.String(raw[ContentField])
	res := &domain.HubResource{
		TenantID:    tenantID,
		Source:      domain.SourceDrive,
		SourceSite:  sourceSite,
		SourceID:    id,
		Type:        domain.TypeAsset,
		Title:       name,
		Attributes:  attributes(raw),
		URL:         WebURL(id, record.String(raw["webViewLink"])),
		PublishedAt: record.Time(raw["createdTime"]),
	}
	if record.String(raw[ContentKindField]) == kindHTML {
		res.BodyHTML = content
		res.BodyText = html.Text(content)
		if res.Title == "" {
			res.Title = html.Title(content, "")
		}
	} else {
		res.BodyText = content
	}
	if thumb := record.String(raw["thumbnailLink"]); thumb != "" {
		res.Images = []string{thumb}
	}
	if desc := record.String(raw["description"]); desc != "" {
		res.SEO = map[string]string{"description": desc}
	}
	if updated := record.Time(raw["modifiedTime"]); updated != nil {
		res.UpdatedAt = *updated
	} else {
		res.UpdatedAt = a.now().UTC()
	}
	res.Normalise()
	return res, nil
}

func attributes(raw domain.RawRecord) map[string]string {
	attrs := map[string]string{
		"mime_type": record.String(raw["mimeType"]),
		"size":      record.String(raw["size"]),
	}
	if parents := record.Slice(raw["parents"]); len(parents) > 0 {
		attrs["parent_id"] = record.String(parents[0])
	}
	for k, v := range record.Map(raw["properties"]) {
		attrs["prop."+k] = record.String(v)
	}
	return attrs
}
