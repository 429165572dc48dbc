package domain

import (
	"encoding/json"
	"maps"
	"slices"
)

// Field names a canonical content field that can be edited and pushed back.
type Field string

// Editable canonical fields.
const (
	FieldTitle      Field = "title"
	FieldSlug       Field = "slug"
	FieldBodyHTML   Field = "body_html"
	FieldTags       Field = "tags"
	FieldSEO        Field = "seo"
	FieldPrice      Field = "price"
	FieldCurrency   Field = "currency"
	FieldImages     Field = "images"
	FieldAttributes Field = "attributes"
	FieldLocale     Field = "locale"
)

// FieldDiff is an automation edit. A nil field is unchanged.
// Map fields replace the listed keys only; an empty value removes a key.
type FieldDiff struct {
	Title      *string           `json:"title,omitempty"`
	Slug       *string           `json:"slug,omitempty"`
	BodyHTML   *string           `json:"body_html,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	SEO        map[string]string `json:"seo,omitempty"`
	Price      *float64          `json:"price,omitempty"`
	Currency   *string           `json:"currency,omitempty"`
	Images     []string          `json:"images,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Locale     *string           `json:"locale,omitempty"`
}

// MarshalJSON writes every touched field and omits the rest. An empty but
// non-nil list or map is kept as [] or {} so a clearing edit survives
// storage; decoding [] or {} yields a non-nil empty value again.
func (d FieldDiff) MarshalJSON() ([]byte, error) {
	type wire struct {
		Title      *string            `json:"title,omitempty"`
		Slug       *string            `json:"slug,omitempty"`
		BodyHTML   *string            `json:"body_html,omitempty"`
		Tags       *[]string          `json:"tags,omitempty"`
		SEO        *map[string]string `json:"seo,omitempty"`
		Price      *float64           `json:"price,omitempty"`
		Currency   *string            `json:"currency,omitempty"`
		Images     *[]string          `json:"images,omitempty"`
		Attributes *map[string]string `json:"attributes,omitempty"`
		Locale     *string            `json:"locale,omitempty"`
	}
	w := wire{
		Title:    d.Title,
		Slug:     d.Slug,
		BodyHTML: d.BodyHTML,
		Price:    d.Price,
		Currency: d.Currency,
		Locale:   d.Locale,
	}
	if d.Tags != nil {
		w.Tags = &d.Tags
	}
	if d.SEO != nil {
		w.SEO = &d.SEO
	}
	if d.Images != nil {
		w.Images = &d.Images
	}
	if d.Attributes != nil {
		w.Attributes = &d.Attributes
	}
	return json.Marshal(w)
}

// Fields returns the fields the diff changes, in declaration order.
func (d FieldDiff) Fields() []Field {
	var out []Field
	if d.Title != nil {
		out = append(out, FieldTitle)
	}
	if d.Slug != nil {
		out = append(out, FieldSlug)
	}
	if d.BodyHTML != nil {
		out = append(out, FieldBodyHTML)
	}
	if d.Tags != nil {
		out = append(out, FieldTags)
	}
	if d.SEO != nil {
		out = append(out, FieldSEO)
	}
	if d.Price != nil {
		out = append(out, FieldPrice)
	}
	if d.Currency != nil {
		out = append(out, FieldCurrency)
	}
	if d.Images != nil {
		out = append(out, FieldImages)
	}
	if d.Attributes != nil {
		out = append(out, FieldAttributes)
	}
	if d.Locale != nil {
		out = append(out, FieldLocale)
	}
	return out
}

// IsEmpty reports whether the diff changes nothing.
func (d FieldDiff) IsEmpty() bool {
	return len(d.Fields()) == 0
}

// Touches reports whether the diff changes field f.
func (d FieldDiff) Touches(f Field) bool {
	return slices.Contains(d.Fields(), f)
}

// ApplyTo writes the diff onto r and re-normalises it.
// Body text is not recomputed here; callers own the html projection.
func (d FieldDiff) ApplyTo(r *HubResource) {
	if d.Title != nil {
		r.Title = *d.Title
	}
	if d.Slug != nil {
		r.Slug = *d.Slug
	}
	if d.BodyHTML != nil {
		r.BodyHTML = *d.BodyHTML
	}
	if d.Tags != nil {
		r.Tags = slices.Clone(d.Tags)
	}
	if d.SEO != nil {
		r.SEO = mergeStrings(r.SEO, d.SEO)
	}
	if d.Price != nil {
		p := *d.Price
		r.Price = &p
	}
	if d.Currency != nil {
		r.Currency = *d.Currency
	}
	if d.Images != nil {
		r.Images = slices.Clone(d.Images)
	}
	if d.Attributes != nil {
		r.Attributes = mergeStrings(r.Attributes, d.Attributes)
	}
	if d.Locale != nil {
		r.Locale = *d.Locale
	}
	r.Normalise()
}

func mergeStrings(base, patch map[string]string) map[string]string {
	out := maps.Clone(base)
	if out == nil {
		out = make(map[string]string, len(patch))
	}
	for k, v := range patch {
		if v == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
