package shopify

import (
	"strings"

	"github.com/custodia-labs/sercha-hub/internal/connectors/record"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/normalisers/html"
)

// defaultNamespace is used for metafields without a namespace.
const defaultNamespace = "default"

// Map converts a Shopify product to a canonical resource.
func (a *Adapter) Map(raw domain.RawRecord, tenantID, sourceSite string) (*domain.HubResource, error) {
	id := strings.TrimSpace(record.String(raw["id"]))
	if id == "" {
		return nil, &domain.MappingError{Source: domain.SourceShopify, Reason: "missing id"}
	}

	body := firstString(raw, "descriptionHtml", "bodyHtml", "body_html")
	handle := record.String(raw["handle"])
	res := &domain.HubResource{
		TenantID:    tenantID,
		Source:      domain.SourceShopify,
		SourceSite:  sourceSite,
		SourceID:    id,
		Type:        domain.TypeProduct,
		Slug:        handle,
		Title:       record.String(raw["title"]),
		BodyHTML:    body,
		BodyText:    html.Text(body),
		Images:      images(raw["images"]),
		Tags:        record.Strings(raw["tags"]),
		Attributes:  attributes(raw),
		SEO:         seo(raw["seo"]),
		URL:         productURL(raw, sourceSite, handle),
		PublishedAt: record.Time(raw["publishedAt"]),
	}
	if variant := firstVariant(raw); variant != nil {
		res.Price, res.Currency = variantPrice(variant)
	}
	if updated := record.Time(firstString(raw, "updatedAt", "updated_at")); updated != nil {
		res.UpdatedAt = *updated
	} else {
		res.UpdatedAt = a.now().UTC()
	}
	res.Normalise()
	return res, nil
}

func firstString(raw domain.RawRecord, keys ...string) string {
	for _, k := range keys {
		if s := record.String(raw[k]); s != "" {
			return s
		}
	}
	return ""
}

func firstVariant(raw domain.RawRecord) map[string]any {
	variants := record.Slice(raw["variants"])
	if len(variants) == 0 {
		return nil
	}
	return record.Map(variants[0])
}

// variantPrice reads price and currency from a variant. The price may be a
// plain amount, a MoneyV2 object, or only present on priceSet.shopMoney.
func variantPrice(v map[string]any) (*float64, string) {
	var (
		amount   any
		currency string
	)
	switch p := v["price"].(type) {
	case map[string]any:
		amount = p["amount"]
		currency = record.String(p["currencyCode"])
	default:
		amount = p
	}
	shopMoney := record.Map(record.Lookup(v, "priceSet", "shopMoney"))
	if amount == nil && shopMoney != nil {
		amount = shopMoney["amount"]
	}
	if currency == "" {
		currency = record.String(v["currencyCode"])
	}
	if currency == "" && shopMoney != nil {
		currency = record.String(shopMoney["currencyCode"])
	}
	if currency == "" {
		if pp := record.Slice(v["presentmentPrices"]); len(pp) > 0 {
			currency = record.String(record.Lookup(pp[0], "price", "currencyCode"))
		}
	}

	f, ok := record.Float(amount)
	if !ok {
		return nil, currency
	}
	return &f, currency
}

func images(v any) []string {
	var out []string
	for _, item := range record.Slice(v) {
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		m := record.Map(item)
		for _, k := range []string{"url", "src", "originalSrc"} {
			if s := record.String(m[k]); s != "" {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// attributes collects metafields as "namespace.key" plus a few product
// properties that have no dedicated canonical field.
func attributes(raw domain.RawRecord) map[string]string {
	attrs := make(map[string]string)
	for _, item := range record.Slice(raw["metafields"]) {
		m := record.Map(item)
		key := record.String(m["key"])
		if key == "" {
			continue
		}
		ns := record.String(m["namespace"])
		if ns == "" {
			ns = defaultNamespace
		}
		attrs[ns+"."+key] = record.String(m["value"])
	}
	for field, attr := range map[string]string{
		"vendor":      "vendor",
		"productType": "product_type",
		"status":      "status",
	} {
		if s := record.String(raw[field]); s != "" {
			attrs[attr] = s
		}
	}
	return attrs
}

func seo(v any) map[string]string {
	m := record.Map(v)
	if m == nil {
		return nil
	}
	return map[string]string{
		"title":       record.String(m["title"]),
		"description": record.String(m["description"]),
	}
}

func productURL(raw domain.RawRecord, store, handle string) string {
	if u := record.String(raw["onlineStoreUrl"]); u != "" {
		return u
	}
	if handle == "" || store == "" {
		return ""
	}
	return "https://" + store + "/products/" + handle
}
