package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validResource() *HubResource {
	return &HubResource{
		TenantID:   "tenant-1",
		Source:     SourceWordPress,
		SourceSite: "blog1",
		SourceID:   "42",
		Type:       TypePost,
		Title:      "Hello",
		UpdatedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestHubResource_Validate_OK(t *testing.T) {
	assert.NoError(t, validResource().Validate())
}

func TestHubResource_Validate_ReportsEveryField(t *testing.T) {
	price := 10.0
	r := &HubResource{
		Source: Source("ftp"),
		Type:   ResourceType("blob"),
		Price:  &price,
	}

	err := r.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t,
		[]string{"currency", "source", "source_id", "tenant_id", "type", "updated_at"},
		verr.Fields())
}

func TestHubResource_Validate_CurrencyWithoutPrice(t *testing.T) {
	r := validResource()
	r.Currency = "USD"

	var verr *ValidationError
	require.ErrorAs(t, r.Validate(), &verr)
	assert.Equal(t, []string{"price"}, verr.Fields())
}

func TestHubResource_Validate_NegativePrice(t *testing.T) {
	r := validResource()
	price := -1.0
	r.Price = &price
	r.Currency = "EUR"

	var verr *ValidationError
	require.ErrorAs(t, r.Validate(), &verr)
	assert.Equal(t, []string{"price"}, verr.Fields())
}

func TestHubResource_Normalise(t *testing.T) {
	r := validResource()
	r.Tags = []string{"a", " b", "A", "a", "", "b"}
	r.Attributes = map[string]string{"color": "red", "size": "", "": "x"}
	r.SEO = map[string]string{"title": "", "description": "d"}
	r.Currency = " usd "
	r.SourceID = " 42 "
	r.Images = []string{}

	r.Normalise()

	assert.Equal(t, []string{"a", "b", "A"}, r.Tags)
	assert.Equal(t, map[string]string{"color": "red"}, r.Attributes)
	assert.Equal(t, map[string]string{"description": "d"}, r.SEO)
	assert.Equal(t, "USD", r.Currency)
	assert.Equal(t, "42", r.SourceID)
	assert.Nil(t, r.Images)
}

func TestHubResource_Normalise_EmptyMapsBecomeNil(t *testing.T) {
	r := validResource()
	r.Attributes = map[string]string{"k": ""}
	r.Tags = []string{" "}

	r.Normalise()

	assert.Nil(t, r.Attributes)
	assert.Nil(t, r.Tags)
}

func TestHubResource_Key(t *testing.T) {
	r := validResource()
	key := r.Key()
	assert.Equal(t, OriginKey{TenantID: "tenant-1", Source: SourceWordPress, SourceSite: "blog1", SourceID: "42"}, key)
	assert.Equal(t, "tenant-1/wordpress/blog1/42", key.String())

	r.SourceSite = ""
	assert.Equal(t, "tenant-1/wordpress//42", r.Key().String())
}

func TestHubResource_EmbeddingText(t *testing.T) {
	r := validResource()
	r.BodyText = "Hi"
	r.SEO = map[string]string{"title": "T", "description": "D"}

	assert.Equal(t, "Hi\ndescription: D\ntitle: T", r.EmbeddingText())

	r.BodyText = ""
	r.BodyHTML = "<p>Hi</p>"
	r.SEO = nil
	assert.Equal(t, "<p>Hi</p>", r.EmbeddingText())

	r.BodyHTML = ""
	assert.Equal(t, "Hello", r.EmbeddingText())
}

func TestHubResource_Clone_IsDeep(t *testing.T) {
	r := validResource()
	price := 1.5
	r.Price = &price
	r.Currency = "USD"
	r.Tags = []string{"a"}
	r.SEO = map[string]string{"title": "x"}
	r.Embedding = []float32{1, 2}

	c := r.Clone()
	c.Tags[0] = "b"
	c.SEO["title"] = "y"
	*c.Price = 2
	c.Embedding[0] = 9

	assert.Equal(t, "a", r.Tags[0])
	assert.Equal(t, "x", r.SEO["title"])
	assert.Equal(t, 1.5, *r.Price)
	assert.Equal(t, float32(1), r.Embedding[0])
}

func TestResourceQuery_Matches(t *testing.T) {
	r := validResource()
	r.Title = "Summer Dress"
	r.Slug = "summer-dress"
	r.BodyText = "Light cotton"
	r.Tags = []string{"Clearance"}

	tests := []struct {
		name  string
		query ResourceQuery
		want  bool
	}{
		{"empty", ResourceQuery{}, true},
		{"title case-insensitive", ResourceQuery{Text: "SUMMER"}, true},
		{"body", ResourceQuery{Text: "cotton"}, true},
		{"tag", ResourceQuery{Text: "clear"}, true},
		{"no match", ResourceQuery{Text: "winter"}, false},
		{"type filter", ResourceQuery{Type: TypeProduct}, false},
		{"source filter", ResourceQuery{Source: SourceWordPress}, true},
		{"other source", ResourceQuery{Source: SourceShopify}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Matches(r))
		})
	}
}

func TestResourceQuery_EffectiveLimit(t *testing.T) {
	assert.Equal(t, DefaultSearchLimit, ResourceQuery{}.EffectiveLimit())
	assert.Equal(t, DefaultSearchLimit, ResourceQuery{Limit: -1}.EffectiveLimit())
	assert.Equal(t, 5, ResourceQuery{Limit: 5}.EffectiveLimit())
}

func TestSortByRecency(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rs := []*HubResource{
		{ID: "b", UpdatedAt: base},
		{ID: "c", UpdatedAt: base.Add(time.Hour)},
		{ID: "a", UpdatedAt: base},
	}
	SortByRecency(rs)
	assert.Equal(t, "c", rs[0].ID)
	assert.Equal(t, "a", rs[1].ID)
	assert.Equal(t, "b", rs[2].ID)
}
