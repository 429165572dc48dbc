package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestFieldDiff_Fields(t *testing.T) {
	assert.True(t, FieldDiff{}.IsEmpty())

	d := FieldDiff{Title: ptr("New"), Tags: []string{}, SEO: map[string]string{"title": "x"}}
	assert.Equal(t, []Field{FieldTitle, FieldTags, FieldSEO}, d.Fields())
	assert.True(t, d.Touches(FieldTags))
	assert.False(t, d.Touches(FieldSlug))
}

func TestFieldDiff_ApplyTo(t *testing.T) {
	r := validResource()
	r.SEO = map[string]string{"title": "Old", "description": "Keep"}
	r.Attributes = map[string]string{"color": "red"}

	d := FieldDiff{
		Title:      ptr("New"),
		Tags:       []string{"x", "x", "y"},
		SEO:        map[string]string{"title": "SEO New"},
		Attributes: map[string]string{"color": ""},
		Price:      ptr(9.5),
		Currency:   ptr("eur"),
	}
	d.ApplyTo(r)

	assert.Equal(t, "New", r.Title)
	assert.Equal(t, []string{"x", "y"}, r.Tags)
	assert.Equal(t, map[string]string{"title": "SEO New", "description": "Keep"}, r.SEO)
	assert.Nil(t, r.Attributes)
	assert.Equal(t, 9.5, *r.Price)
	assert.Equal(t, "EUR", r.Currency)
	assert.Equal(t, "42", r.SourceID)
}

func TestFieldDiff_JSONKeepsClearingEdits(t *testing.T) {
	raw, err := json.Marshal(FieldDiff{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))

	clearing := FieldDiff{Tags: []string{}, Attributes: map[string]string{}, Title: ptr("")}
	raw, err = json.Marshal(clearing)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"","tags":[],"attributes":{}}`, string(raw))

	var back FieldDiff
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, clearing.Fields(), back.Fields())
	require.NotNil(t, back.Tags)
	assert.Empty(t, back.Tags)
	require.NotNil(t, back.Attributes)
	assert.Nil(t, back.SEO)
}
