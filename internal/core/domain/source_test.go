package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSource_IsValid(t *testing.T) {
	for _, s := range Sources() {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, Source("github").IsValid())
	assert.False(t, Source("").IsValid())
}

func TestResourceType_IsValid(t *testing.T) {
	valid := []ResourceType{TypePage, TypePost, TypeProduct, TypeCollection, TypeAsset, TypeCategory}
	for _, rt := range valid {
		assert.True(t, rt.IsValid(), rt)
	}
	assert.False(t, ResourceType("variant").IsValid())
	assert.Equal(t, "product", TypeProduct.String())
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource(" Shopify ")
	assert.NoError(t, err)
	assert.Equal(t, SourceShopify, src)

	_, err = ParseSource("github")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestParseResourceType(t *testing.T) {
	rt, err := ParseResourceType("Product")
	assert.NoError(t, err)
	assert.Equal(t, TypeProduct, rt)

	rt, err = ParseResourceType("")
	assert.NoError(t, err)
	assert.Empty(t, rt)

	_, err = ParseResourceType("variant")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseStagedStatus(t *testing.T) {
	st, err := ParseStagedStatus("pending")
	assert.NoError(t, err)
	assert.Equal(t, StagedPending, st)

	st, err = ParseStagedStatus("FAILED")
	assert.NoError(t, err)
	assert.Equal(t, StagedFailed, st)

	_, err = ParseStagedStatus("approved")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
