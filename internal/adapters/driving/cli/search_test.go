package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

func testResources() []*domain.HubResource {
	price := 19.5
	return []*domain.HubResource{
		{
			ID: "r1", TenantID: "default", Source: domain.SourceWordPress, SourceSite: "blog.example.com",
			SourceID: "42", Type: domain.TypePost, Title: "Hello World", Slug: "hello-world",
			BodyText: "Welcome to the blog.", Tags: []string{"news"},
			UpdatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID: "r2", TenantID: "default", Source: domain.SourceShopify, SourceID: "9001",
			Type: domain.TypeProduct, Title: "Blue Shoes", Price: &price, Currency: "EUR",
			UpdatedAt: time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
		},
	}
}

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestSearchCmd_RejectsTwoArgs(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "search", "a", "b")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg(s)")
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	s := setupTestServices(t)
	s.resources.resources = testResources()

	out, err := executeCommand(t, "search", "hello")

	require.NoError(t, err)
	assert.Equal(t, "hello", s.resources.gotQuery)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] Hello World (post)")
	assert.Contains(t, out, "wordpress blog.example.com  id=r1")
	assert.Contains(t, out, "[2] Blue Shoes (product)")
}

func TestSearchCmd_TypeFilter(t *testing.T) {
	s := setupTestServices(t)

	_, err := executeCommand(t, "search", "--type", "Product", "shoes")

	require.NoError(t, err)
	assert.Equal(t, domain.TypeProduct, s.resources.gotType)
}

func TestSearchCmd_UnknownType(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "search", "--type", "widget", "shoes")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchCmd_Limit(t *testing.T) {
	s := setupTestServices(t)
	s.resources.resources = testResources()

	out, err := executeCommand(t, "search", "-n", "1", "x")

	require.NoError(t, err)
	assert.Contains(t, out, "Hello World")
	assert.NotContains(t, out, "Blue Shoes")
}

func TestSearchCmd_NoResults(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "search", "nothing")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	s := setupTestServices(t)
	s.resources.resources = testResources()
	s.resources.resources[0].Embedding = []float32{0.1, 0.2}

	out, err := executeCommand(t, "search", "--json", "x")

	require.NoError(t, err)
	assert.Contains(t, out, `"id": "r1"`)
	assert.Contains(t, out, `"source": "wordpress"`)
	assert.NotContains(t, out, "embedding")
}

func TestSearchCmd_ServiceError(t *testing.T) {
	s := setupTestServices(t)
	s.resources.err = errors.New("db down")

	_, err := executeCommand(t, "search", "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "search failed: db down")
}

func TestGetCmd_PrintsResource(t *testing.T) {
	s := setupTestServices(t)
	s.resources.resources = testResources()

	out, err := executeCommand(t, "get", "r2")

	require.NoError(t, err)
	assert.Contains(t, out, "ID:       r2")
	assert.Contains(t, out, "Origin:   default/shopify//9001")
	assert.Contains(t, out, "Price:    19.50 EUR")
	assert.Contains(t, out, "Enriched: no")
}

func TestGetCmd_NotFound(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "get", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
