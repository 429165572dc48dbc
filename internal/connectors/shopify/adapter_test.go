package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-hub/internal/connectors/httpapi"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

func fastAdapter() *Adapter {
	return New(WithHTTPOptions(httpapi.Options{
		RateLimit:     httpapi.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 100},
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: time.Millisecond,
	}))
}

func conn(base string) *domain.Connection {
	return &domain.Connection{
		TenantID:   "T",
		Source:     domain.SourceShopify,
		SourceSite: "acme.myshopify.com",
		Params: map[string]string{
			domain.ParamStoreDomain: "acme.myshopify.com",
			domain.ParamAccessToken: "shpat_secret",
			domain.ParamBaseURL:     base,
		},
	}
}

type gqlCall struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(&domain.Connection{Params: map[string]string{
		domain.ParamStoreDomain: "acme.myshopify.com",
		domain.ParamAccessToken: "tok",
	}})
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIVersion, cfg.APIVersion)
	assert.Equal(t, "https://acme.myshopify.com/admin/api/2024-10/graphql.json", cfg.GraphQLURL())

	_, err = ParseConfig(&domain.Connection{Params: map[string]string{domain.ParamAccessToken: "tok"}})
	assert.ErrorIs(t, err, ErrMissingStoreDomain)

	_, err = ParseConfig(&domain.Connection{SourceSite: "acme.myshopify.com"})
	assert.ErrorIs(t, err, ErrMissingAccessToken)
}

func TestPull_FollowsEndCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat_secret", r.Header.Get(accessTokenHeader))
		assert.Equal(t, "/admin/api/2024-10/graphql.json", r.URL.Path)

		var call gqlCall
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&call))
		assert.Contains(t, call.Query, "products(first: $first, after: $after)")
		assert.EqualValues(t, PageSize, call.Variables["first"])

		switch call.Variables["after"] {
		case nil:
			_, _ = w.Write([]byte(`{"data": {"shop": {"currencyCode": "USD"}, "products": {
				"pageInfo": {"hasNextPage": true, "endCursor": "c1"},
				"edges": [{"node": {"id": "gid://shopify/Product/1", "title": "One",
					"variants": {"edges": [{"node": {"price": "19.99"}}]},
					"images": {"edges": [{"node": {"url": "https://cdn/1.jpg"}}]}}}]}}}`))
		case "c1":
			_, _ = w.Write([]byte(`{"data": {"shop": {"currencyCode": "USD"}, "products": {
				"pageInfo": {"hasNextPage": false, "endCursor": "c2"},
				"edges": [{"node": {"id": "gid://shopify/Product/2", "title": "Two"}}]}}}`))
		default:
			t.Errorf("unexpected cursor %v", call.Variables["after"])
		}
	}))
	defer server.Close()

	a := fastAdapter()
	c := conn(server.URL)

	first, err := a.Pull(context.Background(), c, "")
	require.NoError(t, err)
	require.Len(t, first.Records, 1)
	assert.Equal(t, "c1", first.Cursor)
	assert.False(t, first.Done())

	res, err := a.Map(first.Records[0], "T", c.SourceSite)
	require.NoError(t, err)
	require.NotNil(t, res.Price)
	assert.InDelta(t, 19.99, *res.Price, 1e-9)
	assert.Equal(t, "USD", res.Currency)
	assert.Equal(t, []string{"https://cdn/1.jpg"}, res.Images)

	second, err := a.Pull(context.Background(), c, first.Cursor)
	require.NoError(t, err)
	require.Len(t, second.Records, 1)
	assert.True(t, second.Done())
}

func TestPull_GraphQLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [{"message": "Throttled"}]}`))
	}))
	defer server.Close()

	_, err := fastAdapter().Pull(context.Background(), conn(server.URL), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGraphQL)
	assert.Contains(t, err.Error(), "Throttled")
}

func TestPull_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := fastAdapter().Pull(context.Background(), conn(server.URL), "")
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

// fakeStore keeps product titles and applies productUpdate mutations.
type fakeStore struct {
	mu     sync.Mutex
	titles map[string]string
}

func (s *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var call gqlCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !strings.Contains(call.Query, "productUpdate") {
		http.Error(w, "unexpected query", http.StatusBadRequest)
		return
	}
	input, _ := call.Variables["input"].(map[string]any)
	id, _ := input["id"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.titles[id]; !ok {
		_, _ = w.Write([]byte(`{"data": {"productUpdate": {"product": null,
			"userErrors": [{"field": ["id"], "message": "Product does not exist"}]}}}`))
		return
	}
	if title, ok := input["title"].(string); ok {
		s.titles[id] = title
	}
	_, _ = w.Write([]byte(`{"data": {"productUpdate": {"product": {"id": "` + id + `"}, "userErrors": []}}}`))
}

func TestPush_UpdatesProduct(t *testing.T) {
	store := &fakeStore{titles: map[string]string{"gid://shopify/Product/1": "Old"}}
	server := httptest.NewServer(store)
	defer server.Close()

	a := fastAdapter()
	res := &domain.HubResource{Type: domain.TypeProduct, SourceID: "gid://shopify/Product/1", Title: "New"}
	title := "New"
	payload, err := a.ToOrigin(res, domain.FieldDiff{Title: &title})
	require.NoError(t, err)

	require.NoError(t, a.Push(context.Background(), conn(server.URL), res.SourceID, payload))
	assert.Equal(t, "New", store.titles["gid://shopify/Product/1"])
}

func TestPush_UserErrors(t *testing.T) {
	server := httptest.NewServer(&fakeStore{titles: map[string]string{}})
	defer server.Close()

	err := fastAdapter().Push(context.Background(), conn(server.URL), "gid://shopify/Product/9",
		domain.OriginPayload{"title": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGraphQL)
	assert.Contains(t, err.Error(), "id: Product does not exist")
}
