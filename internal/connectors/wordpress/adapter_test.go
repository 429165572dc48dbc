package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
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
		Source:     domain.SourceWordPress,
		SourceSite: "blog1",
		Params:     map[string]string{domain.ParamBaseURL: base, domain.ParamAccessToken: "secret"},
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(conn("https://blog.example.com/"))
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.com/wp-json", cfg.APIBase)
	assert.Equal(t, DefaultRoutes, cfg.Routes)

	c := conn("https://blog.example.com/wp-json")
	c.Params[domain.ParamPostTypes] = "posts, product"
	cfg, err = ParseConfig(c)
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.com/wp-json", cfg.APIBase)
	assert.Equal(t, []string{"posts", "product"}, cfg.Routes)

	c.Params[domain.ParamPostTypes] = "comments"
	_, err = ParseConfig(c)
	assert.ErrorIs(t, err, ErrInvalidRoute)

	_, err = ParseConfig(&domain.Connection{SourceSite: "blog1"})
	assert.ErrorIs(t, err, ErrMissingBaseURL)

	noSite := conn("https://blog.example.com")
	noSite.SourceSite = ""
	assert.ErrorIs(t, New().ValidateConnection(noSite), ErrMissingSite)
}

func TestCursor_RoundTrip(t *testing.T) {
	c := &Cursor{Version: CursorVersion, Route: 1, Page: 3}
	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.Equal(t, c, decoded)

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestPull_PaginatesRoutes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "edit", r.URL.Query().Get("context"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		page := r.URL.Query().Get("page")
		switch r.URL.Path {
		case "/wp-json/wp/v2/posts":
			w.Header().Set("X-WP-TotalPages", "2")
			_, _ = fmt.Fprintf(w, `[{"id": %s0, "type": "post"}]`, page)
		case "/wp-json/wp/v2/pages":
			w.Header().Set("X-WP-TotalPages", "1")
			_, _ = w.Write([]byte(`[{"id": 900, "type": "page"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	a := fastAdapter()
	var ids []string
	cursor := ""
	for i := 0; i < 10; i++ {
		batch, err := a.Pull(context.Background(), conn(server.URL), cursor)
		require.NoError(t, err)
		for _, rec := range batch.Records {
			res, err := a.Map(rec, "T", "blog1")
			require.NoError(t, err)
			ids = append(ids, res.SourceID)
		}
		if batch.Done() {
			break
		}
		cursor = batch.Cursor
	}

	assert.Equal(t, []string{"10", "20", "900"}, ids)
}

func TestPull_RecordsWithoutTypeMapByRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WP-TotalPages", "1")
		_, _ = w.Write([]byte(`[{"id": 7, "title": "Hello"}]`))
	}))
	defer server.Close()

	c := conn(server.URL)
	c.Params[domain.ParamPostTypes] = "pages"
	a := fastAdapter()
	batch, err := a.Pull(context.Background(), c, "")
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	assert.Equal(t, "pages", batch.Records[0][RouteField])

	res, err := a.Map(batch.Records[0], "T", "blog1")
	require.NoError(t, err)
	assert.Equal(t, domain.TypePage, res.Type)
	assert.Equal(t, "7", res.SourceID)
}

func TestPull_SurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := fastAdapter().Pull(context.Background(), conn(server.URL), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestPush_PostsToRoute(t *testing.T) {
	var mu sync.Mutex
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"id": 42}`))
	}))
	defer server.Close()

	payload := domain.OriginPayload{RouteField: "pages", "title": "New"}
	require.NoError(t, fastAdapter().Push(context.Background(), conn(server.URL), "42", payload))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/wp-json/wp/v2/pages/42", gotPath)
	assert.Equal(t, map[string]any{"title": "New"}, gotBody)
}
