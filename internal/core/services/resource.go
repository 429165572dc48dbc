package services

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-hub/internal/logger"
)

// Ensure ResourceService implements the interface.
var _ driving.ResourceService = (*ResourceService)(nil)

// Ranker scores a matched resource against a query. Higher is better.
// queryVec is nil when no embedding service is configured.
type Ranker interface {
	Score(query string, queryVec []float32, res *domain.HubResource) float64
}

// Field weights for lexical ranking. Title hits dominate body hits.
const (
	weightTitle = 3.0
	weightTag   = 2.0
	weightSlug  = 1.5
	weightBody  = 1.0

	// semanticWeight scales cosine similarity into the lexical range.
	semanticWeight = 2.0
)

// HybridRanker combines lexical field hits with cosine similarity when
// both vectors are available.
type HybridRanker struct{}

// Score implements Ranker.
func (HybridRanker) Score(query string, queryVec []float32, res *domain.HubResource) float64 {
	score := lexicalScore(query, res)
	if len(queryVec) > 0 && len(queryVec) == len(res.Embedding) {
		score += semanticWeight * cosine(queryVec, res.Embedding)
	}
	return score
}

func lexicalScore(query string, res *domain.HubResource) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}
	title := strings.ToLower(res.Title)
	slug := strings.ToLower(res.Slug)
	body := strings.ToLower(res.BodyText)

	var score float64
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += weightTitle
		}
		if strings.Contains(slug, term) {
			score += weightSlug
		}
		for _, tag := range res.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				score += weightTag
				break
			}
		}
		if n := strings.Count(body, term); n > 0 {
			// Diminishing returns for repeated body hits.
			score += weightBody * math.Log1p(float64(n))
		}
	}
	return score / float64(len(terms))
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ResourceService serves tenant-scoped reads.
type ResourceService struct {
	store    driven.ResourceStore
	embedder driven.EmbeddingService
	ranker   Ranker
	limit    int
}

// rankPoolFactor sizes the candidate pool a text search ranks, as a
// multiple of the result limit.
const rankPoolFactor = 5

// ResourceOption configures a ResourceService.
type ResourceOption func(*ResourceService)

// WithRanker replaces the default HybridRanker.
func WithRanker(r Ranker) ResourceOption {
	return func(s *ResourceService) {
		if r != nil {
			s.ranker = r
		}
	}
}

// WithQueryEmbedder enables semantic ranking of text queries.
func WithQueryEmbedder(e driven.EmbeddingService) ResourceOption {
	return func(s *ResourceService) { s.embedder = e }
}

// WithSearchLimit caps search results.
func WithSearchLimit(n int) ResourceOption {
	return func(s *ResourceService) { s.limit = n }
}

// NewResourceService creates a resource service.
func NewResourceService(store driven.ResourceStore, opts ...ResourceOption) *ResourceService {
	s := &ResourceService{store: store, ranker: HybridRanker{}, limit: domain.DefaultSearchLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns one resource.
func (s *ResourceService) Get(ctx context.Context, tenantID, id string) (*domain.HubResource, error) {
	if tenantID == "" || id == "" {
		return nil, fmt.Errorf("get resource: %w: tenant and id are required", domain.ErrInvalidInput)
	}
	res, err := s.store.Get(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get resource %s: %w", id, err)
	}
	return res, nil
}

// Search filters by query and type. A text query ranks matches; otherwise
// results keep the store's recency order.
func (s *ResourceService) Search(ctx context.Context, tenantID, query string, resourceType domain.ResourceType) ([]*domain.HubResource, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("search: %w: tenant id is required", domain.ErrInvalidInput)
	}
	if resourceType != "" && !resourceType.IsValid() {
		return nil, fmt.Errorf("search: %w: unknown type %q", domain.ErrInvalidInput, resourceType)
	}

	query = strings.TrimSpace(query)
	limit := domain.ResourceQuery{Limit: s.limit}.EffectiveLimit()
	fetch := limit
	if query != "" {
		// Stores return matches newest first; rank a wider pool so an older,
		// better match is not cut before scoring.
		fetch = limit * rankPoolFactor
	}
	results, err := s.store.Search(ctx, tenantID, domain.ResourceQuery{
		Text:  query,
		Type:  resourceType,
		Limit: fetch,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if query == "" || len(results) < 2 {
		return truncate(results, limit), nil
	}

	var queryVec []float32
	if s.embedder != nil {
		queryVec, err = s.embedder.Embed(ctx, query)
		if err != nil {
			logger.Debug("query embedding unavailable, ranking lexically: %v", err)
			queryVec = nil
		}
	}

	scores := make(map[*domain.HubResource]float64, len(results))
	for _, r := range results {
		scores[r] = s.ranker.Score(query, queryVec, r)
	}
	// Stable sort keeps recency order between equal scores.
	slices.SortStableFunc(results, func(a, b *domain.HubResource) int {
		switch sa, sb := scores[a], scores[b]; {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		default:
			return 0
		}
	})
	return truncate(results, limit), nil
}

func truncate(results []*domain.HubResource, limit int) []*domain.HubResource {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

