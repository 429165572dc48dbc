package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-hub/internal/logger"
)

// Ensure EnrichmentService implements the interface.
var _ driving.EnrichmentService = (*EnrichmentService)(nil)

// DefaultEnrichmentConcurrency bounds parallel provider calls.
const DefaultEnrichmentConcurrency = 4

// EnrichmentConfig wires the embedding providers.
type EnrichmentConfig struct {
	// Provider is the configured embedding service. Nil, or the same
	// service as Fallback, means only deterministic embeddings are made.
	Provider driven.EmbeddingService

	// Fallback is the deterministic provider. Required.
	Fallback driven.EmbeddingService

	// Concurrency bounds parallel embeddings per Enrich call.
	Concurrency int

	// FallbackOnError substitutes Fallback when Provider fails.
	// Otherwise the resource is left pending.
	FallbackOnError bool

	// Dimensions, when positive, rejects provider vectors of another width.
	Dimensions int
}

// EnrichmentService embeds stored resources and writes back only the vector.
type EnrichmentService struct {
	store driven.ResourceStore
	queue driven.JobQueue
	cfg   EnrichmentConfig
}

// NewEnrichmentService creates an enrichment service. A nil queue makes
// Enqueue run Enrich inline.
func NewEnrichmentService(store driven.ResourceStore, queue driven.JobQueue, cfg EnrichmentConfig) (*EnrichmentService, error) {
	if cfg.Fallback == nil {
		return nil, errors.New("enrichment: fallback provider is required")
	}
	if cfg.Provider == cfg.Fallback {
		cfg.Provider = nil
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultEnrichmentConcurrency
	}
	return &EnrichmentService{store: store, queue: queue, cfg: cfg}, nil
}

// Enqueue schedules enrichment of ids.
func (s *EnrichmentService) Enqueue(ctx context.Context, tenantID string, ids []string) error {
	if tenantID == "" {
		return fmt.Errorf("enqueue enrichment: %w: tenant id is required", domain.ErrInvalidInput)
	}
	if len(ids) == 0 {
		return nil
	}
	if s.queue == nil {
		_, err := s.Enrich(ctx, tenantID, ids)
		return err
	}
	task := driven.Task{Kind: driven.TaskEnrich, TenantID: tenantID, ResourceIDs: append([]string(nil), ids...)}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("enqueue enrichment: %w", err)
	}
	return nil
}

// Enrich embeds each resource. Failures are counted per id and never stop
// the others; only cancellation of ctx aborts the run.
func (s *EnrichmentService) Enrich(ctx context.Context, tenantID string, ids []string) (*domain.EnrichmentResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("enrich: %w: tenant id is required", domain.ErrInvalidInput)
	}

	var (
		mu     sync.Mutex
		result domain.EnrichmentResult
	)
	count := func(field *int) {
		mu.Lock()
		*field++
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, id := range dedupe(ids) {
		g.Go(func() error {
			outcome, err := s.enrichOne(gctx, tenantID, id)
			if err != nil {
				return err
			}
			switch outcome {
			case outcomeEmbedded:
				count(&result.Embedded)
			case outcomeFallback:
				count(&result.Fallback)
			case outcomeMissing:
				count(&result.Missing)
			default:
				count(&result.Pending)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &result, fmt.Errorf("enrich: %w", err)
	}

	logger.Debug("Enriched tenant %s: %d embedded, %d fallback, %d pending, %d missing",
		tenantID, result.Embedded, result.Fallback, result.Pending, result.Missing)
	return &result, nil
}

type outcome int

const (
	outcomePending outcome = iota
	outcomeEmbedded
	outcomeFallback
	outcomeMissing
)

// enrichOne returns an error only for context cancellation.
func (s *EnrichmentService) enrichOne(ctx context.Context, tenantID, id string) (outcome, error) {
	res, err := s.store.Get(ctx, tenantID, id)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcomePending, ctxErr
		}
		if errors.Is(err, domain.ErrNotFound) {
			return outcomeMissing, nil
		}
		logger.Warn("enrich %s: load: %v", id, err)
		return outcomePending, nil
	}

	text := res.EmbeddingText()
	vec, result, err := s.embed(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcomePending, ctxErr
		}
		logger.Warn("enrich %s: %v", id, err)
		return outcomePending, nil
	}

	if err := s.store.SetEmbedding(ctx, tenantID, id, vec); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcomePending, ctxErr
		}
		if errors.Is(err, domain.ErrNotFound) {
			return outcomeMissing, nil
		}
		logger.Warn("enrich %s: write: %v", id, err)
		return outcomePending, nil
	}
	return result, nil
}

func (s *EnrichmentService) embed(ctx context.Context, text string) ([]float32, outcome, error) {
	if s.cfg.Provider == nil {
		vec, err := s.cfg.Fallback.Embed(ctx, text)
		return vec, outcomeFallback, err
	}

	vec, err := s.cfg.Provider.Embed(ctx, text)
	if err == nil && s.cfg.Dimensions > 0 && len(vec) != s.cfg.Dimensions {
		err = &domain.ProviderError{
			Provider: s.cfg.Provider.ModelName(),
			Err:      fmt.Errorf("got %d dimensions, want %d", len(vec), s.cfg.Dimensions),
		}
	}
	if err == nil {
		return vec, outcomeEmbedded, nil
	}
	if ctx.Err() != nil || !s.cfg.FallbackOnError {
		return nil, outcomePending, err
	}

	logger.Debug("Provider failed, using deterministic embedding: %v", err)
	vec, err = s.cfg.Fallback.Embed(ctx, text)
	return vec, outcomeFallback, err
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
