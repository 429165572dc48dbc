package driving

import (
	"context"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// EnrichmentService computes embeddings for stored resources.
type EnrichmentService interface {
	// Enqueue schedules enrichment of ids as a background task.
	Enqueue(ctx context.Context, tenantID string, ids []string) error

	// Enrich embeds each resource and writes back only its embedding.
	// A failure for one id does not block the others.
	Enrich(ctx context.Context, tenantID string, ids []string) (*domain.EnrichmentResult, error)
}
