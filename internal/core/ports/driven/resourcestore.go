package driven

import (
	"context"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// ResourceStore persists canonical resources.
// Every operation is scoped to exactly one tenant; there is no all-tenants mode.
type ResourceStore interface {
	// Upsert inserts each resource or merges it into the row with the same
	// origin key. A merge overwrites every canonical field except the
	// embedding and keeps the existing id. Resources whose tenant differs
	// from tenantID abort the call with *domain.AuthorizationError.
	// Returns the stored resources in input order.
	Upsert(ctx context.Context, tenantID string, resources []*domain.HubResource) ([]*domain.HubResource, error)

	// Get returns a resource or domain.ErrNotFound. A resource owned by
	// another tenant is reported exactly as a missing one.
	Get(ctx context.Context, tenantID, id string) (*domain.HubResource, error)

	// Search returns resources matching q ordered by updated_at descending.
	// An empty result is not an error.
	Search(ctx context.Context, tenantID string, q domain.ResourceQuery) ([]*domain.HubResource, error)

	// SetEmbedding updates only the embedding of a resource.
	SetEmbedding(ctx context.Context, tenantID, id string, embedding []float32) error

	// Close releases resources.
	Close() error
}
