package driving

import (
	"context"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// ResourceService exposes tenant-scoped reads over canonical resources.
type ResourceService interface {
	// Get returns a resource or domain.ErrNotFound.
	Get(ctx context.Context, tenantID, id string) (*domain.HubResource, error)

	// Search returns resources matching the optional text query and type,
	// ranked when a query is present and ordered by recency otherwise.
	Search(ctx context.Context, tenantID, query string, resourceType domain.ResourceType) ([]*domain.HubResource, error)
}

// ConnectionService manages platform connections.
type ConnectionService interface {
	// Add validates and stores a connection.
	Add(ctx context.Context, conn *domain.Connection) (*domain.Connection, error)

	// List returns a tenant's connections. An empty source lists all sources.
	List(ctx context.Context, tenantID string, source domain.Source) ([]*domain.Connection, error)

	// Remove deletes a connection.
	Remove(ctx context.Context, tenantID, id string) error
}
