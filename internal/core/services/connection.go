package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-hub/internal/logger"
)

// Ensure ConnectionService implements the interface.
var _ driving.ConnectionService = (*ConnectionService)(nil)

// ConnectionService manages platform connections.
type ConnectionService struct {
	store    driven.ConnectionStore
	registry driven.AdapterRegistry
	now      func() time.Time
}

// NewConnectionService creates a connection service.
func NewConnectionService(store driven.ConnectionStore, registry driven.AdapterRegistry) *ConnectionService {
	return &ConnectionService{
		store:    store,
		registry: registry,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Add validates conn against its adapter and stores it. A connection with
// the same (tenant, source, source site) is replaced.
func (s *ConnectionService) Add(ctx context.Context, conn *domain.Connection) (*domain.Connection, error) {
	if conn == nil {
		return nil, fmt.Errorf("add connection: %w: connection is required", domain.ErrInvalidInput)
	}
	c := *conn
	c.TenantID = strings.TrimSpace(c.TenantID)
	c.SourceSite = strings.TrimSpace(c.SourceSite)
	if c.TenantID == "" {
		return nil, fmt.Errorf("add connection: %w: tenant id is required", domain.ErrInvalidInput)
	}
	if !c.Source.IsValid() {
		return nil, fmt.Errorf("add connection: %w: %q", domain.ErrUnsupportedSource, c.Source)
	}

	adapter, err := s.registry.Get(c.Source)
	if err != nil {
		return nil, fmt.Errorf("add connection: %w", err)
	}
	// A Shopify store is its own site.
	if c.SourceSite == "" && c.Source == domain.SourceShopify {
		c.SourceSite = c.Param(domain.ParamStoreDomain)
	}
	if err := adapter.ValidateConnection(&c); err != nil {
		return nil, fmt.Errorf("add connection: %w", err)
	}

	now := s.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if err := s.store.Save(ctx, &c); err != nil {
		return nil, fmt.Errorf("add connection: %w", err)
	}

	logger.Info("Added %s connection %s for tenant %s", c.Source, c.ID, c.TenantID)
	return &c, nil
}

// List returns a tenant's connections. An empty source lists every source.
func (s *ConnectionService) List(ctx context.Context, tenantID string, source domain.Source) ([]*domain.Connection, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("list connections: %w: tenant id is required", domain.ErrInvalidInput)
	}
	if source != "" {
		if !source.IsValid() {
			return nil, fmt.Errorf("list connections: %w: %q", domain.ErrUnsupportedSource, source)
		}
		return s.store.List(ctx, tenantID, source)
	}

	var out []*domain.Connection
	for _, src := range domain.Sources() {
		conns, err := s.store.List(ctx, tenantID, src)
		if err != nil {
			return nil, fmt.Errorf("list %s connections: %w", src, err)
		}
		out = append(out, conns...)
	}
	return out, nil
}

// Remove deletes a connection. Resources already pulled through it stay.
func (s *ConnectionService) Remove(ctx context.Context, tenantID, id string) error {
	if tenantID == "" || id == "" {
		return fmt.Errorf("remove connection: %w: tenant and id are required", domain.ErrInvalidInput)
	}
	if err := s.store.Delete(ctx, tenantID, id); err != nil {
		return fmt.Errorf("remove connection %s: %w", id, err)
	}
	return nil
}
