package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// Ensure SiteIntegrationStore implements the interface.
var _ driven.SiteIntegrationStore = (*SiteIntegrationStore)(nil)

type siteKey struct{ tenantID, siteID string }

// SiteIntegrationStore is an in-memory implementation of driven.SiteIntegrationStore.
type SiteIntegrationStore struct {
	mu    sync.RWMutex
	sites map[siteKey]domain.SiteIntegration
}

// NewSiteIntegrationStore creates a new in-memory site integration store.
func NewSiteIntegrationStore() *SiteIntegrationStore {
	return &SiteIntegrationStore{
		sites: make(map[siteKey]domain.SiteIntegration),
	}
}

// Get retrieves the integration for a tenant's site.
func (s *SiteIntegrationStore) Get(_ context.Context, tenantID, siteID string) (*domain.SiteIntegration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[siteKey{tenantID, siteID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	site.SessionReplayMaskSelectors = slices.Clone(site.SessionReplayMaskSelectors)
	return &site, nil
}

// Save creates or replaces the integration for a tenant's site.
func (s *SiteIntegrationStore) Save(_ context.Context, integration *domain.SiteIntegration) error {
	if integration.TenantID == "" || integration.SiteID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *integration
	stored.SessionReplayMaskSelectors = slices.Clone(integration.SessionReplayMaskSelectors)
	s.sites[siteKey{integration.TenantID, integration.SiteID}] = stored
	return nil
}
