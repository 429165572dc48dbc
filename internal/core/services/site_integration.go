package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
)

// Ensure SiteIntegrationService implements the interface.
var _ driving.SiteIntegrationService = (*SiteIntegrationService)(nil)

// SiteIntegrationService manages per-site instrumentation settings.
type SiteIntegrationService struct {
	store driven.SiteIntegrationStore
	now   func() time.Time
}

// NewSiteIntegrationService creates a site integration service.
func NewSiteIntegrationService(store driven.SiteIntegrationStore) *SiteIntegrationService {
	return &SiteIntegrationService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the integration for a site.
func (s *SiteIntegrationService) Get(ctx context.Context, tenantID, siteID string) (*domain.SiteIntegration, error) {
	si, err := s.store.Get(ctx, tenantID, strings.TrimSpace(siteID))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("site %q is not configured: %w", siteID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get site integration: %w", err)
	}
	return si, nil
}

// Upsert applies patch, creating the integration when absent.
// Fields left nil in the patch keep their stored values.
func (s *SiteIntegrationService) Upsert(ctx context.Context, tenantID, siteID string, patch domain.SiteIntegrationPatch) (*domain.SiteIntegration, error) {
	siteID = strings.TrimSpace(siteID)
	now := s.now()

	si, err := s.store.Get(ctx, tenantID, siteID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		si = &domain.SiteIntegration{TenantID: tenantID, SiteID: siteID, CreatedAt: now}
	case err != nil:
		return nil, fmt.Errorf("get site integration: %w", err)
	}

	patch.ApplyTo(si)
	si.UpdatedAt = now
	if err := si.Validate(); err != nil {
		return nil, fmt.Errorf("upsert site integration: %w", err)
	}
	if err := s.store.Save(ctx, si); err != nil {
		return nil, fmt.Errorf("save site integration: %w", err)
	}
	return si, nil
}
