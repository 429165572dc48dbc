package driving

import (
	"context"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// SiteIntegrationService manages per-site instrumentation configuration.
type SiteIntegrationService interface {
	// Get returns the integration or an error wrapping domain.ErrNotFound.
	Get(ctx context.Context, tenantID, siteID string) (*domain.SiteIntegration, error)

	// Upsert applies a partial update, creating the row when absent.
	Upsert(ctx context.Context, tenantID, siteID string, patch domain.SiteIntegrationPatch) (*domain.SiteIntegration, error)
}
