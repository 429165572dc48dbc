package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// ConnectionStore persists platform connections.
type ConnectionStore interface {
	// Save creates or updates a connection keyed by (tenant, source, source site).
	Save(ctx context.Context, conn *domain.Connection) error

	// List returns a tenant's connections for source.
	List(ctx context.Context, tenantID string, source domain.Source) ([]*domain.Connection, error)

	// ListAll returns every connection across tenants, for the scheduler.
	ListAll(ctx context.Context) ([]*domain.Connection, error)

	// Delete removes a connection.
	Delete(ctx context.Context, tenantID, id string) error
}

// SyncJobStore persists sync job summaries.
type SyncJobStore interface {
	// Save creates or updates a job.
	Save(ctx context.Context, job *domain.SyncJob) error

	// Get returns a job or domain.ErrNotFound.
	Get(ctx context.Context, tenantID, id string) (*domain.SyncJob, error)

	// Latest returns the most recently queued job for (tenant, source).
	Latest(ctx context.Context, tenantID string, source domain.Source) (*domain.SyncJob, error)
}

// StagingStore persists push-back payloads awaiting approval.
type StagingStore interface {
	// Save creates or updates a staged payload.
	Save(ctx context.Context, staged *domain.StagedPush) error

	// Get returns a staged payload or domain.ErrNotFound.
	Get(ctx context.Context, tenantID, id string) (*domain.StagedPush, error)

	// List returns a tenant's staged payloads, newest first.
	// An empty status lists every status.
	List(ctx context.Context, tenantID string, status domain.StagedStatus) ([]*domain.StagedPush, error)

	// Claim atomically moves a claimable payload (see StagedPush.Claimable)
	// to sending, increments Attempts and sets UpdatedAt to at. Exactly one
	// of several concurrent callers succeeds; the others get
	// domain.ErrInvalidTransition. A missing payload is domain.ErrNotFound.
	Claim(ctx context.Context, tenantID, id string, at, staleBefore time.Time) (*domain.StagedPush, error)
}

// SiteIntegrationStore persists site instrumentation configuration.
type SiteIntegrationStore interface {
	// Get returns the integration or domain.ErrNotFound.
	Get(ctx context.Context, tenantID, siteID string) (*domain.SiteIntegration, error)

	// Save creates or replaces the integration for (tenant, site).
	Save(ctx context.Context, integration *domain.SiteIntegration) error
}
