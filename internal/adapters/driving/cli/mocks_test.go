package cli

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
)

// mockResourceService is a mock implementation of driving.ResourceService.
type mockResourceService struct {
	resources []*domain.HubResource
	err       error

	gotTenant string
	gotQuery  string
	gotType   domain.ResourceType
}

var _ driving.ResourceService = (*mockResourceService)(nil)

func (m *mockResourceService) Get(_ context.Context, tenantID, id string) (*domain.HubResource, error) {
	m.gotTenant = tenantID
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.resources {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockResourceService) Search(
	_ context.Context,
	tenantID, query string,
	resourceType domain.ResourceType,
) ([]*domain.HubResource, error) {
	m.gotTenant, m.gotQuery, m.gotType = tenantID, query, resourceType
	return m.resources, m.err
}

// mockConnectionService is a mock implementation of driving.ConnectionService.
type mockConnectionService struct {
	conns []*domain.Connection
	err   error

	added     *domain.Connection
	removed   string
	gotSource domain.Source
}

var _ driving.ConnectionService = (*mockConnectionService)(nil)

func (m *mockConnectionService) Add(_ context.Context, conn *domain.Connection) (*domain.Connection, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.added = conn
	out := *conn
	out.ID = "conn-1"
	return &out, nil
}

func (m *mockConnectionService) List(_ context.Context, _ string, source domain.Source) ([]*domain.Connection, error) {
	m.gotSource = source
	return m.conns, m.err
}

func (m *mockConnectionService) Remove(_ context.Context, _, id string) error {
	m.removed = id
	return m.err
}

// mockSyncOrchestrator is a mock implementation of driving.SyncOrchestrator.
// Status returns the queued jobs in order and then repeats the last one.
type mockSyncOrchestrator struct {
	mu       sync.Mutex
	statuses []*domain.SyncJob
	queued   int
	err      error

	triggered domain.Source
	cancelled domain.Source
}

var _ driving.SyncOrchestrator = (*mockSyncOrchestrator)(nil)

func (m *mockSyncOrchestrator) TriggerSync(_ context.Context, tenantID string, source domain.Source) (*domain.SyncAck, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.triggered = source
	return &domain.SyncAck{JobID: "job-1", TenantID: tenantID, Source: source, Accepted: true}, nil
}

func (m *mockSyncOrchestrator) Run(_ context.Context, _, _ string) (*domain.SyncJob, error) {
	return nil, m.err
}

func (m *mockSyncOrchestrator) SyncAll(_ context.Context) (int, error) {
	return m.queued, m.err
}

func (m *mockSyncOrchestrator) Cancel(_ string, source domain.Source) error {
	m.cancelled = source
	return m.err
}

func (m *mockSyncOrchestrator) Status(_ context.Context, tenantID string, source domain.Source) (*domain.SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.statuses) == 0 {
		return &domain.SyncJob{TenantID: tenantID, Source: source, State: domain.JobIdle}, nil
	}
	job := m.statuses[0]
	if len(m.statuses) > 1 {
		m.statuses = m.statuses[1:]
	}
	return job, nil
}

// mockEnrichmentService is a mock implementation of driving.EnrichmentService.
type mockEnrichmentService struct {
	result *domain.EnrichmentResult
	err    error
	gotIDs []string
}

var _ driving.EnrichmentService = (*mockEnrichmentService)(nil)

func (m *mockEnrichmentService) Enqueue(_ context.Context, _ string, ids []string) error {
	m.gotIDs = ids
	return m.err
}

func (m *mockEnrichmentService) Enrich(_ context.Context, _ string, ids []string) (*domain.EnrichmentResult, error) {
	m.gotIDs = ids
	return m.result, m.err
}

// mockPushbackService is a mock implementation of driving.PushbackService.
type mockPushbackService struct {
	staged    []*domain.StagedPush
	err       error
	gotDiff   domain.FieldDiff
	gotStatus domain.StagedStatus
}

var _ driving.PushbackService = (*mockPushbackService)(nil)

func (m *mockPushbackService) Stage(
	_ context.Context,
	tenantID, resourceID string,
	diff domain.FieldDiff,
) (*domain.StagedPush, error) {
	m.gotDiff = diff
	if m.err != nil {
		return nil, m.err
	}
	return &domain.StagedPush{
		ID: "stg-1", TenantID: tenantID, ResourceID: resourceID,
		Source: domain.SourceWordPress, SourceID: "42", Diff: diff, Status: domain.StagedPending,
	}, nil
}

func (m *mockPushbackService) find(id string) *domain.StagedPush {
	for _, p := range m.staged {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *mockPushbackService) Get(_ context.Context, _, id string) (*domain.StagedPush, error) {
	if p := m.find(id); p != nil {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockPushbackService) List(_ context.Context, _ string, status domain.StagedStatus) ([]*domain.StagedPush, error) {
	m.gotStatus = status
	return m.staged, m.err
}

func (m *mockPushbackService) Commit(_ context.Context, _, id string) (*domain.StagedPush, error) {
	p := m.find(id)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	if m.err != nil {
		p.Status = domain.StagedFailed
		p.Attempts++
		p.Error = m.err.Error()
		return p, m.err
	}
	p.Status = domain.StagedSent
	return p, nil
}

func (m *mockPushbackService) Reject(_ context.Context, _, id string) (*domain.StagedPush, error) {
	p := m.find(id)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	p.Status = domain.StagedRejected
	return p, nil
}

// mockSiteService is a mock implementation of driving.SiteIntegrationService.
type mockSiteService struct {
	site     *domain.SiteIntegration
	err      error
	gotPatch domain.SiteIntegrationPatch
}

var _ driving.SiteIntegrationService = (*mockSiteService)(nil)

func (m *mockSiteService) Get(_ context.Context, _, siteID string) (*domain.SiteIntegration, error) {
	if m.site == nil || m.site.SiteID != siteID {
		return nil, domain.ErrNotFound
	}
	return m.site, nil
}

func (m *mockSiteService) Upsert(
	_ context.Context,
	tenantID, siteID string,
	patch domain.SiteIntegrationPatch,
) (*domain.SiteIntegration, error) {
	m.gotPatch = patch
	if m.err != nil {
		return nil, m.err
	}
	if m.site == nil {
		m.site = &domain.SiteIntegration{TenantID: tenantID, SiteID: siteID}
	}
	patch.ApplyTo(m.site)
	return m.site, nil
}

// mockDaemon is a mock implementation of Daemon.
type mockDaemon struct {
	err     error
	started chan struct{}
}

func (m *mockDaemon) Run(ctx context.Context) error {
	if m.started != nil {
		close(m.started)
	}
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	return ctx.Err()
}

// testOAuthConfig offers a browser flow for drive only.
func testOAuthConfig(source domain.Source, clientID, clientSecret string) (*oauth2.Config, error) {
	if source != domain.SourceDrive {
		return nil, domain.ErrUnsupportedSource
	}
	return &oauth2.Config{ClientID: clientID, ClientSecret: clientSecret}, nil
}
