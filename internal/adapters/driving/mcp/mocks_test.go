package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
)

const testTenant = "tenant-a"

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

// mockSyncOrchestrator is a mock implementation of driving.SyncOrchestrator.
type mockSyncOrchestrator struct {
	job *domain.SyncJob
	err error
}

var _ driving.SyncOrchestrator = (*mockSyncOrchestrator)(nil)

func (m *mockSyncOrchestrator) TriggerSync(_ context.Context, tenantID string, source domain.Source) (*domain.SyncAck, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.SyncAck{JobID: "job-1", TenantID: tenantID, Source: source, Accepted: true}, nil
}

func (m *mockSyncOrchestrator) Run(_ context.Context, _, _ string) (*domain.SyncJob, error) {
	return m.job, m.err
}

func (m *mockSyncOrchestrator) SyncAll(_ context.Context) (int, error) { return 0, m.err }

func (m *mockSyncOrchestrator) Cancel(_ string, _ domain.Source) error { return m.err }

func (m *mockSyncOrchestrator) Status(_ context.Context, _ string, _ domain.Source) (*domain.SyncJob, error) {
	return m.job, m.err
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
		Source: domain.SourceWordPress, Diff: diff, Status: domain.StagedPending,
	}, nil
}

func (m *mockPushbackService) Get(_ context.Context, _, id string) (*domain.StagedPush, error) {
	for _, p := range m.staged {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockPushbackService) List(_ context.Context, _ string, status domain.StagedStatus) ([]*domain.StagedPush, error) {
	m.gotStatus = status
	return m.staged, m.err
}

func (m *mockPushbackService) Commit(_ context.Context, _, _ string) (*domain.StagedPush, error) {
	return nil, m.err
}

func (m *mockPushbackService) Reject(_ context.Context, _, _ string) (*domain.StagedPush, error) {
	return nil, m.err
}

// mockSiteService is a mock implementation of driving.SiteIntegrationService.
type mockSiteService struct {
	site *domain.SiteIntegration
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
	_, _ string,
	_ domain.SiteIntegrationPatch,
) (*domain.SiteIntegration, error) {
	return m.site, nil
}
