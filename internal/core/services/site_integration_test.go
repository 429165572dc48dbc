package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

func newSiteService() *SiteIntegrationService {
	svc := NewSiteIntegrationService(memory.NewSiteIntegrationStore())
	svc.now = func() time.Time { return testTime }
	return svc
}

func TestSiteIntegration_GetMissing(t *testing.T) {
	svc := newSiteService()

	_, err := svc.Get(context.Background(), tenantA, "shop.example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), `site "shop.example.com" is not configured`)
}

func TestSiteIntegration_UpsertCreatesThenPatches(t *testing.T) {
	svc := newSiteService()
	ctx := context.Background()

	created, err := svc.Upsert(ctx, tenantA, "shop.example.com", domain.SiteIntegrationPatch{
		GAMeasurementID: ptr("G-123"),
		ConversionEvent: ptr("purchase"),
	})
	require.NoError(t, err)
	assert.Equal(t, "G-123", created.GAMeasurementID)
	assert.Equal(t, testTime, created.CreatedAt)

	svc.now = func() time.Time { return testTime.Add(time.Hour) }
	patched, err := svc.Upsert(ctx, tenantA, "shop.example.com", domain.SiteIntegrationPatch{
		SessionReplayEnabled:    ptr(true),
		SessionReplayProjectKey: ptr("replay-key"),
	})
	require.NoError(t, err)

	// Fields outside the patch keep their values.
	assert.Equal(t, "G-123", patched.GAMeasurementID)
	assert.Equal(t, "purchase", patched.ConversionEvent)
	assert.True(t, patched.SessionReplayEnabled)
	assert.Equal(t, testTime, patched.CreatedAt)
	assert.Equal(t, testTime.Add(time.Hour), patched.UpdatedAt)

	got, err := svc.Get(ctx, tenantA, "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, patched, got)
}

func TestSiteIntegration_UpsertValidates(t *testing.T) {
	svc := newSiteService()
	ctx := context.Background()

	_, err := svc.Upsert(ctx, tenantA, "shop.example.com", domain.SiteIntegrationPatch{
		FeedbackEnabled: ptr(true),
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Upsert(ctx, tenantA, "  ", domain.SiteIntegrationPatch{})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Get(ctx, tenantA, "shop.example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSiteIntegration_TenantIsolation(t *testing.T) {
	svc := newSiteService()
	ctx := context.Background()

	_, err := svc.Upsert(ctx, tenantA, "shop.example.com", domain.SiteIntegrationPatch{GTMContainerID: ptr("GTM-1")})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "tenant-b", "shop.example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
