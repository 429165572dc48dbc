package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage/storagetest"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

func TestResourceStore(t *testing.T) {
	storagetest.ResourceStore(t, func(*testing.T) driven.ResourceStore {
		return NewResourceStore()
	})
}

func TestResourceStore_ReturnsCopies(t *testing.T) {
	s := NewResourceStore()
	ctx := context.Background()

	out, err := s.Upsert(ctx, "T", []*domain.HubResource{storagetest.Resource("T", domain.SourceShopify, "", "p1")})
	require.NoError(t, err)
	out[0].Tags[0] = "mutated"

	got, err := s.Get(ctx, "T", out[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "sale", got.Tags[0])
}

func TestConnectionStore(t *testing.T) {
	storagetest.ConnectionStore(t, NewConnectionStore())
}

func TestConnectionStore_RejectsUnknownSource(t *testing.T) {
	err := NewConnectionStore().Save(context.Background(), &domain.Connection{TenantID: "T", Source: "ftp"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSyncJobStore(t *testing.T) {
	storagetest.SyncJobStore(t, NewSyncJobStore())
}

func TestStagingStore(t *testing.T) {
	storagetest.StagingStore(t, NewStagingStore())
}

func TestSiteIntegrationStore(t *testing.T) {
	storagetest.SiteIntegrationStore(t, NewSiteIntegrationStore())
}

func TestSchedulerStore(t *testing.T) {
	storagetest.SchedulerStore(t, NewSchedulerStore())
}
