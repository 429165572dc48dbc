package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

func newEnrichment(t *testing.T, provider driven.EmbeddingService, fallbackOnError bool, queue driven.JobQueue) (*EnrichmentService, *memory.ResourceStore) {
	t.Helper()
	store := memory.NewResourceStore()
	svc, err := NewEnrichmentService(store, queue, EnrichmentConfig{
		Provider:        provider,
		Fallback:        hash.NewEmbeddingService(8),
		FallbackOnError: fallbackOnError,
	})
	require.NoError(t, err)
	return svc, store
}

func TestNewEnrichmentService_RequiresFallback(t *testing.T) {
	_, err := NewEnrichmentService(memory.NewResourceStore(), nil, EnrichmentConfig{})
	assert.Error(t, err)
}

func TestEnrich_WithProvider(t *testing.T) {
	provider := &mockEmbedder{vec: []float32{1, 2, 3}}
	svc, store := newEnrichment(t, provider, true, nil)
	r := seedResource(t, store, tenantA, &domain.HubResource{SourceID: "1", Title: "Hello", BodyText: "Hello world"})

	result, err := svc.Enrich(context.Background(), tenantA, []string{r.ID})
	require.NoError(t, err)
	assert.Equal(t, &domain.EnrichmentResult{Embedded: 1}, result)

	got, err := store.Get(context.Background(), tenantA, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, got.Embedding)
	// Only the embedding changes.
	assert.Equal(t, r.Title, got.Title)
	assert.Equal(t, r.UpdatedAt, got.UpdatedAt)
}

func TestEnrich_NoProviderUsesDeterministicVector(t *testing.T) {
	svc, store := newEnrichment(t, nil, false, nil)
	r := seedResource(t, store, tenantA, &domain.HubResource{SourceID: "1", BodyText: "same text"})

	result, err := svc.Enrich(context.Background(), tenantA, []string{r.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Fallback)

	got, err := store.Get(context.Background(), tenantA, r.ID)
	require.NoError(t, err)
	assert.Equal(t, hash.Vector(r.EmbeddingText(), 8), got.Embedding)
}

func TestEnrich_ProviderFailureFallsBack(t *testing.T) {
	provider := &mockEmbedder{err: &domain.ProviderError{Provider: "mock", Err: errors.New("503")}}
	svc, store := newEnrichment(t, provider, true, nil)
	r := seedResource(t, store, tenantA, &domain.HubResource{SourceID: "1", BodyText: "text"})

	result, err := svc.Enrich(context.Background(), tenantA, []string{r.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Fallback)

	got, err := store.Get(context.Background(), tenantA, r.ID)
	require.NoError(t, err)
	assert.Len(t, got.Embedding, 8)
}

func TestEnrich_ProviderFailureLeavesPending(t *testing.T) {
	provider := &mockEmbedder{err: errors.New("provider down")}
	svc, store := newEnrichment(t, provider, false, nil)
	r := seedResource(t, store, tenantA, &domain.HubResource{SourceID: "1", BodyText: "text"})

	result, err := svc.Enrich(context.Background(), tenantA, []string{r.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pending)

	got, err := store.Get(context.Background(), tenantA, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Embedding)
}

func TestEnrich_DimensionMismatchIsProviderFailure(t *testing.T) {
	store := memory.NewResourceStore()
	svc, err := NewEnrichmentService(store, nil, EnrichmentConfig{
		Provider:   &mockEmbedder{vec: []float32{1, 2}},
		Fallback:   hash.NewEmbeddingService(4),
		Dimensions: 4,
	})
	require.NoError(t, err)
	r := seedResource(t, store, tenantA, &domain.HubResource{SourceID: "1", BodyText: "text"})

	result, err := svc.Enrich(context.Background(), tenantA, []string{r.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pending)
}

func TestEnrich_OneFailureDoesNotBlockOthers(t *testing.T) {
	svc, store := newEnrichment(t, &mockEmbedder{vec: []float32{1}}, true, nil)
	a := seedResource(t, store, tenantA, &domain.HubResource{SourceID: "a", BodyText: "a"})
	b := seedResource(t, store, tenantA, &domain.HubResource{SourceID: "b", BodyText: "b"})

	result, err := svc.Enrich(context.Background(), tenantA, []string{a.ID, "missing", b.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Embedded)
	assert.Equal(t, 1, result.Missing)
}

func TestEnrich_OtherTenantIsMissing(t *testing.T) {
	svc, store := newEnrichment(t, nil, false, nil)
	r := seedResource(t, store, tenantA, &domain.HubResource{SourceID: "1", BodyText: "text"})

	result, err := svc.Enrich(context.Background(), "tenant-b", []string{r.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Missing)

	got, err := store.Get(context.Background(), tenantA, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Embedding)
}

func TestEnrich_CancelledContext(t *testing.T) {
	svc, store := newEnrichment(t, &mockEmbedder{vec: []float32{1}}, true, nil)
	r := seedResource(t, store, tenantA, &domain.HubResource{SourceID: "1", BodyText: "text"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Enrich(ctx, tenantA, []string{r.ID})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnrichmentEnqueue(t *testing.T) {
	queue := &mockQueue{}
	svc, _ := newEnrichment(t, nil, false, queue)

	require.NoError(t, svc.Enqueue(context.Background(), tenantA, []string{"1", "2"}))
	require.NoError(t, svc.Enqueue(context.Background(), tenantA, nil))

	tasks := queue.kinds(driven.TaskEnrich)
	require.Len(t, tasks, 1)
	assert.Equal(t, []string{"1", "2"}, tasks[0].ResourceIDs)
	assert.Equal(t, tenantA, tasks[0].TenantID)

	assert.ErrorIs(t, svc.Enqueue(context.Background(), "", []string{"1"}), domain.ErrInvalidInput)
}

func TestEnrichmentEnqueue_InlineWithoutQueue(t *testing.T) {
	svc, store := newEnrichment(t, nil, false, nil)
	r := seedResource(t, store, tenantA, &domain.HubResource{SourceID: "1", BodyText: "text"})

	require.NoError(t, svc.Enqueue(context.Background(), tenantA, []string{r.ID}))

	got, err := store.Get(context.Background(), tenantA, r.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.Embedding)
}
