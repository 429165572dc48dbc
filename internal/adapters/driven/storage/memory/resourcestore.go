package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// Ensure ResourceStore implements the interface.
var _ driven.ResourceStore = (*ResourceStore)(nil)

// ResourceStore is an in-memory implementation of driven.ResourceStore.
type ResourceStore struct {
	mu        sync.RWMutex
	resources map[string]*domain.HubResource
	byKey     map[domain.OriginKey]string
}

// NewResourceStore creates a new in-memory resource store.
func NewResourceStore() *ResourceStore {
	return &ResourceStore{
		resources: make(map[string]*domain.HubResource),
		byKey:     make(map[domain.OriginKey]string),
	}
}

// Upsert inserts or merges resources by origin key.
func (s *ResourceStore) Upsert(ctx context.Context, tenantID string, resources []*domain.HubResource) ([]*domain.HubResource, error) {
	if err := storage.CheckBatch(tenantID, resources); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.HubResource, 0, len(resources))
	for _, r := range resources {
		stored := r.Clone()
		key := stored.Key()
		if id, ok := s.byKey[key]; ok {
			stored.ID = id
			stored.Embedding = s.resources[id].Embedding
		} else {
			stored.ID = storage.NewID()
			stored.Embedding = nil
			s.byKey[key] = stored.ID
		}
		s.resources[stored.ID] = stored
		out = append(out, stored.Clone())
	}
	return out, nil
}

// Get retrieves a resource by id within a tenant.
func (s *ResourceStore) Get(_ context.Context, tenantID, id string) (*domain.HubResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[id]
	if !ok || r.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return r.Clone(), nil
}

// Search returns a tenant's resources matching q, newest first.
func (s *ResourceStore) Search(_ context.Context, tenantID string, q domain.ResourceQuery) ([]*domain.HubResource, error) {
	s.mu.RLock()
	matches := make([]*domain.HubResource, 0)
	for _, r := range s.resources {
		if r.TenantID == tenantID && q.Matches(r) {
			matches = append(matches, r.Clone())
		}
	}
	s.mu.RUnlock()

	domain.SortByRecency(matches)
	if limit := q.EffectiveLimit(); len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// SetEmbedding replaces only the embedding of a resource.
func (s *ResourceStore) SetEmbedding(_ context.Context, tenantID, id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok || r.TenantID != tenantID {
		return domain.ErrNotFound
	}
	r.Embedding = slices.Clone(embedding)
	return nil
}

// Close is a no-op.
func (s *ResourceStore) Close() error { return nil }
