package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// Ensure StagingStore implements the interface.
var _ driven.StagingStore = (*StagingStore)(nil)

// StagingStore is an in-memory implementation of driven.StagingStore.
type StagingStore struct {
	mu     sync.RWMutex
	staged map[string]domain.StagedPush
}

// NewStagingStore creates a new in-memory staging store.
func NewStagingStore() *StagingStore {
	return &StagingStore{
		staged: make(map[string]domain.StagedPush),
	}
}

// Save stores or updates a staged payload.
func (s *StagingStore) Save(_ context.Context, staged *domain.StagedPush) error {
	if staged.ID == "" || staged.TenantID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[staged.ID] = *staged
	return nil
}

// Get retrieves a staged payload by id within a tenant.
func (s *StagingStore) Get(_ context.Context, tenantID, id string) (*domain.StagedPush, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	staged, ok := s.staged[id]
	if !ok || staged.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return &staged, nil
}

// List returns a tenant's staged payloads, newest first.
func (s *StagingStore) List(_ context.Context, tenantID string, status domain.StagedStatus) ([]*domain.StagedPush, error) {
	s.mu.RLock()
	result := make([]*domain.StagedPush, 0)
	for _, staged := range s.staged {
		if staged.TenantID == tenantID && (status == "" || staged.Status == status) {
			p := staged
			result = append(result, &p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// Claim moves a claimable payload to sending.
func (s *StagingStore) Claim(_ context.Context, tenantID, id string, at, staleBefore time.Time) (*domain.StagedPush, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged, ok := s.staged[id]
	if !ok || staged.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	if !staged.Claimable(staleBefore) {
		return nil, domain.ErrInvalidTransition
	}
	staged.Status = domain.StagedSending
	staged.Attempts++
	staged.UpdatedAt = at
	s.staged[id] = staged
	return &staged, nil
}
