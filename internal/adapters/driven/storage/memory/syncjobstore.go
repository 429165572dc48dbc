package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// Ensure SyncJobStore implements the interface.
var _ driven.SyncJobStore = (*SyncJobStore)(nil)

// SyncJobStore is an in-memory implementation of driven.SyncJobStore.
type SyncJobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.SyncJob
}

// NewSyncJobStore creates a new in-memory sync job store.
func NewSyncJobStore() *SyncJobStore {
	return &SyncJobStore{
		jobs: make(map[string]domain.SyncJob),
	}
}

// Save stores or updates a job.
func (s *SyncJobStore) Save(_ context.Context, job *domain.SyncJob) error {
	if job.ID == "" || job.TenantID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *job
	stored.Failures = slices.Clone(job.Failures)
	s.jobs[job.ID] = stored
	return nil
}

// Get retrieves a job by id within a tenant.
func (s *SyncJobStore) Get(_ context.Context, tenantID, id string) (*domain.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok || job.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	job.Failures = slices.Clone(job.Failures)
	return &job, nil
}

// Latest returns the most recently queued job for tenant and source.
func (s *SyncJobStore) Latest(_ context.Context, tenantID string, source domain.Source) (*domain.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.SyncJob
	for _, job := range s.jobs {
		if job.TenantID != tenantID || job.Source != source {
			continue
		}
		if latest == nil || job.QueuedAt.After(latest.QueuedAt) ||
			(job.QueuedAt.Equal(latest.QueuedAt) && job.ID > latest.ID) {
			j := job
			latest = &j
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	latest.Failures = slices.Clone(latest.Failures)
	return latest, nil
}
