package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// Ensure ConnectionStore implements the interface.
var _ driven.ConnectionStore = (*ConnectionStore)(nil)

type connectionKey struct {
	tenantID   string
	source     domain.Source
	sourceSite string
}

// ConnectionStore is an in-memory implementation of driven.ConnectionStore.
type ConnectionStore struct {
	mu          sync.RWMutex
	connections map[connectionKey]domain.Connection
}

// NewConnectionStore creates a new in-memory connection store.
func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{
		connections: make(map[connectionKey]domain.Connection),
	}
}

// Save stores or updates a connection keyed by tenant, source and site.
func (s *ConnectionStore) Save(_ context.Context, conn *domain.Connection) error {
	if conn.TenantID == "" || !conn.Source.IsValid() {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := connectionKey{conn.TenantID, conn.Source, conn.SourceSite}
	now := time.Now().UTC()
	if existing, ok := s.connections[key]; ok {
		conn.ID = existing.ID
		conn.CreatedAt = existing.CreatedAt
	}
	if conn.ID == "" {
		conn.ID = storage.NewID()
	}
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	stored := *conn
	stored.Params = maps.Clone(conn.Params)
	s.connections[key] = stored
	return nil
}

// List returns a tenant's connections for source.
func (s *ConnectionStore) List(_ context.Context, tenantID string, source domain.Source) ([]*domain.Connection, error) {
	return s.filter(func(c domain.Connection) bool {
		return c.TenantID == tenantID && c.Source == source
	}), nil
}

// ListAll returns every connection.
func (s *ConnectionStore) ListAll(_ context.Context) ([]*domain.Connection, error) {
	return s.filter(func(domain.Connection) bool { return true }), nil
}

// Delete removes a connection.
func (s *ConnectionStore) Delete(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.connections {
		if c.TenantID == tenantID && c.ID == id {
			delete(s.connections, key)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *ConnectionStore) filter(keep func(domain.Connection) bool) []*domain.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*domain.Connection, 0)
	for _, c := range s.connections {
		if keep(c) {
			c.Params = maps.Clone(c.Params)
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.TenantID != b.TenantID {
			return a.TenantID < b.TenantID
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.SourceSite < b.SourceSite
	})
	return result
}
