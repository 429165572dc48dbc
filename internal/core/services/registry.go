package services

import (
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// Ensure AdapterRegistry implements the interface.
var _ driven.AdapterRegistry = (*AdapterRegistry)(nil)

// AdapterRegistry selects the adapter for a source.
type AdapterRegistry struct {
	mu       sync.RWMutex
	adapters map[domain.Source]driven.Adapter
}

// NewAdapterRegistry returns a registry holding adapters.
func NewAdapterRegistry(adapters ...driven.Adapter) *AdapterRegistry {
	r := &AdapterRegistry{adapters: make(map[domain.Source]driven.Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds an adapter, replacing any adapter for the same source.
func (r *AdapterRegistry) Register(adapter driven.Adapter) {
	if adapter == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Source()] = adapter
}

// Get returns the adapter for source.
func (r *AdapterRegistry) Get(source domain.Source) (driven.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedSource, source)
	}
	return a, nil
}

// Sources lists registered sources in sorted order.
func (r *AdapterRegistry) Sources() []domain.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Source, 0, len(r.adapters))
	for s := range r.adapters {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}
