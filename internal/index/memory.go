package index

import (
	"sync"
	"time"

	"github.com/seamark/seamark/internal/domain"
)

// MemoryIndex is the in-process view of the service registry. It is
// the fast read path for handlers and the source of the active-set
// snapshot the schedulers take each tick; redis remains the durable
// truth.
type MemoryIndex struct {
	mu       sync.RWMutex
	services map[string]*domain.Service // ID -> Service
	lastLoad time.Time
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		services: make(map[string]*domain.Service),
	}
}

// Replace swaps the full service set, used when loading from the store
// on startup.
func (idx *MemoryIndex) Replace(services []*domain.Service) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.services = make(map[string]*domain.Service, len(services))
	for _, svc := range services {
		idx.services[svc.ID] = svc
	}
	idx.lastLoad = time.Now()
}

// Put adds or overwrites a single service.
func (idx *MemoryIndex) Put(svc *domain.Service) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.services[svc.ID] = svc
}

// Get retrieves a copy of a service by id. Returning a copy keeps
// callers from mutating indexed state outside the registry.
func (idx *MemoryIndex) Get(id string) (*domain.Service, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	svc, ok := idx.services[id]
	if !ok {
		return nil, false
	}
	c := *svc
	return &c, true
}

// All returns copies of every indexed service.
func (idx *MemoryIndex) All() []*domain.Service {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]*domain.Service, 0, len(idx.services))
	for _, svc := range idx.services {
		c := *svc
		out = append(out, &c)
	}
	return out
}

// ActiveSnapshot returns copies of services with monitoring enabled.
// Schedulers call it once per tick, so a SetActive(false) is observed
// by the next tick at the latest.
func (idx *MemoryIndex) ActiveSnapshot() []*domain.Service {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]*domain.Service, 0, len(idx.services))
	for _, svc := range idx.services {
		if !svc.Active {
			continue
		}
		c := *svc
		out = append(out, &c)
	}
	return out
}

// Delete removes a service from the index.
func (idx *MemoryIndex) Delete(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.services, id)
}

// Count returns the number of indexed services.
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.services)
}

// LastLoad returns when the index was last replaced from the store.
func (idx *MemoryIndex) LastLoad() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastLoad
}
