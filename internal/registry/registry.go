package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/seamark/seamark/internal/domain"
	"github.com/seamark/seamark/internal/index"
	"github.com/seamark/seamark/internal/logger"
	redisstore "github.com/seamark/seamark/internal/store/redis"
)

// Registry owns the set of monitored services. The memory index is
// the fast read path and active-snapshot source; the redis store is
// the durable truth. Both are kept in step on every mutation.
type Registry struct {
	store  *redisstore.Store
	index  *index.MemoryIndex
	logger logger.Logger
}

// New creates a registry over the given store and index.
func New(store *redisstore.Store, idx *index.MemoryIndex, log logger.Logger) *Registry {
	return &Registry{
		store:  store,
		index:  idx,
		logger: log,
	}
}

// Load populates the memory index from the store, called once at boot.
func (r *Registry) Load(ctx context.Context) error {
	services, err := r.store.GetAllServices(ctx)
	if err != nil {
		return fmt.Errorf("failed to load services from store: %w", err)
	}

	r.index.Replace(services)
	r.logger.Info("loaded services from store",
		logger.Int("count", len(services)))
	return nil
}

// Register validates and stores a new service, assigning its id. The
// caller decides whether monitoring starts enabled via svc.Active.
func (r *Registry) Register(ctx context.Context, svc *domain.Service) (string, error) {
	t, err := domain.ParseServiceType(string(svc.Type))
	if err != nil {
		return "", err
	}
	svc.Type = t
	if err := svc.Validate(); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	svc.ID = uuid.NewString()
	svc.CreatedAt = now
	svc.UpdatedAt = now

	if err := r.store.SaveService(ctx, svc); err != nil {
		return "", err
	}
	r.index.Put(svc)

	r.logger.Info("service registered",
		logger.String("service_id", svc.ID),
		logger.String("name", svc.Name),
		logger.String("type", string(svc.Type)))
	return svc.ID, nil
}

// Get retrieves a service by id.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Service, error) {
	if svc, ok := r.index.Get(id); ok {
		return svc, nil
	}
	// Fall back to the store in case the index missed a write from a
	// previous process lifetime.
	svc, err := r.store.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	r.index.Put(svc)
	return svc, nil
}

// List returns all registered services from the memory index.
func (r *Registry) List() []*domain.Service {
	return r.index.All()
}

// ActiveSnapshot returns the services currently subject to monitoring.
// Schedulers take one snapshot per tick.
func (r *Registry) ActiveSnapshot() []*domain.Service {
	return r.index.ActiveSnapshot()
}

// ServiceUpdate carries the editable fields of a service; nil fields
// are left unchanged.
type ServiceUpdate struct {
	Name        *string
	Provider    *string
	Type        *domain.ServiceType
	URL         *string
	MetadataURL *string
	InfoURL     *string
	Contact     *string
}

// Update applies an edit to an existing service. The service type is
// immutable once datasets have been harvested under it: changing it
// would invalidate the metamap schema.
func (r *Registry) Update(ctx context.Context, id string, upd ServiceUpdate) (*domain.Service, error) {
	svc, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Type != nil && *upd.Type != svc.Type {
		harvested, err := r.store.HasDatasets(ctx, id)
		if err != nil {
			return nil, err
		}
		if harvested {
			return nil, domain.ErrTypeLocked
		}
		t, err := domain.ParseServiceType(string(*upd.Type))
		if err != nil {
			return nil, err
		}
		svc.Type = t
	}
	if upd.Name != nil {
		svc.Name = *upd.Name
	}
	if upd.Provider != nil {
		svc.Provider = *upd.Provider
	}
	if upd.URL != nil {
		svc.URL = *upd.URL
	}
	if upd.MetadataURL != nil {
		svc.MetadataURL = *upd.MetadataURL
	}
	if upd.InfoURL != nil {
		svc.InfoURL = *upd.InfoURL
	}
	if upd.Contact != nil {
		svc.Contact = *upd.Contact
	}

	if err := svc.Validate(); err != nil {
		return nil, err
	}
	svc.UpdatedAt = time.Now().UTC()

	if err := r.store.SaveService(ctx, svc); err != nil {
		return nil, err
	}
	r.index.Put(svc)
	return svc, nil
}

// SetActive toggles monitoring for a service. Idempotent. The index is
// updated before returning, so the next scheduler tick observes the
// change; an already in-flight harvest is not cancelled.
func (r *Registry) SetActive(ctx context.Context, id string, active bool) error {
	svc, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if svc.Active == active {
		return nil
	}

	svc.Active = active
	svc.UpdatedAt = time.Now().UTC()
	if err := r.store.SaveService(ctx, svc); err != nil {
		return err
	}
	r.index.Put(svc)

	r.logger.Info("service monitoring toggled",
		logger.String("service_id", id),
		logger.Bool("active", active))
	return nil
}

// Delete removes a service and all its derived records (harvest
// results, metamap, datasets, ping series) atomically. Irreversible.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteService(ctx, id); err != nil {
		return err
	}
	r.index.Delete(id)

	r.logger.Info("service deleted",
		logger.String("service_id", id))
	return nil
}
