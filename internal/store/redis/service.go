package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/seamark/seamark/internal/domain"
)

// SaveService stores a service record and adds it to the id set.
// Service records carry no TTL: a registered service stays until it is
// deleted.
func (s *Store) SaveService(ctx context.Context, svc *domain.Service) error {
	data, err := json.Marshal(svc)
	if err != nil {
		return fmt.Errorf("failed to marshal service: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, ServiceKey(svc.ID), data, 0)
	pipe.SAdd(ctx, KeyAllServices, svc.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save service: %w", err)
	}
	return nil
}

// GetService retrieves a service record by id.
func (s *Store) GetService(ctx context.Context, id string) (*domain.Service, error) {
	data, err := s.client.Get(ctx, ServiceKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	var svc domain.Service
	if err := json.Unmarshal(data, &svc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal service: %w", err)
	}
	return &svc, nil
}

// GetAllServices retrieves every registered service.
func (s *Store) GetAllServices(ctx context.Context) ([]*domain.Service, error) {
	ids, err := s.client.SMembers(ctx, KeyAllServices).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get service ids: %w", err)
	}

	services := make([]*domain.Service, 0, len(ids))
	for _, id := range ids {
		svc, err := s.GetService(ctx, id)
		if err != nil {
			// Skip dangling ids rather than failing the whole load.
			continue
		}
		services = append(services, svc)
	}
	return services, nil
}

// DeleteService removes a service and cascades over every derived
// record: harvest result, message log, metamap, datasets and ping
// series go with it, atomically.
func (s *Store) DeleteService(ctx context.Context, id string) error {
	lock := s.serviceLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.requireService(ctx, id); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx,
		ServiceKey(id),
		HarvestKey(id),
		HarvestLogKey(id),
		MetamapKey(id),
		DatasetsKey(id),
		PingsKey(id),
	)
	pipe.SRem(ctx, KeyAllServices, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}

	s.releaseLock(id)
	return nil
}
