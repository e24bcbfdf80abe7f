package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/seamark/seamark/internal/domain"
)

const (
	// DefaultHarvestLogLimit bounds the per-service harvest message
	// history.
	DefaultHarvestLogLimit = 20
	// DefaultPingLimit bounds the per-service ping series. 168 keeps
	// a week of hourly probes.
	DefaultPingLimit = 168
)

// Store is the durable record of services and everything harvested or
// probed for them. Writes to one service's harvest state are
// serialized through a per-service lock; different services write
// concurrently.
type Store struct {
	client *redis.Client

	harvestLogLimit int64
	pingLimit       int64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store with default retention bounds.
func NewStore(client *redis.Client) *Store {
	return NewStoreWithLimits(client, DefaultHarvestLogLimit, DefaultPingLimit)
}

// NewStoreWithLimits creates a store with explicit retention bounds
// for the harvest message log and the ping series.
func NewStoreWithLimits(client *redis.Client, harvestLogLimit, pingLimit int64) *Store {
	if harvestLogLimit <= 0 {
		harvestLogLimit = DefaultHarvestLogLimit
	}
	if pingLimit <= 0 {
		pingLimit = DefaultPingLimit
	}
	return &Store{
		client:          client,
		harvestLogLimit: harvestLogLimit,
		pingLimit:       pingLimit,
		locks:           make(map[string]*sync.Mutex),
	}
}

// serviceLock returns the mutex serializing writes for one service,
// creating it on first use. Locks are dropped by releaseLock when the
// service is deleted.
func (s *Store) serviceLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// requireService verifies the owning service record still exists.
// Harvest and ping writes call it under the per-service lock, so a
// write racing a cascade delete cannot re-create derived keys.
func (s *Store) requireService(ctx context.Context, id string) error {
	exists, err := s.client.Exists(ctx, ServiceKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check service: %w", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) releaseLock(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks, id)
}
