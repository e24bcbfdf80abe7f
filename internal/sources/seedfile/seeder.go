// Package seedfile boots the registry from an operator-maintained YAML
// file. Seeding is additive and idempotent: entries whose URL is
// already registered are left untouched, so edits made through the API
// survive restarts.
package seedfile

import (
	"context"
	"fmt"

	"github.com/seamark/seamark/internal/logger"
	"github.com/seamark/seamark/internal/registry"
)

// Seeder registers seed file entries that are not yet known.
type Seeder struct {
	loader   *Loader
	mapper   *Mapper
	registry *registry.Registry
	logger   logger.Logger
}

// NewSeeder creates a seeder for the given file.
func NewSeeder(filePath string, reg *registry.Registry, log logger.Logger) *Seeder {
	return &Seeder{
		loader:   NewLoader(filePath),
		mapper:   NewMapper(),
		registry: reg,
		logger:   log,
	}
}

// Seed loads the file and registers every entry whose URL is not
// already present. Returns how many services were added.
func (s *Seeder) Seed(ctx context.Context) (int, error) {
	config, err := s.loader.Load()
	if err != nil {
		return 0, err
	}

	services, err := s.mapper.MapServices(config)
	if err != nil {
		return 0, err
	}

	known := make(map[string]bool)
	for _, existing := range s.registry.List() {
		known[existing.URL] = true
	}

	added := 0
	for _, svc := range services {
		if known[svc.URL] {
			s.logger.Debug("seed entry already registered",
				logger.String("url", svc.URL))
			continue
		}
		id, err := s.registry.Register(ctx, svc)
		if err != nil {
			return added, fmt.Errorf("failed to register seed entry %q: %w", svc.Name, err)
		}
		known[svc.URL] = true
		added++
		s.logger.Info("seeded service",
			logger.String("service_id", id),
			logger.String("name", svc.Name),
			logger.String("type", string(svc.Type)))
	}

	return added, nil
}
