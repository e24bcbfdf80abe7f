package seedfile

import (
	"fmt"

	"github.com/seamark/seamark/internal/domain"
)

// Mapper converts seed entries to domain.Service entities.
type Mapper struct{}

// NewMapper creates a new mapper instance.
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapServices converts a SeedConfig to []*domain.Service. Every entry
// must be valid; a broken seed file is an operator error worth failing
// loudly on rather than silently monitoring half the fleet.
func (m *Mapper) MapServices(config SeedConfig) ([]*domain.Service, error) {
	if len(config.Services) == 0 {
		return nil, fmt.Errorf("no services found in seed config")
	}

	services := make([]*domain.Service, 0, len(config.Services))
	for i, entry := range config.Services {
		t, err := domain.ParseServiceType(entry.Type)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d (%s): %w", i, entry.Name, err)
		}

		svc := &domain.Service{
			Name:        entry.Name,
			Provider:    entry.Provider,
			Type:        t,
			URL:         entry.URL,
			MetadataURL: entry.MetadataURL,
			InfoURL:     entry.InfoURL,
			Contact:     entry.Contact,
			Active:      entry.Active,
		}
		if err := svc.Validate(); err != nil {
			return nil, fmt.Errorf("seed entry %d (%s): %w", i, entry.Name, err)
		}
		services = append(services, svc)
	}

	return services, nil
}
