// Package extract implements the per-protocol capability extractors.
//
// One extractor exists per service type. Each fetches the service's
// capabilities/metadata document with a bounded timeout and derives a
// metamap (checker name -> field map) plus the dataset inventory the
// service exposes. Extractors hold no per-call mutable state and are
// safe to run concurrently for different services.
package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/seamark/seamark/internal/domain"
)

// Extractor derives a service's metamap and dataset inventory from its
// capabilities document.
type Extractor interface {
	Extract(ctx context.Context, svc *domain.Service) (domain.Metamap, []domain.Dataset, error)
}

// ForType selects the extractor for a service type. The set is closed:
// adding a protocol means adding one extractor here. Services of type
// "other" cannot be harvested, only pinged.
func ForType(t domain.ServiceType, timeout time.Duration) (Extractor, error) {
	switch t {
	case domain.ServiceTypeSOS:
		return NewSOSExtractor(timeout), nil
	case domain.ServiceTypeDAP:
		return NewDAPExtractor(timeout), nil
	case domain.ServiceTypeWMS:
		return NewWMSExtractor(timeout), nil
	default:
		return nil, fmt.Errorf("no extractor for service type %q", t)
	}
}
