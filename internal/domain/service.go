package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ServiceType identifies the protocol a monitored service speaks.
// It selects the extractor used during harvest, so it is locked once
// datasets have been harvested under it (see Registry.Update).
type ServiceType string

const (
	ServiceTypeSOS   ServiceType = "SOS"
	ServiceTypeDAP   ServiceType = "DAP"
	ServiceTypeWMS   ServiceType = "WMS"
	ServiceTypeOther ServiceType = "other"
)

// ParseServiceType normalizes a user-supplied type string.
func ParseServiceType(s string) (ServiceType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SOS":
		return ServiceTypeSOS, nil
	case "DAP", "OPENDAP":
		return ServiceTypeDAP, nil
	case "WMS":
		return ServiceTypeWMS, nil
	case "OTHER", "":
		return ServiceTypeOther, nil
	default:
		return "", fmt.Errorf("%w: unknown service type %q", ErrInvalid, s)
	}
}

// Service is a monitored data service endpoint.
//
// Identity is an opaque id assigned at registration. Everything the
// engine derives (harvest results, metamap, datasets, pings) hangs off
// that id and is removed with the service.
type Service struct {
	// ID is the canonical unique identifier, assigned at registration.
	ID string `json:"id"`

	// Name is the operator-facing display name.
	Name string `json:"name"`

	// Provider is the organization operating the endpoint.
	Provider string `json:"provider,omitempty"`

	// Type selects the protocol extractor used during harvest.
	Type ServiceType `json:"service_type"`

	// URL is the service access endpoint (capabilities are fetched
	// relative to it).
	URL string `json:"url"`

	// MetadataURL optionally overrides where the capabilities or
	// metadata document is fetched from.
	MetadataURL string `json:"metadata_url,omitempty"`

	// InfoURL optionally points at human-readable documentation.
	InfoURL string `json:"info_url,omitempty"`

	// Contact is a free-form operator contact string.
	Contact string `json:"contact,omitempty"`

	// Active marks the service as subject to scheduled harvesting and
	// pinging. Toggled by start/stop monitoring.
	Active bool `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CapabilitiesURL returns the URL the extractor should fetch:
// the metadata document override when set, the access URL otherwise.
func (s *Service) CapabilitiesURL() string {
	if s.MetadataURL != "" {
		return s.MetadataURL
	}
	return s.URL
}

// Validate checks the fields a service must carry before registration.
func (s *Service) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: service name is required", ErrInvalid)
	}
	if s.URL == "" {
		return fmt.Errorf("%w: service url is required", ErrInvalid)
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: service url %q is not an absolute URL", ErrInvalid, s.URL)
	}
	if _, err := ParseServiceType(string(s.Type)); err != nil {
		return err
	}
	return nil
}
