package extract

import (
	"context"
	"encoding/xml"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/seamark/seamark/internal/domain"
)

// SOSExtractor harvests OGC Sensor Observation Service endpoints. Each
// observation offering in the capabilities document becomes one
// dataset, grouped by the network/authority segment of its URN.
type SOSExtractor struct {
	client *http.Client
}

// NewSOSExtractor creates a SOS extractor with the given fetch timeout.
func NewSOSExtractor(timeout time.Duration) *SOSExtractor {
	return &SOSExtractor{client: newHTTPClient(timeout)}
}

type sosCapabilities struct {
	XMLName  xml.Name
	Title    string   `xml:"ServiceIdentification>Title"`
	Abstract string   `xml:"ServiceIdentification>Abstract"`
	Keywords []string `xml:"ServiceIdentification>Keywords>Keyword"`
	Versions []string `xml:"ServiceIdentification>ServiceTypeVersion"`

	ProviderName string `xml:"ServiceProvider>ProviderName"`
	ProviderSite struct {
		Href string `xml:"href,attr"`
	} `xml:"ServiceProvider>ProviderSite"`
	ContactName  string `xml:"ServiceProvider>ServiceContact>IndividualName"`
	ContactEmail string `xml:"ServiceProvider>ServiceContact>ContactInfo>Address>ElectronicMailAddress"`

	Offerings []sosOffering `xml:"Contents>ObservationOfferingList>ObservationOffering"`
}

type sosOffering struct {
	ID                 string `xml:"id,attr"`
	Name               string `xml:"name"`
	ObservedProperties []struct {
		Href string `xml:"href,attr"`
	} `xml:"observedProperty"`
}

func (e *SOSExtractor) Extract(ctx context.Context, svc *domain.Service) (domain.Metamap, []domain.Dataset, error) {
	docURL := withQuery(svc.CapabilitiesURL(), map[string]string{
		"service": "SOS",
		"request": "GetCapabilities",
	})

	body, err := fetchDocument(ctx, e.client, docURL)
	if err != nil {
		return nil, nil, err
	}

	var caps sosCapabilities
	if err := xml.Unmarshal(body, &caps); err != nil {
		return nil, nil, &domain.ParseError{URL: docURL, Detail: err.Error()}
	}
	if caps.XMLName.Local != "Capabilities" {
		return nil, nil, &domain.ParseError{
			URL:    docURL,
			Detail: "root element <" + caps.XMLName.Local + "> is not a SOS capabilities document",
		}
	}

	metamap := domain.Metamap{}

	ident := domain.NewCheckerResult()
	ident.Set("title", domain.Scalar(caps.Title))
	ident.Set("abstract", domain.Scalar(caps.Abstract))
	if len(caps.Keywords) > 0 {
		ident.Set("keywords", domain.ListValue(caps.Keywords...))
	}
	if len(caps.Versions) > 0 {
		ident.Set("service_type_versions", domain.ListValue(caps.Versions...))
	}
	ident.Set("*offering_count", domain.Scalar(strconv.Itoa(len(caps.Offerings))))
	metamap["service_identification"] = *ident

	provider := domain.NewCheckerResult()
	provider.Set("provider_name", domain.Scalar(caps.ProviderName))
	if caps.ProviderSite.Href != "" {
		provider.Set("provider_site", domain.Scalar(caps.ProviderSite.Href))
	}
	if caps.ContactName != "" {
		provider.Set("contact", domain.Scalar(caps.ContactName))
	}
	if caps.ContactEmail != "" {
		provider.Set("contact_email", domain.Scalar(caps.ContactEmail))
	}
	metamap["service_provider"] = *provider

	datasets := make([]domain.Dataset, 0, len(caps.Offerings))
	for _, off := range caps.Offerings {
		uid := off.Name
		if uid == "" {
			uid = off.ID
		}
		datasets = append(datasets, domain.Dataset{
			UID:   uid,
			Group: offeringGroup(uid, caps.ProviderName),
		})
	}

	return metamap, domain.DedupeDatasets(datasets), nil
}

// offeringGroup derives the display group from an offering URN.
// "urn:ioos:station:NDBC:46011" groups under "NDBC"; offerings without
// a recognizable URN fall back to the provider name.
func offeringGroup(uid, fallback string) string {
	parts := strings.Split(uid, ":")
	if len(parts) >= 4 && strings.EqualFold(parts[0], "urn") {
		return parts[3]
	}
	return fallback
}
