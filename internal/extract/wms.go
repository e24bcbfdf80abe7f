package extract

import (
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/seamark/seamark/internal/domain"
)

// WMSExtractor harvests OGC Web Map Service endpoints. Named layers in
// the capabilities document become datasets, grouped under the title
// of their parent layer.
type WMSExtractor struct {
	client *http.Client
}

// NewWMSExtractor creates a WMS extractor with the given fetch timeout.
func NewWMSExtractor(timeout time.Duration) *WMSExtractor {
	return &WMSExtractor{client: newHTTPClient(timeout)}
}

type wmsCapabilities struct {
	XMLName xml.Name
	Version string `xml:"version,attr"`

	Service struct {
		Name              string `xml:"Name"`
		Title             string `xml:"Title"`
		Abstract          string `xml:"Abstract"`
		AccessConstraints string `xml:"AccessConstraints"`
		ContactOrg        string `xml:"ContactInformation>ContactPersonPrimary>ContactOrganization"`
		ContactEmail      string `xml:"ContactInformation>ContactElectronicMailAddress"`
	} `xml:"Service"`

	Formats []string   `xml:"Capability>Request>GetMap>Format"`
	Layers  []wmsLayer `xml:"Capability>Layer"`
}

type wmsLayer struct {
	Name   string     `xml:"Name"`
	Title  string     `xml:"Title"`
	Layers []wmsLayer `xml:"Layer"`
}

func (e *WMSExtractor) Extract(ctx context.Context, svc *domain.Service) (domain.Metamap, []domain.Dataset, error) {
	docURL := withQuery(svc.CapabilitiesURL(), map[string]string{
		"service": "WMS",
		"request": "GetCapabilities",
	})

	body, err := fetchDocument(ctx, e.client, docURL)
	if err != nil {
		return nil, nil, err
	}

	var caps wmsCapabilities
	if err := xml.Unmarshal(body, &caps); err != nil {
		return nil, nil, &domain.ParseError{URL: docURL, Detail: err.Error()}
	}
	if !strings.Contains(caps.XMLName.Local, "Capabilities") {
		return nil, nil, &domain.ParseError{
			URL:    docURL,
			Detail: "root element <" + caps.XMLName.Local + "> is not a WMS capabilities document",
		}
	}

	metamap := domain.Metamap{}

	service := domain.NewCheckerResult()
	service.Set("title", domain.Scalar(caps.Service.Title))
	service.Set("abstract", domain.Scalar(caps.Service.Abstract))
	if caps.Version != "" {
		service.Set("version", domain.Scalar(caps.Version))
	}
	if caps.Service.AccessConstraints != "" {
		service.Set("*access_constraints", domain.Scalar(caps.Service.AccessConstraints))
	}
	if caps.Service.ContactOrg != "" {
		service.Set("contact_organization", domain.Scalar(caps.Service.ContactOrg))
	}
	if caps.Service.ContactEmail != "" {
		service.Set("contact_email", domain.Scalar(caps.Service.ContactEmail))
	}
	metamap["service"] = *service

	if len(caps.Formats) > 0 {
		capability := domain.NewCheckerResult()
		capability.Set("map_formats", domain.ListValue(caps.Formats...))
		metamap["capability"] = *capability
	}

	var datasets []domain.Dataset
	for _, layer := range caps.Layers {
		collectLayers(layer, caps.Service.Title, &datasets)
	}

	return metamap, domain.DedupeDatasets(datasets), nil
}

// collectLayers walks the layer tree. Only named layers are
// requestable and become datasets; unnamed layers act as grouping
// containers for their children.
func collectLayers(layer wmsLayer, parentTitle string, out *[]domain.Dataset) {
	if layer.Name != "" {
		*out = append(*out, domain.Dataset{UID: layer.Name, Group: parentTitle})
	}

	group := layer.Title
	if group == "" {
		group = parentTitle
	}
	for _, child := range layer.Layers {
		collectLayers(child, group, out)
	}
}
