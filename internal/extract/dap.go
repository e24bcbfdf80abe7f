package extract

import (
	"bufio"
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/seamark/seamark/internal/domain"
)

// DAPExtractor harvests OPeNDAP endpoints through their DAS (dataset
// attribute structure) document. A DAP URL serves one dataset; its
// global attributes become the metamap and identify the dataset.
type DAPExtractor struct {
	client *http.Client
}

// NewDAPExtractor creates a DAP extractor with the given fetch timeout.
func NewDAPExtractor(timeout time.Duration) *DAPExtractor {
	return &DAPExtractor{client: newHTTPClient(timeout)}
}

func (e *DAPExtractor) Extract(ctx context.Context, svc *domain.Service) (domain.Metamap, []domain.Dataset, error) {
	docURL := svc.CapabilitiesURL()
	if !strings.HasSuffix(docURL, ".das") {
		docURL += ".das"
	}

	body, err := fetchDocument(ctx, e.client, docURL)
	if err != nil {
		return nil, nil, err
	}

	containers, err := parseDAS(string(body))
	if err != nil {
		return nil, nil, &domain.ParseError{URL: docURL, Detail: err.Error()}
	}

	metamap := domain.Metamap{}
	global := domain.NewCheckerResult()
	variables := domain.NewCheckerResult()

	for _, c := range containers {
		if c.name == "NC_GLOBAL" || c.name == "GLOBAL" {
			for _, attr := range c.attrs {
				if len(attr.values) == 1 {
					global.Set(attr.name, domain.Scalar(attr.values[0]))
				} else {
					global.Set(attr.name, domain.ListValue(attr.values...))
				}
			}
			continue
		}
		// Variable containers: record which attributes each variable
		// carries, the values themselves are payload science.
		names := make([]string, 0, len(c.attrs))
		for _, attr := range c.attrs {
			names = append(names, attr.name)
		}
		variables.Set(c.name, domain.ListValue(names...))
	}

	metamap["global_attributes"] = *global
	if len(variables.Fields) > 0 {
		metamap["variables"] = *variables
	}

	ds := domain.Dataset{
		UID:   dapUID(global, svc.URL),
		Group: dapGroup(global),
	}
	return metamap, domain.DedupeDatasets([]domain.Dataset{ds}), nil
}

func dapUID(global *domain.CheckerResult, svcURL string) string {
	for _, key := range []string{"id", "title"} {
		if v, ok := global.Fields[key]; ok && len(v.Values) > 0 && v.Values[0] != "" {
			return v.Values[0]
		}
	}
	if u, err := url.Parse(svcURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return svcURL
}

func dapGroup(global *domain.CheckerResult) string {
	for _, key := range []string{"naming_authority", "project", "institution"} {
		if v, ok := global.Fields[key]; ok && len(v.Values) > 0 && v.Values[0] != "" {
			return v.Values[0]
		}
	}
	return "DAP"
}

type dasAttr struct {
	name   string
	values []string
}

type dasContainer struct {
	name  string
	attrs []dasAttr
}

// parseDAS reads a DAS document:
//
//	Attributes {
//	    NC_GLOBAL {
//	        String title "Buoy data";
//	    }
//	    wind_speed {
//	        String units "m/s";
//	    }
//	}
//
// Attribute lines inside nested sub-containers attach to their
// top-level container.
func parseDAS(body string) ([]dasContainer, error) {
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var containers []dasContainer
	depth := 0
	current := -1
	sawRoot := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasSuffix(line, "{"):
			name := strings.TrimSpace(strings.TrimSuffix(line, "{"))
			if depth == 0 {
				if !strings.EqualFold(name, "attributes") {
					return nil, errDASRoot(name)
				}
				sawRoot = true
			} else if depth == 1 {
				containers = append(containers, dasContainer{name: name})
				current = len(containers) - 1
			}
			depth++

		case line == "}":
			depth--
			if depth < 0 {
				return nil, errDASUnbalanced
			}
			if depth == 1 {
				current = -1
			}

		default:
			if current < 0 {
				continue
			}
			attr, ok := parseDASAttr(line)
			if !ok {
				continue
			}
			containers[current].attrs = append(containers[current].attrs, attr)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawRoot {
		return nil, errDASNoRoot
	}
	if depth != 0 {
		return nil, errDASUnbalanced
	}
	return containers, nil
}

// parseDASAttr splits one "Type name value[, value...];" line.
func parseDASAttr(line string) (dasAttr, bool) {
	line = strings.TrimSuffix(line, ";")
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 3 {
		return dasAttr{}, false
	}
	return dasAttr{name: parts[1], values: parseDASValues(parts[2])}, true
}

// parseDASValues handles quoted string lists and bare numerics.
func parseDASValues(s string) []string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, `"`) {
		return []string{s}
	}

	var values []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, `"`)
		values = append(values, part)
	}
	return values
}
