package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/seamark/seamark/internal/domain"
	"github.com/seamark/seamark/internal/utils"
)

// maxDocumentBytes bounds how much of an upstream capabilities
// document is read. Catalog documents run to a few MB at most.
const maxDocumentBytes = 16 << 20

// newHTTPClient builds the client extractors fetch capability
// documents with. Every phase is bounded by timeout; cancellation
// propagates through the request context.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
		},
	}
}

// fetchDocument retrieves a capabilities/metadata document. Transport
// failures, timeouts and non-2xx responses come back as TransportError
// so the scheduler records them with operator-visible diagnostics.
func fetchDocument(ctx context.Context, client *http.Client, docURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, http.NoBody)
	if err != nil {
		return nil, &domain.TransportError{URL: docURL, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{URL: docURL, Err: err}
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.TransportError{
			URL: docURL,
			Err: fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, &domain.TransportError{URL: docURL, Err: err}
	}
	return body, nil
}

// withQuery returns base with the given query parameters added,
// keeping any the caller already put there. Existing keys are not
// overwritten, so explicit metadata URLs stay authoritative.
func withQuery(base string, params map[string]string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, v := range params {
		if q.Get(k) == "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
