package domain

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/seamark/seamark/internal/utils"
)

// PingRecord is one liveness probe outcome. Records form an
// append-only, bounded series per service with non-decreasing
// timestamps.
type PingRecord struct {
	ServiceID string    `json:"service_id"`
	Timestamp time.Time `json:"timestamp"`
	Reachable bool      `json:"reachable"`
	// StatusCode is the HTTP response code, or -1 when the request
	// never completed.
	StatusCode int   `json:"status_code"`
	LatencyMS  int64 `json:"latency_ms"`
}

// Operational reports whether an HTTP status code counts as alive.
// 400 is accepted: it means the endpoint answered but disliked the
// bare probe request (common for capability endpoints probed without
// a query).
func Operational(code int) bool {
	return code == http.StatusOK || code == http.StatusBadRequest
}

// probeClient builds a short-lived HTTP client for a single probe:
// no redirects, no keep-alives, every phase bounded by timeout.
func probeClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 0,
				}).DialContext(ctx, network, addr)
			},
			TLSHandshakeTimeout: timeout,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			DisableKeepAlives: true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Probe issues one bounded-timeout reachability check against url and
// returns the resulting record (without ServiceID, the caller owns
// attribution). It never returns an error: failures are encoded in
// the record.
func Probe(ctx context.Context, url string, timeout time.Duration) PingRecord {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	rec := PingRecord{Timestamp: start, StatusCode: -1}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return rec
	}

	resp, err := probeClient(timeout).Do(req)
	rec.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		return rec
	}
	defer utils.Close(resp.Body)

	rec.StatusCode = resp.StatusCode
	rec.Reachable = Operational(resp.StatusCode)
	return rec
}
