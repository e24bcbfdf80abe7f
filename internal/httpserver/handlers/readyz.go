package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/seamark/seamark/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready    bool   `json:"ready"`
	Services int    `json:"services"`
	LastLoad string `json:"last_load,omitempty"`
	Redis    string `json:"redis"`
}

// Readyz reports whether the engine can serve traffic: the store must
// answer a ping. A cold registry is still ready, it is just empty.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyzResponse{
			Ready:    true,
			Services: d.MemoryIndex.Count(),
			Redis:    "ok",
		}
		if last := d.MemoryIndex.LastLoad(); !last.IsZero() {
			resp.LastLoad = last.UTC().Format(time.RFC3339)
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if d.RedisClient == nil || d.RedisClient.Ping(ctx).Err() != nil {
			resp.Ready = false
			resp.Redis = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
