package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seamark/seamark/internal/domain"
	"github.com/seamark/seamark/internal/httpserver/deps"
	"github.com/seamark/seamark/internal/logger"
	"github.com/seamark/seamark/internal/registry"
)

type createServiceRequest struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Type        string `json:"service_type"`
	URL         string `json:"url"`
	MetadataURL string `json:"metadata_url"`
	InfoURL     string `json:"info_url"`
	Contact     string `json:"contact"`
	Active      bool   `json:"active"`
}

type createServiceResponse struct {
	ID string `json:"id"`
}

// CreateService registers a new monitored service.
func CreateService(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createServiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, d, fmt.Errorf("%w: malformed request body", domain.ErrInvalid))
			return
		}

		svc := &domain.Service{
			Name:        req.Name,
			Provider:    req.Provider,
			Type:        domain.ServiceType(req.Type),
			URL:         req.URL,
			MetadataURL: req.MetadataURL,
			InfoURL:     req.InfoURL,
			Contact:     req.Contact,
			Active:      req.Active,
		}

		id, err := d.Registry.Register(r.Context(), svc)
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusCreated, createServiceResponse{ID: id})
	}
}

// ListServices returns every registered service.
func ListServices(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := d.Registry.List()
		if services == nil {
			services = []*domain.Service{}
		}
		writeJSON(w, http.StatusOK, services)
	}
}

// GetService returns the full status view of one service: the record,
// latest harvest, message history, metamap, grouped dataset inventory
// and ping series.
func GetService(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		v, err := d.Aggregator.View(r.Context(), id)
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

type updateServiceRequest struct {
	Name        *string `json:"name"`
	Provider    *string `json:"provider"`
	Type        *string `json:"service_type"`
	URL         *string `json:"url"`
	MetadataURL *string `json:"metadata_url"`
	InfoURL     *string `json:"info_url"`
	Contact     *string `json:"contact"`
}

// UpdateService applies a partial edit; absent fields are unchanged.
func UpdateService(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req updateServiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, d, fmt.Errorf("%w: malformed request body", domain.ErrInvalid))
			return
		}

		upd := registry.ServiceUpdate{
			Name:        req.Name,
			Provider:    req.Provider,
			URL:         req.URL,
			MetadataURL: req.MetadataURL,
			InfoURL:     req.InfoURL,
			Contact:     req.Contact,
		}
		if req.Type != nil {
			t := domain.ServiceType(*req.Type)
			upd.Type = &t
		}

		svc, err := d.Registry.Update(r.Context(), id, upd)
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, svc)
	}
}

// DeleteService removes a service and every derived record.
func DeleteService(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := d.Registry.Delete(r.Context(), id); err != nil {
			writeError(w, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// StartService enables scheduled monitoring for a service.
func StartService(d deps.Deps) http.HandlerFunc {
	return setActive(d, true)
}

// StopService disables scheduled monitoring. An in-flight harvest is
// allowed to finish.
func StopService(d deps.Deps) http.HandlerFunc {
	return setActive(d, false)
}

func setActive(d deps.Deps, active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := d.Registry.SetActive(r.Context(), id, active); err != nil {
			writeError(w, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// TriggerHarvest requests an immediate harvest outside the schedule.
// Returns 202 once the harvest is accepted; it runs asynchronously.
func TriggerHarvest(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := d.Harvester.RequestHarvest(r.Context(), id); err != nil {
			writeError(w, d, err)
			return
		}
		d.Logger.Info("manual harvest accepted",
			logger.String("service_id", id))
		w.WriteHeader(http.StatusAccepted)
	}
}
