package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/seamark/seamark/internal/httpserver/deps"
	"github.com/seamark/seamark/internal/httpserver/handlers"
)

func init() { Register(registerServices) }

func registerServices(r chi.Router, d deps.Deps) {
	r.Route("/api/services", func(r chi.Router) {
		r.Post("/", handlers.CreateService(d))
		r.Get("/", handlers.ListServices(d))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handlers.GetService(d))
			r.Patch("/", handlers.UpdateService(d))
			r.Delete("/", handlers.DeleteService(d))
			r.Post("/start", handlers.StartService(d))
			r.Post("/stop", handlers.StopService(d))
			r.Post("/harvest", handlers.TriggerHarvest(d))
		})
	})
}
