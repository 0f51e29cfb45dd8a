package publicapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// RegisterRoutes mounts the public API under /api/public. CORS is open since
// origin checks are per project.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/api/public", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"https://*", "http://*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/projects/{projectID}/info", h.ProjectInfo)
		r.Post("/sessions/create", h.CreateSession)
		r.Post("/assistants/message", h.SendMessage)
		r.Get("/health", h.Health)
	})
}
