package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// NewRouter builds the chi router over h, grounded on the teacher's
// apps/api/main.go router setup (cors.Handler with a permissive dev
// origin, plain method+path registration, no middleware stack beyond
// CORS).
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	r.Get("/stops", h.SearchStops)
	r.Get("/routes", h.GetRoutes)
	r.Get("/health", h.Health)
	r.Post("/admin/ingest/static", h.TriggerStaticIngest)
	r.Post("/admin/ingest/reliability", h.TriggerReliabilitySeed)

	return r
}
