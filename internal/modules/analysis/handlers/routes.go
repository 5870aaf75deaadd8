package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers all analysis routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/analysis", func(r chi.Router) {
		// Fits on long histories take a while
		r.With(middleware.Timeout(5*time.Minute)).Post("/run", h.HandleRun)
		r.With(middleware.Timeout(5*time.Minute)).Post("/compare", h.HandleCompare)

		r.Get("/latest", h.HandleLatest)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.HandleListRuns)
			r.Get("/{id}", h.HandleGetRun)
			r.Get("/{id}/states", h.HandleGetStates)
			r.Get("/{id}/summary.csv", h.HandleGetSummary)
		})
	})
}
