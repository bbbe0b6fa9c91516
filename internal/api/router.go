package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bcnelson/roster-monitor/internal/api/handler"
	"github.com/bcnelson/roster-monitor/internal/api/middleware"
	"github.com/bcnelson/roster-monitor/internal/service"
	"github.com/bcnelson/roster-monitor/internal/storage"
)

// NewRouter creates a new HTTP router with all routes configured.
// bootstrapKey authenticates requests until the first API key is created.
func NewRouter(store storage.Storage, monitor *service.MonitorService, bootstrapKey string) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes (auth required, JSON Content-Type)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.Auth(store, bootstrapKey))

		// API keys
		keyHandler := handler.NewAPIKeyHandler(store)
		r.Route("/keys", func(r chi.Router) {
			r.Get("/", keyHandler.List)
			r.Post("/", keyHandler.Create)
			r.Delete("/{id}", keyHandler.Delete)
		})

		// Groups
		groupHandler := handler.NewGroupHandler(store, monitor)
		r.Get("/groups", groupHandler.List)
		r.Route("/groups/{id}", func(r chi.Router) {
			r.Get("/", groupHandler.Get)
			r.Get("/baseline", groupHandler.Baseline)
			r.Get("/history", groupHandler.History)
		})

		// Runs
		runHandler := handler.NewRunHandler(monitor)
		r.Post("/runs", runHandler.Trigger)
	})

	return r
}
