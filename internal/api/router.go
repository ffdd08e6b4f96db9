package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Get("/{slug}", s.handleGetJob)
			r.Post("/{slug}/run", s.handleRunJob)
		})

		r.Route("/job-results", func(r chi.Router) {
			r.Get("/", s.handleListResults)
			r.Get("/{id}", s.handleGetResult)
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)
			r.Get("/{name}", s.handleGetDevice)
			r.Delete("/{name}", s.handleDeleteDevice)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
// The device count is read from the database, not the registry cache.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	count := s.registry.GetDeviceCount()
	if devices, err := s.registry.ListDevices(r.Context()); err != nil {
		s.logger.Warn("health: listing devices failed", "error", err)
		status = "degraded"
	} else {
		count = len(devices)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    s.version,
		"jobs":       len(s.runner.Jobs()),
		"devices":    count,
		"ws_clients": s.hub.ClientCount(),
	})
}
