package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// API description
		r.Get("/", s.handleIndex)

		// Health check
		r.Get("/health", s.handleHealth)

		// Value type endpoints
		r.Route("/types", func(r chi.Router) {
			r.Get("/", s.handleListValueTypes)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetValueType)
				r.Put("/", s.handleUpsertValueType)
			})
		})

		// Device type endpoints
		r.Route("/devices", func(r chi.Router) {
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDeviceType)
				r.Put("/", s.handleUpsertDeviceType)
			})
		})

		// Measurement endpoints
		r.Route("/values", func(r chi.Router) {
			r.Get("/", s.handleListValues)
			r.Post("/", s.handleInsertValue)
		})

		// WebSocket live feed
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleIndex returns the API description.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "rdp-api",
		"description": "Sensor measurement persistence service",
		"version":     s.version,
	})
}

// handleHealth returns the server health status.
//
// The database ping is included when a database handle was provided;
// optional subsystems report their connection state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}

	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("health check: database unreachable", "error", err)
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp["database"] = "ok"
		}
	}

	if s.mqtt != nil {
		if s.mqtt.IsConnected() {
			resp["mqtt"] = "connected"
		} else {
			resp["mqtt"] = "disconnected"
		}
	}

	writeJSON(w, status, resp)
}
