package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds all component checks behind /healthz.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware. Upgrades leave before anything wraps the writer.
	r.Use(s.upgradeMiddleware)
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleNotFound)

	r.Get("/", s.handleStatusPage)
	r.Get("/healthz", s.handleHealth)

	r.Get("/send", s.handleSendQuery)
	r.Post("/send", s.handleSendJSON)

	r.Get("/status/{deviceId}", s.handleDeviceStatus)
	r.Get("/devices", s.handleListDevices)

	if s.journal != nil {
		r.Get("/events", s.handleListEvents)
	}

	return r
}

// handleHealth reports the server and its optional components.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	components := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check.HealthCheck(ctx); err != nil {
			components[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	body := map[string]any{
		"status":  status,
		"version": s.version,
		"devices": s.registry.Size(),
	}
	if len(components) > 0 {
		body["components"] = components
	}
	writeJSON(w, code, body)
}
