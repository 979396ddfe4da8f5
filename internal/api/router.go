package api

import (
	"net/http"
	"time"

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

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	r.Get(s.wsPath(), s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Get("/properties", s.handleGetProperties)
				r.Put("/properties", s.handleWriteProperties)
				r.Get("/properties/{property}", s.handleReadProperty)
				r.Put("/properties/{property}", s.handleWriteProperty)
				r.Get("/exposed", s.handleGetExposed)
				r.Get("/snapshot", s.handleGetSnapshot)
				r.Get("/history", s.handleGetHistory)
			})
		})
	})

	return r
}

// wsPath returns the configured WebSocket path.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth returns the bridge health summary.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	started, total := s.bridge.EngineCounts()
	connected := s.bridge.Connected()

	status := "ok"
	if !connected || started < total {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":            status,
		"version":           s.version,
		"mqtt_connected":    connected,
		"engines_started":   started,
		"devices_managed":   total,
		"websocket_clients": s.hub.ClientCount(),
		"uptime_seconds":    int64(time.Since(s.startTime).Seconds()),
	})
}
