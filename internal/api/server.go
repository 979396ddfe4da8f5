package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-tuya/internal/bridges/tuya"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/accessory"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
	"github.com/nerrad567/gray-logic-tuya/internal/history"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Bridge is the part of *tuya.Bridge the API serves.
type Bridge interface {
	Devices() []tuya.DeviceInfo
	Device(id string) (tuya.DeviceInfo, error)
	Properties(id string) (accessory.Values, error)
	Read(ctx context.Context, id string, p accessory.Property) (any, error)
	Write(ctx context.Context, id string, p accessory.Property, value any) error
	WriteCompound(ctx context.Context, id string, values accessory.Values) error
	Exposed(id string) ([]accessory.Exposure, error)
	Snapshot(id string) (dp.Snapshot, error)
	EngineCounts() (started, total int)
	Connected() bool
}

// HistoryStore is the read side of the history repository.
type HistoryStore interface {
	GetHistory(ctx context.Context, deviceID string, filter history.Filter) ([]history.Entry, error)
	GetSnapshot(ctx context.Context, deviceID string) (history.SnapshotRecord, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Bridge  Bridge
	History HistoryStore // optional
	Metrics http.Handler // optional, served at /metrics
	Hub     *Hub         // optional, created by New when nil
	Version string
}

// Server is the HTTP API server for the bridge.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	bridge    Bridge
	history   HistoryStore
	metrics   http.Handler
	version   string
	hub       *Hub
	server    *http.Server
	cancel    context.CancelFunc
	startTime time.Time
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, bridge)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}

	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.WS, deps.Logger)
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		bridge:    deps.Bridge,
		history:   deps.History,
		metrics:   deps.Metrics,
		version:   deps.Version,
		hub:       hub,
		startTime: time.Now(),
	}, nil
}

// Hub returns the server's WebSocket hub, for registration with the
// bridge's state publisher.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Parent context; cancelling it disconnects WebSocket clients
//
// Returns:
//   - error: Always nil; listener errors are logged
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
