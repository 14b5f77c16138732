package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mrweisheng/wscontroller/internal/hub"
	"github.com/mrweisheng/wscontroller/internal/infrastructure/config"
	"github.com/mrweisheng/wscontroller/internal/infrastructure/logging"
	"github.com/mrweisheng/wscontroller/internal/journal"
	"github.com/mrweisheng/wscontroller/internal/registry"
	"github.com/mrweisheng/wscontroller/internal/relay"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by infrastructure clients reported on /healthz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.ServerConfig
	Logger     *logging.Logger
	Registry   *registry.Registry
	Hub        http.Handler
	Dispatcher *relay.Dispatcher

	// Journal enables GET /events when set.
	Journal journal.Repository

	// Checks are reported by /healthz under their map keys.
	Checks map[string]HealthChecker

	Version string
}

// Server is the HTTP server of the relay hub.
type Server struct {
	cfg        config.ServerConfig
	logger     *logging.Logger
	registry   *registry.Registry
	hub        http.Handler
	dispatcher *relay.Dispatcher
	journal    journal.Repository
	checks     map[string]HealthChecker
	version    string
	now        func() time.Time

	handler http.Handler

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("hub is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	s := &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		registry:   deps.Registry,
		hub:        deps.Hub,
		dispatcher: deps.Dispatcher,
		journal:    deps.Journal,
		checks:     deps.Checks,
		version:    deps.Version,
		now:        time.Now,
	}
	s.handler = s.buildRouter()
	return s, nil
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listener and serves in a background goroutine.
//
// Binding happens before Start returns, so a port already in use is reported
// here rather than logged later. The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	// No read or write timeout: both would apply to hijacked device
	// connections, which the hub times out on its own.
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.ReadHeader) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}
	s.listener = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete. Hijacked
// device connections are not tracked by net/http; the registry closes them.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// compile-time check that the hub can be mounted.
var _ http.Handler = (*hub.Hub)(nil)
