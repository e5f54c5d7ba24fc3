package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/homie-device/internal/audit"
	"github.com/nerrad567/homie-device/internal/device"
	"github.com/nerrad567/homie-device/internal/infrastructure/config"
	"github.com/nerrad567/homie-device/internal/infrastructure/logging"
	"github.com/nerrad567/homie-device/internal/journal"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is a component whose health the API reports.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RetainedLister lists the retained topics recorded for a device.
type RetainedLister interface {
	Entries(ctx context.Context, deviceID string) ([]journal.Entry, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Registry *device.Registry

	// Checks are the components reported by GET /health, keyed by name.
	Checks map[string]HealthChecker

	// Audit records state and value changes and serves GET /audit. Optional.
	Audit audit.Repository

	// Retained serves GET /devices/{id}/retained. Optional.
	Retained RetainedLister

	Version string
}

// Server is the status API of the daemon.
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	registry *device.Registry
	checks   map[string]HealthChecker
	audit    audit.Repository
	retained RetainedLister
	version  string

	mu     sync.Mutex
	server *http.Server
	addr   string
}

// New creates an API server. It does not listen until Start is called.
//
// Returns:
//   - error: If the logger or registry is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		registry: deps.Registry,
		checks:   deps.Checks,
		audit:    deps.Audit,
		retained: deps.Retained,
		version:  deps.Version,
	}, nil
}

// Start binds the listener and serves in a background goroutine. Binding
// errors (port in use) are returned; later serve errors are logged.
func (s *Server) Start(_ context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.logger.Info("API server listening", "address", s.addr)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close shuts the server down, waiting for in-flight requests.
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
