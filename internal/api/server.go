package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-sensorgw/internal/audit"
	"github.com/nerrad567/gray-logic-sensorgw/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-sensorgw/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-sensorgw/internal/metadata"
	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

const gracefulShutdownTimeout = 10 * time.Second

// MetadataService resolves and invalidates device metadata.
// Satisfied by *metadata.Service.
type MetadataService interface {
	Resolve(ctx context.Context, data metadata.DeviceData, factory metadata.AttributeFactory) error
	Invalidate(id metadata.DeviceID) bool
}

// TokenAuthenticator resolves bearer tokens. Satisfied by *auth.Authenticator.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (store.Row, error)
}

// HealthChecker is any component that can report its own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies of the API server. Logger, Metadata and Auth
// are required.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Metadata MetadataService
	Auth     TokenAuthenticator
	Audit    audit.Repository

	// Checks are reported by /api/v1/health under their map key.
	Checks map[string]HealthChecker

	// Gatherer backs /metrics. Nil means prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Version  string
}

// Server is the HTTP API server.
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	metadata  MetadataService
	auth      TokenAuthenticator
	auditRepo audit.Repository
	checks    map[string]HealthChecker
	gatherer  prometheus.Gatherer
	version   string
	startTime time.Time

	mu     sync.Mutex
	server *http.Server
	addr   string
}

// New validates deps and creates a Server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Metadata == nil {
		return nil, fmt.Errorf("metadata service is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		metadata:  deps.Metadata,
		auth:      deps.Auth,
		auditRepo: deps.Audit,
		checks:    deps.Checks,
		gatherer:  gatherer,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listening on %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}

	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
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

// Addr returns the bound address once Start has returned.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close waits up to 10 seconds for in-flight requests, then closes.
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

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
