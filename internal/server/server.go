package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/namelens/handlescan/internal/errors"
	"github.com/namelens/handlescan/internal/observability"
	"github.com/namelens/handlescan/internal/server/handlers"
	servermw "github.com/namelens/handlescan/internal/server/middleware"
)

// Options configures the HTTP server.
type Options struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// API serves /v1; nil leaves only health, version and metrics routes.
	API *handlers.CheckAPI
	// AdminToken enables the bearer-authenticated signal endpoint.
	AdminToken string
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	opts   Options

	mu     sync.Mutex
	server *http.Server
}

// New creates a new HTTP server instance
func New(opts Options) *Server {
	r := chi.NewRouter()

	// Standard chi middleware
	r.Use(middleware.RealIP)

	// Our custom middleware in order (RequestID → Metrics → Recovery)
	r.Use(servermw.RequestID)      // 1. Request ID (early for correlation)
	r.Use(servermw.RequestMetrics) // 2. Metrics (measure everything)
	r.Use(servermw.Recovery)       // 3. Panic recovery

	// Unmatched routes answer with the same JSON envelope as handlers
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		opts:   opts,
	}

	s.registerRoutes()

	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.Addr()
	srv := s.httpServer(addr)

	s.logStart(addr)
	return srv.ListenAndServe()
}

// Serve serves on an existing listener; used when the port is picked by the OS.
func (s *Server) Serve(listener net.Listener) error {
	srv := s.httpServer(listener.Addr().String())

	s.logStart(listener.Addr().String())
	return srv.Serve(listener)
}

func (s *Server) httpServer(addr string) *http.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       durationOr(s.opts.ReadTimeout, 30*time.Second),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      durationOr(s.opts.WriteTimeout, 60*time.Second),
		IdleTimeout:       durationOr(s.opts.IdleTimeout, 120*time.Second),
	}
	return s.server
}

func (s *Server) logStart(addr string) {
	if observability.ServerLogger == nil {
		return
	}
	observability.ServerLogger.Info("Starting HTTP server",
		zap.String("host", s.opts.Host),
		zap.Int("port", s.opts.Port),
		zap.String("addr", addr),
		zap.Bool("check_api", s.opts.API != nil))
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, fmt.Sprintf("%d", s.opts.Port))
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.opts.Port
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
