package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/namelens/handlescan/internal/observability"
	"github.com/namelens/handlescan/internal/server/handlers"
)

const (
	adminSignalPath    = "/admin/signal"
	adminRatePerMinute = 10
	adminRateBurst     = 5
)

func (s *Server) registerRoutes() {
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)
	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	if s.opts.API != nil {
		s.router.Route("/v1", s.opts.API.Routes)
	}

	if s.opts.AdminToken != "" {
		s.registerAdminSignal(s.opts.AdminToken)
	}
}

// registerAdminSignal exposes the signal manager over HTTP so an operator can
// trigger a config reload or a graceful shutdown without shell access.
func (s *Server) registerAdminSignal(token string) {
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: token,
		RateLimit: adminRatePerMinute,
		RateBurst: adminRateBurst,
	})
	s.router.Post(adminSignalPath, handler.ServeHTTP)

	if logger := observability.ServerLogger; logger != nil {
		logger.Warn("Admin signal endpoint enabled; keep this server off the public internet",
			zap.String("path", adminSignalPath),
			zap.Int("rate_limit_per_minute", adminRatePerMinute),
			zap.Int("burst", adminRateBurst))
	}
}
