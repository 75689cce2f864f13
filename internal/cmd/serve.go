package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/namelens/handlescan/internal/config"
	errwrap "github.com/namelens/handlescan/internal/errors"
	"github.com/namelens/handlescan/internal/metrics"
	"github.com/namelens/handlescan/internal/observability"
	"github.com/namelens/handlescan/internal/server"
	"github.com/namelens/handlescan/internal/server/handlers"
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP check API",
	Long: `Start the HTTP server exposing /v1 check endpoints with graceful shutdown support.

Endpoints:
  GET  /v1/targets[?category=c]
  GET  /v1/categories
  GET  /v1/check/{identifier}[?sites=a,b&category=c]
  POST /v1/check   {"identifier": "...", "sites": [...], "category": "..."}

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read the config file (restart to apply probe settings)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	identity := GetAppIdentity()
	namespace := identity.TelemetryNamespace()

	observability.InitServerLoggerWithProfile(identity.BinaryName, cfg.Logging.Level, cfg.Logging.Profile, namespace)
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(namespace, cfg.Metrics.Port); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
		}
	}

	rt, err := newCheckRuntime(cmd.Context(), cfg, logger)
	if err != nil {
		return errwrap.WrapInternal(cmd.Context(), err, "check runtime initialization failed")
	}

	logger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("registry_version", rt.Registry.Version()),
		zap.Int("targets", rt.Registry.Len()),
		zap.Bool("store", rt.Store != nil),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	hm := handlers.InitHealthManager(versionInfo.Version)
	if cfg.Health.Enabled {
		hm.RegisterChecker("registry", handlers.CatalogHealth{Catalog: rt.Registry, Gate: rt.Gate})
		if rt.Store != nil {
			hm.RegisterChecker("store", handlers.PingHealth{Pinger: rt.Store.DB})
		}
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}
	}

	handlers.SetAppIdentity(identity)
	handlers.SetRegistryInfo(handlers.RegistryInfo{
		Version:        rt.Registry.Version(),
		Targets:        rt.Registry.Len(),
		RankingVersion: rt.Ranks.Version(),
	})

	srv := server.New(server.Options{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		API:          &handlers.CheckAPI{Service: rt.Service, Catalog: rt.Registry},
		AdminToken:   cfg.Server.AdminToken,
	})

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Register graceful shutdown handlers (LIFO order - last registered, first executed)
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			// Sync errors are often benign (stdout/stderr already closed)
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		if err := observability.StopMetrics(); err != nil {
			logger.Warn("Metrics exporter stop failed", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		if err := rt.Close(); err != nil {
			logger.Warn("Store close failed", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}

		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: re-reading config")

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				logger.Info("No config file found - using defaults and environment variables")
				return nil
			}
			logger.Error("Failed to reload config file",
				zap.String("file", viper.ConfigFileUsed()),
				zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "config reload failed")
		}
		if _, err := config.Load(viper.GetViper()); err != nil {
			logger.Error("Reloaded config is invalid", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "config reload failed")
		}

		// TODO: rebuild the check runtime so probe and rate limit settings apply without a restart.
		logger.Info("Configuration reloaded", zap.String("file", viper.ConfigFileUsed()))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	metrics.SetServerStartTime(time.Now().Unix())

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(cmd.Context()); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return errwrap.WrapInternal(cmd.Context(), err, "server error")
	}

	return nil
}
