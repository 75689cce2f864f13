package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

const (
	defaultMetricsNamespace = "handlescan"
	defaultMetricsPort      = 9090
)

var (
	// TelemetrySystem receives probe, run and HTTP metrics. Nil disables emission.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the collected metrics in Prometheus format.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// InitMetrics starts a Prometheus exporter on port (0 picks a free port) and
// routes telemetry through it under namespace. Any exporter started by an
// earlier call is stopped first.
func InitMetrics(namespace string, port int) error {
	if err := StopMetrics(); err != nil {
		return fmt.Errorf("stop previous exporter: %w", err)
	}
	if namespace == "" {
		namespace = defaultMetricsNamespace
	}
	if port < 0 {
		port = 0
	}

	exporter := exporters.NewPrometheusExporter(namespace, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter on :%d: %w", port, err)
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{
		Enabled: true,
		Emitter: exporter,
	})
	if err != nil {
		_ = exporter.Stop()
		return fmt.Errorf("create telemetry system: %w", err)
	}

	PrometheusExporter = exporter
	TelemetrySystem = sys
	metricsPort = boundPort(exporter.GetAddr(), port)
	return nil
}

// StopMetrics stops the exporter and disables emission. Safe to call when
// metrics were never started.
func StopMetrics() error {
	exporter := PrometheusExporter
	PrometheusExporter = nil
	TelemetrySystem = nil
	metricsPort = 0
	if exporter == nil {
		return nil
	}
	return exporter.Stop()
}

// GetMetricsPort returns the port the exporter is bound to, or 0 when stopped.
func GetMetricsPort() int {
	return metricsPort
}

func boundPort(addr string, requested int) int {
	if _, portStr, err := net.SplitHostPort(addr); err == nil {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			return port
		}
	}
	if requested > 0 {
		return requested
	}
	return defaultMetricsPort
}
