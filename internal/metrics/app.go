package metrics

import "time"

// Server metrics
const (
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"
	ServerStartTime     = "app_server_start_time_seconds"
)

// RecordHealthCheck records one health checker execution.
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	count(HealthCheckTotal, map[string]string{"check": checkName, "status": status})
	observe(HealthCheckDuration, duration, map[string]string{"check": checkName})
}

// SetServerStartTime records the server start time as a Unix timestamp.
func SetServerStartTime(timestamp int64) {
	gauge(ServerStartTime, float64(timestamp), nil)
}
