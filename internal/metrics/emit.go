package metrics

import (
	"time"

	"github.com/namelens/handlescan/internal/observability"
)

// Emission errors are dropped.
func count(name string, tags map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(name, 1, tags)
	}
}

func observe(name string, d time.Duration, tags map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Histogram(name, d, tags)
	}
}

func gauge(name string, value float64, tags map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Gauge(name, value, tags)
	}
}
