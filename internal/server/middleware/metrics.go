package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/namelens/handlescan/internal/metrics"
	"github.com/namelens/handlescan/internal/observability"
)

// statusRecorder captures the status code and body size a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += int64(n)
	return n, err
}

// getEndpointPattern prefers the matched chi route and falls back to a
// bounded label derived from the path.
func getEndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return metrics.EndpointLabel(r.URL.Path)
}

// RequestMetrics records HTTP request metrics and writes one access log line
// per request. Check API requests log at info; health, version and metrics
// scrapes log at debug.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		requestSize := r.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}
		endpoint := getEndpointPattern(r)
		duration := time.Since(start)

		metrics.RecordHTTPRequest(metrics.HTTPRequest{
			Method:       r.Method,
			Endpoint:     endpoint,
			Status:       rec.status,
			Duration:     duration,
			RequestSize:  requestSize,
			ResponseSize: rec.bytes,
		})

		logger := observability.ServerLogger
		if logger == nil {
			return
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("endpoint", endpoint),
			zap.Int("status", rec.status),
			zap.Duration("duration", duration),
			zap.Int64("request_size", requestSize),
			zap.Int64("response_size", rec.bytes),
			zap.String("request_id", GetRequestID(r.Context())),
		}
		if strings.HasPrefix(endpoint, "/v1/") {
			logger.Info("HTTP request completed", fields...)
			return
		}
		logger.Debug("HTTP request completed", fields...)
	})
}
