package metrics

import (
	"strconv"
	"strings"
	"time"
)

// HTTP server metrics
const (
	HTTPRequestsTotal   = "http_requests_total"
	HTTPRequestDuration = "http_request_duration_ms"
	HTTPRequestSize     = "http_request_size_bytes"
	HTTPResponseSize    = "http_response_size_bytes"
	HTTPErrorsTotal     = "http_errors_total"
)

const checkPathPrefix = "/v1/check/"

var knownEndpoints = map[string]struct{}{
	"/v1/check":      {},
	"/v1/targets":    {},
	"/v1/categories": {},
	"/version":       {},
	"/metrics":       {},
	"/admin/signal":  {},
}

// HTTPRequest describes one served request.
type HTTPRequest struct {
	Method       string
	Endpoint     string
	Status       int
	Duration     time.Duration
	RequestSize  int64
	ResponseSize int64
}

// RecordHTTPRequest emits the request counter, latency and size series, plus
// an error counter for 4xx and 5xx statuses.
func RecordHTTPRequest(req HTTPRequest) {
	status := strconv.Itoa(req.Status)
	labels := map[string]string{"method": req.Method, "endpoint": req.Endpoint, "status": status}
	count(HTTPRequestsTotal, labels)
	observe(HTTPRequestDuration, req.Duration, labels)

	sizeLabels := map[string]string{"method": req.Method, "endpoint": req.Endpoint}
	gauge(HTTPRequestSize, float64(req.RequestSize), sizeLabels)
	gauge(HTTPResponseSize, float64(req.ResponseSize), sizeLabels)

	if req.Status < 400 {
		return
	}
	errorType := "client_error"
	if req.Status >= 500 {
		errorType = "server_error"
	}
	count(HTTPErrorsTotal, map[string]string{
		"method":     req.Method,
		"endpoint":   req.Endpoint,
		"status":     status,
		"error_type": errorType,
	})
}

// EndpointLabel maps a raw request path onto a bounded label value.
// Identifiers in check paths never become label values.
func EndpointLabel(path string) string {
	switch {
	case path == "" || path == "/":
		return "/"
	case strings.HasPrefix(path, checkPathPrefix) && len(path) > len(checkPathPrefix):
		return checkPathPrefix + "{identifier}"
	case strings.HasPrefix(path, "/health"):
		return "/health/*"
	}
	if _, ok := knownEndpoints[path]; ok {
		return path
	}
	return "/unknown"
}
