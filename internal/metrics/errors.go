package metrics

import "strconv"

// Error metrics
const (
	ErrorsTotal      = "errors_total"
	PanicsTotal      = "panics_total"
	ErrorsByEndpoint = "errors_by_endpoint"
)

// RecordError counts an error response by envelope code and HTTP status.
func RecordError(code string, status int) {
	count(ErrorsTotal, map[string]string{
		"error_code":  code,
		"http_status": strconv.Itoa(status),
	})
}

// RecordPanic counts a recovered handler panic.
func RecordPanic() {
	count(PanicsTotal, nil)
}

// RecordErrorByEndpoint counts an error response by route.
func RecordErrorByEndpoint(path string, code string) {
	count(ErrorsByEndpoint, map[string]string{
		"endpoint":   EndpointLabel(path),
		"error_code": code,
	})
}
