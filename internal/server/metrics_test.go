package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry/exporters"
	"github.com/stretchr/testify/require"

	apperrors "github.com/namelens/handlescan/internal/errors"
	"github.com/namelens/handlescan/internal/observability"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func stubExporter(t *testing.T, transport roundTripFunc) {
	t.Helper()
	originalClient, originalExporter := metricsProxyClient, observability.PrometheusExporter
	t.Cleanup(func() {
		metricsProxyClient = originalClient
		observability.PrometheusExporter = originalExporter
	})
	metricsProxyClient = &http.Client{Transport: transport}
	observability.PrometheusExporter = exporters.NewPrometheusExporter("test", ":9090")
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code
}

func TestMetricsHandlerProxiesPrometheusOutput(t *testing.T) {
	var proxied string
	stubExporter(t, func(req *http.Request) (*http.Response, error) {
		proxied = req.URL.String()
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("# HELP probes_total Probes by availability\nprobes_total{availability=\"taken\"} 1\n")),
			Header:     make(http.Header),
		}
		resp.Header.Set("Content-Type", "text/plain; version=0.0.4")
		resp.Header.Set("Connection", "close")
		return resp, nil
	})

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasSuffix(proxied, "/metrics"))
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	require.Empty(t, rec.Header().Get("Connection"))
	require.Contains(t, rec.Body.String(), "probes_total")
}

func TestMetricsHandlerWithoutExporter(t *testing.T) {
	original := observability.PrometheusExporter
	observability.PrometheusExporter = nil
	t.Cleanup(func() { observability.PrometheusExporter = original })

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "SERVICE_UNAVAILABLE", decodeErrorCode(t, rec))
}

func TestMetricsHandlerExporterUnreachable(t *testing.T) {
	stubExporter(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "SERVICE_UNAVAILABLE", decodeErrorCode(t, rec))
}
