package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namelens/handlescan/internal/core"
	"github.com/namelens/handlescan/internal/core/engine"
	"github.com/namelens/handlescan/internal/core/registry"
	apperrors "github.com/namelens/handlescan/internal/errors"
	"github.com/namelens/handlescan/internal/server/handlers"
)

type staticService struct{}

func (staticService) Check(ctx context.Context, req engine.Request) (*core.CheckReport, error) {
	return &core.CheckReport{Identifier: req.Identifier}, nil
}

func testAPI(t *testing.T) *handlers.CheckAPI {
	t.Helper()
	reg, err := registry.New("test", []core.Target{
		{Name: "GitHub", URL: "https://github.com/{}", URLMain: "https://github.com/", Category: "coding", Detection: core.DetectionStatusCode},
		{Name: "Twitch", URL: "https://twitch.tv/{}", URLMain: "https://twitch.tv/", Category: "gaming", Detection: core.DetectionStatusCode},
	})
	require.NoError(t, err)
	return &handlers.CheckAPI{Service: staticService{}, Catalog: reg}
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := New(Options{Host: "127.0.0.1"})

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestServerWithoutAPIHasNoV1Routes(t *testing.T) {
	srv := New(Options{Host: "127.0.0.1"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/categories", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerMountsCheckAPI(t *testing.T) {
	srv := New(Options{Host: "127.0.0.1", API: testAPI(t)})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body handlers.CategoriesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, []string{"coding", "gaming"}, body.Categories)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/check/octocat", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServerAdminSignalRequiresToken(t *testing.T) {
	srv := New(Options{Host: "127.0.0.1"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/signal", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	srv = New(Options{Host: "127.0.0.1", AdminToken: "secret"})
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/signal", nil))
	require.NotEqual(t, http.StatusNotFound, rec.Code)
	require.NotEqual(t, http.StatusOK, rec.Code)
}

func TestServerServeAndShutdown(t *testing.T) {
	srv := New(Options{Host: "127.0.0.1", API: testAPI(t)})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	url := "http://" + listener.Addr().String() + "/version"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) // nolint:gosec // test server
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.ErrorIs(t, <-errCh, http.ErrServerClosed)
}

func TestShutdownWithoutStart(t *testing.T) {
	srv := New(Options{Host: "127.0.0.1"})
	require.NoError(t, srv.Shutdown(context.Background()))
}
