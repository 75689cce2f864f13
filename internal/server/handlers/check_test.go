package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/namelens/handlescan/internal/core"
	"github.com/namelens/handlescan/internal/core/engine"
	"github.com/namelens/handlescan/internal/core/registry"
	apperrors "github.com/namelens/handlescan/internal/errors"
)

type fakeProber struct{}

func (fakeProber) Probe(ctx context.Context, identifier string, target core.Target) core.ProbeOutcome {
	availability := core.AvailabilityAvailable
	if target.Name == "GitHub" {
		availability = core.AvailabilityTaken
	}
	return core.ProbeOutcome{
		Target:       target.Name,
		URL:          target.URLFor(identifier),
		URLMain:      target.URLMain,
		Category:     target.Category,
		Availability: availability,
		Rank:         core.UnrankedRank,
	}
}

type recordingService struct {
	mu       sync.Mutex
	requests []engine.Request
	next     CheckService
}

func (s *recordingService) Check(ctx context.Context, req engine.Request) (*core.CheckReport, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.next.Check(ctx, req)
}

func (s *recordingService) last() engine.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func newTestAPI(t *testing.T) (http.Handler, *recordingService) {
	t.Helper()

	reg, err := registry.New("test", []core.Target{
		{Name: "GitHub", URL: "https://github.example/{}", URLMain: "https://github.example/", Category: "coding", Detection: core.DetectionStatusCode},
		{Name: "GitLab", URL: "https://gitlab.example/{}", URLMain: "https://gitlab.example/", Category: "coding", Detection: core.DetectionStatusCode},
		{Name: "Twitch", URL: "https://twitch.example/{}", URLMain: "https://twitch.example/", Category: "streaming", Detection: core.DetectionStatusCode},
	})
	require.NoError(t, err)

	service := &recordingService{next: &engine.Service{
		Catalog: reg,
		Scheduler: &engine.Scheduler{
			Prober: fakeProber{},
			Gate:   registry.NewGate(),
			Policy: engine.Policy{Width: 2, BatchDelay: time.Millisecond},
			Sleep:  func(ctx context.Context, d time.Duration) bool { return ctx.Err() == nil },
		},
	}}

	api := &CheckAPI{Service: service, Catalog: reg}
	router := chi.NewRouter()
	router.Route("/v1", api.Routes)
	return router, service
}

func decodeReport(t *testing.T, rec *httptest.ResponseRecorder) core.CheckReport {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report core.CheckReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	return report
}

func TestCheckByPathAllTargets(t *testing.T) {
	router, service := newTestAPI(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/check/octocat", nil))

	report := decodeReport(t, rec)
	require.Equal(t, "octocat", report.Identifier)
	require.Equal(t, core.Summary{Total: 3, Available: 2, Taken: 1}, report.Summary)
	require.Nil(t, service.last().Sites)
}

func TestCheckByPathSitesAndCategory(t *testing.T) {
	router, service := newTestAPI(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/check/octocat?sites=github,%20twitch&category=coding", nil))

	report := decodeReport(t, rec)
	require.Equal(t, []string{"github", "twitch"}, service.last().Sites)
	require.Equal(t, "coding", service.last().Category)
	require.Equal(t, 1, report.Summary.Total)
	require.Equal(t, "GitHub", report.Outcomes[0].Target)
}

func TestCheckByPathDecodesIdentifierOnce(t *testing.T) {
	cases := map[string]string{
		"/v1/check/a%2541":    "a%41",
		"/v1/check/100%25":    "100%",
		"/v1/check/a%2Fb":     "a/b",
		"/v1/check/caf%C3%A9": "café",
	}
	for path, want := range cases {
		router, service := newTestAPI(t)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		report := decodeReport(t, rec)
		require.Equal(t, want, service.last().Identifier, path)
		require.Equal(t, want, report.Identifier, path)
	}
}

func TestCheckByPathRejectsInvalidIdentifier(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/check/bad%20name", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, apperrors.CodeValidationFailed, body.Error.Code)
}

func TestCheckByPathUnknownTarget(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/check/octocat?sites=Nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Nope")
}

func TestCheckByBody(t *testing.T) {
	router, service := newTestAPI(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/check", strings.NewReader(`{"identifier":" octocat ","sites":["GitLab","gitlab"]}`))
	router.ServeHTTP(rec, req)

	report := decodeReport(t, rec)
	require.Equal(t, "octocat", report.Identifier)
	require.Equal(t, 1, report.Summary.Total)
	require.Equal(t, []string{"GitLab", "gitlab"}, service.last().Sites)
}

func TestCheckByBodyEmptySites(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/check", strings.NewReader(`{"identifier":"octocat","sites":[]}`)))

	report := decodeReport(t, rec)
	require.Zero(t, report.Summary.Total)
}

func TestCheckByBodyRejectsMalformedJSON(t *testing.T) {
	router, _ := newTestAPI(t)

	for _, body := range []string{`{`, `{"identifier":"x","extra":1}`} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/check", strings.NewReader(body)))
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestListTargetsAndCategories(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/targets?category=Coding", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var targets TargetsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &targets))
	require.Equal(t, "test", targets.RegistryVersion)
	require.Equal(t, 2, targets.Count)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/targets?category=gaming", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var categories CategoriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &categories))
	require.Equal(t, []string{"coding", "streaming"}, categories.Categories)
}

func TestSplitSites(t *testing.T) {
	require.Nil(t, splitSites([]string{""}))
	require.Equal(t, []string{"a", "b", "c"}, splitSites([]string{"a, b", "c,"}))
}
