package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/stretchr/testify/require"
)

func resetVersionState(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		SetVersionInfo("dev", "unknown", "unknown")
		SetAppIdentity(nil)
		SetRegistryInfo(RegistryInfo{})
	})
}

func TestVersionHandlerIncludesBuildAndRegistry(t *testing.T) {
	resetVersionState(t)
	SetVersionInfo("1.2.3", "abcd123", "2026-10-01T12:00:00Z")
	SetAppIdentity(&appidentity.Identity{BinaryName: "handlescan"})
	SetRegistryInfo(RegistryInfo{Version: "2026.10.1", Targets: 58, RankingVersion: "2026.10"})

	rec := httptest.NewRecorder()
	VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "handlescan", resp.App.Name)
	require.Equal(t, "1.2.3", resp.App.Version)
	require.Equal(t, "abcd123", resp.App.Commit)
	require.NotEmpty(t, resp.App.GoVersion)
	require.NotNil(t, resp.Registry)
	require.Equal(t, RegistryInfo{Version: "2026.10.1", Targets: 58, RankingVersion: "2026.10"}, *resp.Registry)
	require.NotEmpty(t, resp.Dependencies.Gofulmen)
	require.NotEmpty(t, resp.Dependencies.Crucible)
}

func TestVersionHandlerOmitsUnsetRegistry(t *testing.T) {
	resetVersionState(t)
	SetRegistryInfo(RegistryInfo{})

	rec := httptest.NewRecorder()
	VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	require.NotContains(t, raw, "registry")
	require.Contains(t, raw, "runtime")
}

func TestBinaryNameFallsBackToExecutable(t *testing.T) {
	require.Equal(t, "handlescan", binaryName(&appidentity.Identity{BinaryName: "handlescan"}))
	require.NotEmpty(t, binaryName(nil))
	require.NotEqual(t, "handlescan", binaryName(&appidentity.Identity{}))
}
