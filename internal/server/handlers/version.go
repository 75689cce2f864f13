package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/crucible"
)

var buildInfo = AppInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"}

var (
	buildMu        sync.RWMutex
	appIdentity    *appidentity.Identity
	loadedRegistry *RegistryInfo
)

// SetVersionInfo records the build metadata injected at link time.
func SetVersionInfo(version, commit, buildDate string) {
	buildMu.Lock()
	defer buildMu.Unlock()
	buildInfo.Version = version
	buildInfo.Commit = commit
	buildInfo.BuildDate = buildDate
}

// SetAppIdentity sets the identity whose binary name /version reports.
func SetAppIdentity(id *appidentity.Identity) {
	buildMu.Lock()
	defer buildMu.Unlock()
	appIdentity = id
}

// SetRegistryInfo records the loaded site registry and ranking table versions.
// A zero value removes the registry block from /version.
func SetRegistryInfo(info RegistryInfo) {
	buildMu.Lock()
	defer buildMu.Unlock()
	if info == (RegistryInfo{}) {
		loadedRegistry = nil
		return
	}
	loadedRegistry = &info
}

// VersionResponse is the /version payload.
type VersionResponse struct {
	App          AppInfo       `json:"app"`
	Dependencies DepInfo       `json:"dependencies"`
	Registry     *RegistryInfo `json:"registry,omitempty"`
	Runtime      RuntimeInfo   `json:"runtime"`
}

// RegistryInfo describes the data the checks run against.
type RegistryInfo struct {
	Version        string `json:"version"`
	Targets        int    `json:"targets"`
	RankingVersion string `json:"ranking_version,omitempty"`
}

// AppInfo contains application version details
type AppInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// DepInfo contains dependency version information
type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

// RuntimeInfo contains runtime environment information
type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// VersionHandler reports build, registry and runtime details.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentVersion())
}

func currentVersion() VersionResponse {
	buildMu.RLock()
	app := buildInfo
	id := appIdentity
	var reg *RegistryInfo
	if loadedRegistry != nil {
		copied := *loadedRegistry
		reg = &copied
	}
	buildMu.RUnlock()

	app.Name = binaryName(id)
	app.GoVersion = runtime.Version()
	deps := crucible.GetVersion()

	return VersionResponse{
		App: app,
		Dependencies: DepInfo{
			Gofulmen: deps.Gofulmen,
			Crucible: deps.Crucible,
		},
		Registry: reg,
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	}
}

func binaryName(id *appidentity.Identity) string {
	if id != nil && id.BinaryName != "" {
		return id.BinaryName
	}
	if len(os.Args) > 0 && os.Args[0] != "" {
		return filepath.Base(os.Args[0])
	}
	return "unknown"
}
