package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/namelens/handlescan/internal/core"
	"github.com/namelens/handlescan/internal/core/registry"
	apperrors "github.com/namelens/handlescan/internal/errors"
	"github.com/namelens/handlescan/internal/metrics"
)

// Health check results
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

// HealthResponse represents the aggregate health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse represents individual probe response
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker defines interface for health checkable components
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// ErrDegraded marks a check that still serves traffic with reduced fidelity.
var ErrDegraded = stderrors.New("degraded")

// HealthManager manages health checks and probe states
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	version  string
}

// NewHealthManager creates a new health manager
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
	}
}

// RegisterChecker registers a health checker
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checkers))
	for name := range hm.checkers {
		names = append(names, name)
	}
	hm.mu.RUnlock()
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			checks[name] = StatusTimeout
			continue
		}

		hm.mu.RLock()
		checker := hm.checkers[name]
		hm.mu.RUnlock()

		start := time.Now()
		err := checker.CheckHealth(ctx)
		switch {
		case err == nil:
			checks[name] = StatusHealthy
		case stderrors.Is(err, ErrDegraded):
			checks[name] = StatusDegraded
		default:
			checks[name] = StatusUnhealthy
		}
		metrics.RecordHealthCheck(name, err == nil, time.Since(start))
	}

	return checks
}

func determineOverallStatus(checks map[string]string) string {
	degraded := false
	for _, status := range checks {
		if status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if status == StatusDegraded || status == StatusTimeout {
			degraded = true
		}
	}
	if degraded {
		return StatusDegraded
	}
	return StatusHealthy
}

// HealthHandler handles aggregate health check requests
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checkCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := hm.runHealthChecks(checkCtx)
	status := determineOverallStatus(checks)

	if status == StatusUnhealthy {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "aggregate health check failed")
		apperrors.RespondWithError(w, r, enrichHealthEnvelope(envelope, "", status, checks))
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// LivenessHandler reports whether the process is running. It runs no checks.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProbeResponse{Status: StatusHealthy, Timestamp: time.Now().UTC()})
}

// ReadinessHandler reports whether checks can be served.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.probe(w, r, "ready", "readiness probe failed", 5*time.Second)
}

// StartupHandler reports whether initialization finished.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.probe(w, r, "startup", "startup probe failed", 3*time.Second)
}

func (hm *HealthManager) probe(w http.ResponseWriter, r *http.Request, name, failure string, timeout time.Duration) {
	checkCtx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	checks := hm.runHealthChecks(checkCtx)
	status := determineOverallStatus(checks)

	if status == StatusUnhealthy {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", failure)
		apperrors.RespondWithError(w, r, enrichHealthEnvelope(envelope, name, status, checks))
		return
	}

	writeJSON(w, http.StatusOK, ProbeResponse{Status: status, Timestamp: time.Now().UTC()})
}

func enrichHealthEnvelope(envelope *errors.ErrorEnvelope, probe, status string, checks map[string]string) *errors.ErrorEnvelope {
	if envelope == nil {
		return nil
	}

	details := map[string]interface{}{
		"status": status,
	}
	if len(checks) > 0 {
		details["checks"] = checks
	}
	if probe != "" {
		details["probe"] = probe
	}
	envelope = envelope.WithDetails(details)

	var unhealthy []string
	for name, result := range checks {
		if result != StatusHealthy {
			unhealthy = append(unhealthy, name)
		}
	}
	sort.Strings(unhealthy)

	contextData := map[string]interface{}{"status": status}
	if probe != "" {
		contextData["probe"] = probe
	}
	if len(unhealthy) > 0 {
		contextData["unhealthy_checks"] = unhealthy
	}

	envelope, _ = envelope.WithContext(contextData)
	return envelope
}

// CatalogHealth reports the site registry as unhealthy when empty and
// degraded when any validation pattern fails to compile.
type CatalogHealth struct {
	Catalog interface{ List() []core.Target }
	Gate    interface {
		Validate(targets []core.Target) []registry.PatternError
	}
}

// CheckHealth implements HealthChecker.
func (c CatalogHealth) CheckHealth(ctx context.Context) error {
	if c.Catalog == nil {
		return fmt.Errorf("registry not loaded")
	}
	targets := c.Catalog.List()
	if len(targets) == 0 {
		return fmt.Errorf("registry is empty")
	}
	if c.Gate != nil && len(c.Gate.Validate(targets)) > 0 {
		return ErrDegraded
	}
	return nil
}

// PingHealth wraps a database-style PingContext.
type PingHealth struct {
	Pinger interface {
		PingContext(ctx context.Context) error
	}
}

// CheckHealth implements HealthChecker.
func (p PingHealth) CheckHealth(ctx context.Context) error {
	if p.Pinger == nil {
		return fmt.Errorf("store not configured")
	}
	return p.Pinger.PingContext(ctx)
}

// Global health manager instance
var (
	globalHealthManager *HealthManager
	globalHealthMu      sync.RWMutex
)

// InitHealthManager initializes the global health manager
func InitHealthManager(version string) *HealthManager {
	globalHealthMu.Lock()
	defer globalHealthMu.Unlock()
	globalHealthManager = NewHealthManager(version)
	return globalHealthManager
}

// GetHealthManager returns the global health manager
func GetHealthManager() *HealthManager {
	globalHealthMu.RLock()
	defer globalHealthMu.RUnlock()
	return globalHealthManager
}

func withGlobalManager(probe string, serve func(*HealthManager, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager := GetHealthManager(); manager != nil {
			serve(manager, w, r)
			return
		}

		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "health manager not initialized")
		apperrors.RespondWithError(w, r, enrichHealthEnvelope(envelope, probe, "unknown", nil))
	}
}

// Handlers backed by the global manager
var (
	HealthHandler    = withGlobalManager("aggregate", (*HealthManager).HealthHandler)
	LivenessHandler  = withGlobalManager("live", (*HealthManager).LivenessHandler)
	ReadinessHandler = withGlobalManager("ready", (*HealthManager).ReadinessHandler)
	StartupHandler   = withGlobalManager("startup", (*HealthManager).StartupHandler)
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
