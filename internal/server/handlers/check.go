package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/namelens/handlescan/internal/core"
	"github.com/namelens/handlescan/internal/core/engine"
	apperrors "github.com/namelens/handlescan/internal/errors"
)

// maxCheckRequestBytes caps POST /v1/check bodies.
const maxCheckRequestBytes = 64 << 10

// CheckService runs identifier checks.
type CheckService interface {
	Check(ctx context.Context, req engine.Request) (*core.CheckReport, error)
}

// TargetCatalog lists registered targets.
type TargetCatalog interface {
	List() []core.Target
	Categories() []string
	InCategory(category string) []core.Target
	Version() string
}

// CheckAPI serves the /v1 endpoints.
type CheckAPI struct {
	Service CheckService
	Catalog TargetCatalog
}

// TargetsResponse lists registered targets.
type TargetsResponse struct {
	RegistryVersion string        `json:"registry_version"`
	Count           int           `json:"count"`
	Targets         []core.Target `json:"targets"`
}

// CategoriesResponse lists the distinct target categories.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// CheckRequest is the POST /v1/check body. Omitting sites checks every
// target; an empty list checks none.
type CheckRequest struct {
	Identifier string   `json:"identifier"`
	Sites      []string `json:"sites,omitempty"`
	Category   string   `json:"category,omitempty"`
}

// Routes mounts the API on a chi router.
func (a *CheckAPI) Routes(r chi.Router) {
	r.Get("/targets", a.ListTargets)
	r.Get("/categories", a.ListCategories)
	r.Get("/check/{identifier}", a.CheckByPath)
	r.Post("/check", a.CheckByBody)
}

// ListTargets handles GET /v1/targets[?category=c].
func (a *CheckAPI) ListTargets(w http.ResponseWriter, r *http.Request) {
	targets := a.Catalog.List()
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		targets = a.Catalog.InCategory(category)
		if len(targets) == 0 {
			err := fmt.Errorf("%w: %s", engine.ErrUnknownCategory, category)
			apperrors.RespondWithError(w, r, apperrors.FromCheckError(r.Context(), err))
			return
		}
	}

	writeJSON(w, http.StatusOK, TargetsResponse{
		RegistryVersion: a.Catalog.Version(),
		Count:           len(targets),
		Targets:         targets,
	})
}

// ListCategories handles GET /v1/categories.
func (a *CheckAPI) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: a.Catalog.Categories()})
}

// CheckByPath handles GET /v1/check/{identifier}?sites=a,b&category=c.
func (a *CheckAPI) CheckByPath(w http.ResponseWriter, r *http.Request) {
	// chi matches on RawPath when the request has one, leaving the
	// parameter escaped; otherwise it is already decoded.
	identifier := chi.URLParam(r, "identifier")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(identifier); err == nil {
			identifier = unescaped
		}
	}

	query := r.URL.Query()
	req := engine.Request{
		Identifier: identifier,
		Category:   strings.TrimSpace(query.Get("category")),
	}
	if query.Has("sites") {
		req.Sites = splitSites(query["sites"])
	}

	a.runCheck(w, r, req)
}

// CheckByBody handles POST /v1/check.
func (a *CheckAPI) CheckByBody(w http.ResponseWriter, r *http.Request) {
	var body CheckRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCheckRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "request body must be a JSON check request"))
		return
	}

	a.runCheck(w, r, engine.Request{
		Identifier: body.Identifier,
		Sites:      body.Sites,
		Category:   strings.TrimSpace(body.Category),
	})
}

func (a *CheckAPI) runCheck(w http.ResponseWriter, r *http.Request, req engine.Request) {
	report, err := a.Service.Check(r.Context(), req)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.FromCheckError(r.Context(), err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// splitSites accepts both repeated and comma-separated values. A present
// but blank parameter selects every target.
func splitSites(values []string) []string {
	var sites []string
	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				sites = append(sites, name)
			}
		}
	}
	return sites
}
