package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/namelens/handlescan/internal/core"
)

//go:embed data/sites.yaml
var embeddedSites []byte

// ErrNotFound is returned when a target name is not in the registry.
var ErrNotFound = errors.New("target not found")

// Registry is the immutable catalog of probeable targets.
type Registry struct {
	version string
	targets []core.Target
	byName  map[string]int
}

type document struct {
	Version string       `yaml:"version"`
	Sites   []siteRecord `yaml:"sites"`
}

type siteRecord struct {
	Name              string `yaml:"name"`
	URL               string `yaml:"url"`
	URLMain           string `yaml:"url_main"`
	Category          string `yaml:"category"`
	Detection         string `yaml:"detection"`
	ErrorMessage      string `yaml:"error_message"`
	ValidationPattern string `yaml:"validation_pattern"`
}

// Default loads the registry bundled with the binary.
func Default() (*Registry, error) {
	return Load(embeddedSites)
}

// LoadFile loads a registry from a YAML file on disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied registry path
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	reg, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return reg, nil
}

// Open returns the registry at path, or the bundled one when path is empty.
func Open(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return LoadFile(path)
}

// Load decodes and validates a YAML registry document.
func Load(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	targets := make([]core.Target, 0, len(doc.Sites))
	for i, site := range doc.Sites {
		detection, err := core.ParseDetection(site.Detection)
		if err != nil {
			return nil, fmt.Errorf("site %d (%s): %w", i, site.Name, err)
		}
		targets = append(targets, core.Target{
			Name:              strings.TrimSpace(site.Name),
			URL:               strings.TrimSpace(site.URL),
			URLMain:           strings.TrimSpace(site.URLMain),
			Category:          site.Category,
			Detection:         detection,
			ErrorMessage:      site.ErrorMessage,
			ValidationPattern: site.ValidationPattern,
		})
	}

	return New(doc.Version, targets)
}

// New builds a registry from targets, validating each one.
func New(version string, targets []core.Target) (*Registry, error) {
	reg := &Registry{
		version: strings.TrimSpace(version),
		targets: make([]core.Target, 0, len(targets)),
		byName:  make(map[string]int, len(targets)),
	}

	for _, target := range targets {
		target.Category = strings.ToLower(strings.TrimSpace(target.Category))
		if err := validateTarget(target); err != nil {
			return nil, err
		}
		key := normalizeName(target.Name)
		if _, exists := reg.byName[key]; exists {
			return nil, fmt.Errorf("duplicate target name: %q", target.Name)
		}
		reg.byName[key] = len(reg.targets)
		reg.targets = append(reg.targets, target)
	}

	return reg, nil
}

func validateTarget(target core.Target) error {
	if strings.TrimSpace(target.Name) == "" {
		return errors.New("target name is required")
	}
	if count := strings.Count(target.URL, core.Placeholder); count != 1 {
		return fmt.Errorf("target %q: url must contain exactly one %s placeholder, found %d", target.Name, core.Placeholder, count)
	}
	switch target.Detection {
	case core.DetectionStatusCode:
	case core.DetectionBodyMessage:
		if target.ErrorMessage == "" {
			return fmt.Errorf("target %q: body_message detection requires error_message", target.Name)
		}
	default:
		return fmt.Errorf("target %q: unknown detection strategy %q", target.Name, target.Detection)
	}
	return nil
}

// Version returns the registry data version.
func (r *Registry) Version() string {
	if r == nil {
		return ""
	}
	return r.version
}

// Len returns the number of targets.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.targets)
}

// List returns every target in registry order.
func (r *Registry) List() []core.Target {
	if r == nil {
		return nil
	}
	out := make([]core.Target, len(r.targets))
	copy(out, r.targets)
	return out
}

// Get looks up a target by case-insensitive name.
func (r *Registry) Get(name string) (core.Target, error) {
	if r == nil {
		return core.Target{}, ErrNotFound
	}
	idx, ok := r.byName[normalizeName(name)]
	if !ok {
		return core.Target{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return r.targets[idx], nil
}

// Categories returns the sorted set of categories.
func (r *Registry) Categories() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, target := range r.targets {
		if target.Category == "" {
			continue
		}
		seen[target.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for category := range seen {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

// InCategory returns targets in the given category, matched case-insensitively.
func (r *Registry) InCategory(category string) []core.Target {
	if r == nil {
		return nil
	}
	wanted := strings.ToLower(strings.TrimSpace(category))
	out := make([]core.Target, 0)
	for _, target := range r.targets {
		if target.Category == wanted {
			out = append(out, target)
		}
	}
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
