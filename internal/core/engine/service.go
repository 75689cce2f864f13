package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/namelens/handlescan/internal/core"
)

var (
	// ErrInvalidIdentifier is returned when the identifier fails pre-flight checks.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrUnknownTarget is returned when a requested target is not registered.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrUnknownCategory is returned when a category has no targets.
	ErrUnknownCategory = errors.New("unknown category")
)

// Default identifier length bounds, in runes.
const (
	DefaultMinLength = 1
	DefaultMaxLength = 64
)

// Catalog is the read-only target registry consumed by the service.
type Catalog interface {
	List() []core.Target
	Get(name string) (core.Target, error)
	InCategory(category string) []core.Target
	Version() string
}

// RunObserver is notified once per completed check.
type RunObserver interface {
	RunFinished(report *core.CheckReport, elapsed time.Duration)
}

// IdentifierRules bounds accepted identifiers.
type IdentifierRules struct {
	MinLength int
	MaxLength int
}

// Request describes one check invocation.
type Request struct {
	Identifier string
	// Sites limits the check to named targets; nil means every target.
	Sites []string
	// Category limits the check to one category; combined with Sites as an intersection.
	Category string
	// Policy overrides non-zero fields of the scheduler policy.
	Policy Policy
}

// Service is the entry point for identifier checks.
type Service struct {
	Catalog   Catalog
	Ranks     RankProvider
	Scheduler *Scheduler
	Rules     IdentifierRules
	Observer  RunObserver
	Logger    *logging.Logger
	Clock     func() time.Time
}

// CheckIdentifier probes the identifier against every registered target.
func (s *Service) CheckIdentifier(ctx context.Context, identifier string) (*core.CheckReport, error) {
	return s.Check(ctx, Request{Identifier: identifier})
}

// CheckIdentifierAgainst probes the identifier against the named targets only.
func (s *Service) CheckIdentifierAgainst(ctx context.Context, identifier string, names []string) (*core.CheckReport, error) {
	if names == nil {
		names = []string{}
	}
	return s.Check(ctx, Request{Identifier: identifier, Sites: names})
}

// Check validates the request, probes the selected targets, and returns the
// ranked report. Once validation passes a report is always returned.
func (s *Service) Check(ctx context.Context, req Request) (*core.CheckReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s == nil || s.Catalog == nil || s.Scheduler == nil {
		return nil, errors.New("check service is not configured")
	}

	identifier, err := s.validateIdentifier(req.Identifier)
	if err != nil {
		return nil, err
	}

	targets, err := s.selectTargets(req)
	if err != nil {
		return nil, err
	}

	scheduler := *s.Scheduler
	scheduler.Policy = mergePolicy(scheduler.Policy, req.Policy)

	started := s.now()
	s.debug("Check started",
		zap.String("identifier", identifier),
		zap.Int("targets", len(targets)),
		zap.Int("width", scheduler.Policy.Normalized().Width),
	)

	outcomes := scheduler.RunAll(ctx, identifier, targets)
	outcomes = AnnotateAndSort(outcomes, s.Ranks)

	completed := s.now()
	report := &core.CheckReport{
		CheckID:         uuid.New().String(),
		Identifier:      identifier,
		Outcomes:        outcomes,
		Summary:         core.Summarize(outcomes),
		RegistryVersion: s.Catalog.Version(),
		StartedAt:       started,
		CompletedAt:     completed,
	}

	elapsed := completed.Sub(started)
	s.info("Check finished",
		zap.String("identifier", identifier),
		zap.String("check_id", report.CheckID),
		zap.Int("available", report.Summary.Available),
		zap.Int("taken", report.Summary.Taken),
		zap.Int("errors", report.Summary.Errors),
		zap.Duration("elapsed", elapsed),
	)
	if s.Observer != nil {
		s.Observer.RunFinished(report, elapsed)
	}

	return report, nil
}

// ValidateIdentifier trims and checks the identifier against the service rules.
func (s *Service) ValidateIdentifier(identifier string) (string, error) {
	return s.validateIdentifier(identifier)
}

func (s *Service) validateIdentifier(raw string) (string, error) {
	identifier := strings.TrimSpace(raw)

	minLen, maxLen := DefaultMinLength, DefaultMaxLength
	if s != nil {
		if s.Rules.MinLength > 0 {
			minLen = s.Rules.MinLength
		}
		if s.Rules.MaxLength > 0 {
			maxLen = s.Rules.MaxLength
		}
	}

	length := utf8.RuneCountInString(identifier)
	if length < minLen || length > maxLen {
		return "", fmt.Errorf("%w: length %d outside %d..%d", ErrInvalidIdentifier, length, minLen, maxLen)
	}
	if !utf8.ValidString(identifier) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidIdentifier)
	}
	for _, r := range identifier {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", fmt.Errorf("%w: contains whitespace or control characters", ErrInvalidIdentifier)
		}
	}

	return identifier, nil
}

func (s *Service) selectTargets(req Request) ([]core.Target, error) {
	var targets []core.Target
	if req.Sites == nil {
		targets = s.Catalog.List()
	} else {
		seen := make(map[string]struct{}, len(req.Sites))
		targets = make([]core.Target, 0, len(req.Sites))
		var unknown []string
		for _, name := range req.Sites {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" {
				continue
			}
			target, err := s.Catalog.Get(key)
			if err != nil {
				unknown = append(unknown, strings.TrimSpace(name))
				continue
			}
			canonical := strings.ToLower(target.Name)
			if _, dup := seen[canonical]; dup {
				continue
			}
			seen[canonical] = struct{}{}
			targets = append(targets, target)
		}
		if len(unknown) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, strings.Join(unknown, ", "))
		}
	}

	category := strings.ToLower(strings.TrimSpace(req.Category))
	if category == "" {
		return targets, nil
	}
	if len(s.Catalog.InCategory(category)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	filtered := make([]core.Target, 0, len(targets))
	for _, target := range targets {
		if strings.EqualFold(target.Category, category) {
			filtered = append(filtered, target)
		}
	}
	return filtered, nil
}

func mergePolicy(base, override Policy) Policy {
	if override.Width > 0 {
		base.Width = override.Width
	}
	if override.BatchDelay > 0 {
		base.BatchDelay = override.BatchDelay
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
	return base
}

func (s *Service) now() time.Time {
	if s != nil && s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func (s *Service) debug(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Debug(msg, fields...)
	}
}

func (s *Service) info(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Info(msg, fields...)
	}
}
