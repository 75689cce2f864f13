package registry

import (
	"regexp"
	"sort"
	"sync"

	"github.com/namelens/handlescan/internal/core"
)

// Gate decides whether a target accepts an identifier's format.
// Patterns are compiled once and shared across goroutines.
type Gate struct {
	patterns sync.Map // pattern -> compiledPattern
}

type compiledPattern struct {
	re  *regexp.Regexp
	err error
}

// PatternError describes a validation pattern that failed to compile.
type PatternError struct {
	Target  string
	Pattern string
	Err     error
}

// NewGate returns an empty gate.
func NewGate() *Gate {
	return &Gate{}
}

// Accepts reports whether the identifier may be probed against target.
// A missing or uncompilable pattern accepts everything.
func (g *Gate) Accepts(identifier string, target core.Target) bool {
	if target.ValidationPattern == "" {
		return true
	}
	compiled := g.compile(target.ValidationPattern)
	if compiled.err != nil {
		return true
	}
	return compiled.re.MatchString(identifier)
}

// Validate compiles every pattern in targets and returns the failures.
func (g *Gate) Validate(targets []core.Target) []PatternError {
	var failures []PatternError
	for _, target := range targets {
		if target.ValidationPattern == "" {
			continue
		}
		if compiled := g.compile(target.ValidationPattern); compiled.err != nil {
			failures = append(failures, PatternError{
				Target:  target.Name,
				Pattern: target.ValidationPattern,
				Err:     compiled.err,
			})
		}
	}
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Target < failures[j].Target
	})
	return failures
}

// CompileErrors returns every pattern that failed to compile so far.
func (g *Gate) CompileErrors() map[string]error {
	out := make(map[string]error)
	if g == nil {
		return out
	}
	g.patterns.Range(func(key, value any) bool {
		if compiled, ok := value.(compiledPattern); ok && compiled.err != nil {
			out[key.(string)] = compiled.err
		}
		return true
	})
	return out
}

func (g *Gate) compile(pattern string) compiledPattern {
	if g == nil {
		re, err := regexp.Compile(pattern)
		return compiledPattern{re: re, err: err}
	}
	if cached, ok := g.patterns.Load(pattern); ok {
		return cached.(compiledPattern)
	}
	re, err := regexp.Compile(pattern)
	actual, _ := g.patterns.LoadOrStore(pattern, compiledPattern{re: re, err: err})
	return actual.(compiledPattern)
}
