package metrics

import (
	"time"

	"github.com/namelens/handlescan/internal/core"
)

// Probe metrics
const (
	ProbesTotal      = "probes_total"
	ProbeDuration    = "probe_duration_ms"
	CheckRunsTotal   = "check_runs_total"
	CheckRunDuration = "check_run_duration_ms"
	CheckRunErrors   = "check_run_errors"
)

// ProbeRecorder emits probe and run metrics. It satisfies engine.Observer
// and engine.RunObserver; with telemetry disabled every call is a no-op.
type ProbeRecorder struct{}

// ProbeFinished records one settled probe.
func (ProbeRecorder) ProbeFinished(outcome core.ProbeOutcome) {
	count(ProbesTotal, map[string]string{
		"availability": outcome.Availability.String(),
		"kind":         kindTag(outcome.ErrorKind),
	})

	if outcome.ErrorKind != core.ErrorKindSkipped {
		observe(ProbeDuration, time.Duration(outcome.ElapsedMS)*time.Millisecond, map[string]string{
			"category": categoryTag(outcome.Category),
		})
	}
}

// RunFinished records one completed check run.
func (ProbeRecorder) RunFinished(report *core.CheckReport, elapsed time.Duration) {
	if report == nil {
		return
	}

	scope := "all"
	if report.Summary.Total == 0 {
		scope = "empty"
	}
	count(CheckRunsTotal, map[string]string{"scope": scope})
	observe(CheckRunDuration, elapsed, nil)
	gauge(CheckRunErrors, float64(report.Summary.Errors), nil)
}

func kindTag(kind core.ErrorKind) string {
	if kind == "" {
		return "none"
	}
	return string(kind)
}

func categoryTag(category string) string {
	if category == "" {
		return "uncategorized"
	}
	return category
}
