package output

import (
	"fmt"
	"strings"

	"github.com/namelens/handlescan/internal/core"
)

func statusLabel(outcome core.ProbeOutcome) string {
	switch outcome.Availability {
	case core.AvailabilityAvailable:
		return "available"
	case core.AvailabilityTaken:
		return "taken"
	}

	switch outcome.ErrorKind {
	case core.ErrorKindRateLimited:
		return "rate limited"
	case core.ErrorKindSkipped:
		return "skipped"
	case core.ErrorKindTimeout:
		return "timeout"
	case core.ErrorKindCancelled:
		return "cancelled"
	case "":
		return "unknown"
	default:
		return "error"
	}
}

func formatNotes(outcome core.ProbeOutcome) string {
	parts := []string{}
	if outcome.Availability == core.AvailabilityIndeterminate {
		detail := strings.TrimSpace(outcome.ErrorDetail)
		if detail != "" && detail != string(outcome.ErrorKind) {
			parts = append(parts, detail)
		}
	}
	if outcome.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("http %d", outcome.StatusCode))
	}
	if outcome.ElapsedMS > 0 {
		parts = append(parts, fmt.Sprintf("%dms", outcome.ElapsedMS))
	}
	return strings.Join(parts, "; ")
}
