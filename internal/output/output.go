package output

import (
	"fmt"
	"strings"

	"github.com/namelens/handlescan/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

const jsonIndent = "  "

// Formatter renders check reports.
type Formatter interface {
	FormatReport(report *core.CheckReport) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: jsonIndent}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// AvailableOnly returns a copy of the report listing only available outcomes.
// The summary still counts every outcome.
func AvailableOnly(report *core.CheckReport) *core.CheckReport {
	if report == nil {
		return nil
	}
	filtered := *report
	filtered.Outcomes = make([]core.ProbeOutcome, 0, report.Summary.Available)
	for _, outcome := range report.Outcomes {
		if outcome.Availability == core.AvailabilityAvailable {
			filtered.Outcomes = append(filtered.Outcomes, outcome)
		}
	}
	return &filtered
}

// FormatReports renders multiple reports using the requested format.
func FormatReports(format Format, reports []*core.CheckReport) (string, error) {
	if format == FormatJSON {
		return encodeJSON(reports, jsonIndent)
	}

	formatter := NewFormatter(format)
	rendered := make([]string, 0, len(reports))
	for _, report := range reports {
		if report == nil {
			continue
		}
		value, err := formatter.FormatReport(report)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		rendered = append(rendered, value)
	}

	return strings.Join(rendered, "\n\n"), nil
}
