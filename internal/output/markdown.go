package output

import (
	"fmt"
	"strings"

	"github.com/namelens/handlescan/internal/core"
)

// MarkdownFormatter renders reports as a markdown table.
type MarkdownFormatter struct{}

// FormatReport renders a check report as Markdown.
func (f *MarkdownFormatter) FormatReport(report *core.CheckReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s availability\n\n", escapeMarkdownCell(report.Identifier)))
	sb.WriteString("| Target | Category | Status | URL | Notes |\n")
	sb.WriteString("|--------|----------|--------|-----|-------|\n")

	for _, outcome := range report.Outcomes {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			escapeMarkdownCell(outcome.Target),
			escapeMarkdownCell(outcome.Category),
			escapeMarkdownCell(statusLabel(outcome)),
			escapeMarkdownCell(outcome.URL),
			escapeMarkdownCell(formatNotes(outcome)),
		))
	}

	sb.WriteString(fmt.Sprintf("\n**Summary**: %s\n", summaryLine(report.Summary)))
	if report.RegistryVersion != "" {
		sb.WriteString(fmt.Sprintf("\n_Registry %s_\n", escapeMarkdownCell(report.RegistryVersion)))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
