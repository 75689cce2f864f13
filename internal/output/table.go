package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/namelens/handlescan/internal/core"
)

// TableFormatter renders reports as an ASCII table.
type TableFormatter struct{}

// FormatReport renders a check report as a table.
func (f *TableFormatter) FormatReport(report *core.CheckReport) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetTitle(report.Identifier)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Target", "Category", "Status", "URL", "Notes"})

	for _, outcome := range report.Outcomes {
		t.AppendRow(table.Row{
			outcome.Target,
			outcome.Category,
			statusLabel(outcome),
			outcome.URL,
			formatNotes(outcome),
		})
	}

	t.AppendFooter(table.Row{"", "", summaryLine(report.Summary), "", ""})
	return t.Render(), nil
}

func summaryLine(summary core.Summary) string {
	return fmt.Sprintf("%d/%d available, %d taken, %d errors",
		summary.Available, summary.Total, summary.Taken, summary.Errors)
}
