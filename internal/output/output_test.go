package output

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/namelens/handlescan/internal/core"
)

func sampleReport() *core.CheckReport {
	outcomes := []core.ProbeOutcome{
		{Target: "GitHub", URL: "https://github.com/delta", Category: "coding", Availability: core.AvailabilityTaken, Rank: 1, StatusCode: 200},
		{Target: "GitLab", URL: "https://gitlab.com/delta", Category: "coding", Availability: core.AvailabilityAvailable, Rank: 2, StatusCode: 404},
		{Target: "Slow", URL: "https://slow.example/delta", Availability: core.AvailabilityIndeterminate, ErrorKind: core.ErrorKindTimeout, ErrorDetail: "deadline exceeded", Rank: core.UnrankedRank},
	}
	return &core.CheckReport{
		CheckID:         "chk-1",
		Identifier:      "delta",
		Outcomes:        outcomes,
		Summary:         core.Summarize(outcomes),
		RegistryVersion: "2026.01",
		StartedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CompletedAt:     time.Date(2026, 1, 1, 0, 0, 2, 0, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestFormatters(t *testing.T) {
	report := sampleReport()

	tableRendered, err := NewFormatter(FormatTable).FormatReport(report)
	require.NoError(t, err)
	require.Contains(t, tableRendered, "TARGET")
	require.Contains(t, tableRendered, "GitLab")
	require.Contains(t, tableRendered, "available")
	require.Contains(t, tableRendered, "timeout")
	require.Contains(t, strings.ToLower(tableRendered), "1/3 available, 1 taken, 1 errors")

	jsonRendered, err := NewFormatter(FormatJSON).FormatReport(report)
	require.NoError(t, err)
	require.Contains(t, jsonRendered, "\"identifier\": \"delta\"")
	require.Contains(t, jsonRendered, "\"target_name\": \"GitHub\"")
	require.Contains(t, jsonRendered, "\"availability\": \"taken\"")

	markdownRendered, err := NewFormatter(FormatMarkdown).FormatReport(report)
	require.NoError(t, err)
	require.Contains(t, markdownRendered, "| Target | Category | Status | URL | Notes |")
	require.Contains(t, markdownRendered, "deadline exceeded")
	require.Contains(t, markdownRendered, "_Registry 2026.01_")
}

func TestAvailableOnlyKeepsSummary(t *testing.T) {
	report := sampleReport()
	filtered := AvailableOnly(report)

	require.Len(t, filtered.Outcomes, 1)
	require.Equal(t, "GitLab", filtered.Outcomes[0].Target)
	require.Equal(t, report.Summary, filtered.Summary)
	require.Len(t, report.Outcomes, 3)
	require.Nil(t, AvailableOnly(nil))
}

func TestStatusLabel(t *testing.T) {
	require.Equal(t, "rate limited", statusLabel(core.ProbeOutcome{ErrorKind: core.ErrorKindRateLimited}))
	require.Equal(t, "skipped", statusLabel(core.ProbeOutcome{ErrorKind: core.ErrorKindSkipped}))
	require.Equal(t, "error", statusLabel(core.ProbeOutcome{ErrorKind: core.ErrorKindNetwork}))
	require.Equal(t, "taken", statusLabel(core.ProbeOutcome{Availability: core.AvailabilityTaken}))
}

func TestFormatNotes(t *testing.T) {
	notes := formatNotes(core.ProbeOutcome{
		Availability: core.AvailabilityIndeterminate,
		ErrorKind:    core.ErrorKindNetwork,
		ErrorDetail:  "connection refused",
		ElapsedMS:    12,
	})
	require.Equal(t, "connection refused; 12ms", notes)

	notes = formatNotes(core.ProbeOutcome{
		Availability: core.AvailabilityIndeterminate,
		ErrorKind:    core.ErrorKindSkipped,
		ErrorDetail:  "skipped",
	})
	require.Empty(t, notes)
}

func TestMarkdownEscaping(t *testing.T) {
	report := &core.CheckReport{
		Identifier: "pipe|test",
		Outcomes: []core.ProbeOutcome{
			{Target: "A|B", Availability: core.AvailabilityTaken},
		},
	}

	rendered, err := NewFormatter(FormatMarkdown).FormatReport(report)
	require.NoError(t, err)
	require.Contains(t, rendered, "pipe\\|test")
	require.Contains(t, rendered, "A\\|B")
}

func TestFormatReportsNonJSON(t *testing.T) {
	rendered, err := FormatReports(FormatMarkdown, []*core.CheckReport{sampleReport(), nil, sampleReport()})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rendered, "## "))
	require.Equal(t, 2, strings.Count(rendered, "## delta availability"))
}

func TestFormatReportsJSON(t *testing.T) {
	rendered, err := FormatReports(FormatJSON, []*core.CheckReport{sampleReport()})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rendered, "["))
	require.Contains(t, rendered, "\"check_id\": \"chk-1\"")
}

func TestSaveXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, SaveXLSX(path, []*core.CheckReport{sampleReport()}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close() // nolint:errcheck

	rows, err := f.GetRows(outcomesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, "Identifier", rows[0][0])
	require.Equal(t, []string{"delta", "GitHub", "coding", "taken"}, rows[1][:4])
	require.Equal(t, "timeout", rows[3][4])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	require.Equal(t, []string{"delta", "chk-1", "2026.01", "3", "1", "1", "1"}, summary[1][:7])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []*core.CheckReport{sampleReport()}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close() // nolint:errcheck

	require.Equal(t, []string{outcomesSheet, summarySheet}, f.GetSheetList())
}

func TestJSONFormatterKeepsURLsLiteral(t *testing.T) {
	report := &core.CheckReport{
		Identifier: "delta",
		Outcomes:   []core.ProbeOutcome{{Target: "Query", URL: "https://q.example/?user=delta&x=1"}},
	}

	compact, err := (&JSONFormatter{}).FormatReport(report)
	require.NoError(t, err)
	require.Contains(t, compact, "https://q.example/?user=delta&x=1")
	require.NotContains(t, compact, "\n")

	indented, err := (&JSONFormatter{Indent: "  "}).FormatReport(report)
	require.NoError(t, err)
	require.Contains(t, indented, "\n  ")
	require.False(t, strings.HasSuffix(indented, "\n"))
}
