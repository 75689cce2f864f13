package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/namelens/handlescan/internal/core"
	"github.com/namelens/handlescan/internal/output"
)

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

// reportDestination routes rendered reports to stdout, one combined file,
// or one file per identifier inside a directory.
type reportDestination struct {
	path   string
	dir    string
	stdout io.Writer
}

func destinationFromFlags(cmd *cobra.Command) (reportDestination, error) {
	path, err := cmd.Flags().GetString("out")
	if err != nil {
		return reportDestination{}, err
	}
	dir, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return reportDestination{}, err
	}

	dest := reportDestination{
		path:   strings.TrimSpace(path),
		dir:    strings.TrimSpace(dir),
		stdout: cmd.OutOrStdout(),
	}
	if dest.path != "" && dest.dir != "" {
		return reportDestination{}, fmt.Errorf("--out and --out-dir are mutually exclusive")
	}
	return dest, nil
}

// write renders reports and returns the files it created.
func (d reportDestination) write(format output.Format, reports []*core.CheckReport) ([]string, error) {
	switch {
	case d.dir != "":
		if err := os.MkdirAll(d.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
		used := make(map[string]int, len(reports))
		written := make([]string, 0, len(reports))
		for _, report := range reports {
			path := uniquePath(used, reportPath(d.dir, report.Identifier, format))
			if err := writeReportFile(path, format, []*core.CheckReport{report}); err != nil {
				return written, err
			}
			written = append(written, path)
		}
		return written, nil
	case d.path != "" && d.path != "-":
		if err := writeReportFile(d.path, format, reports); err != nil {
			return nil, err
		}
		return []string{d.path}, nil
	default:
		return nil, renderReports(d.stdout, format, reports)
	}
}

// reportPath names the per-identifier file inside dir. Identifiers may
// contain path separators, so they are flattened first.
func reportPath(dir, identifier string, format output.Format) string {
	name := strings.ToLower(strings.TrimSpace(identifier))
	name = nonFilename.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		name = "report"
	}
	return filepath.Join(dir, name+"."+outputExtension(format))
}

// uniquePath suffixes a counter when two identifiers flatten to one name.
func uniquePath(used map[string]int, path string) string {
	used[path]++
	if n := used[path]; n > 1 {
		ext := filepath.Ext(path)
		return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), n, ext)
	}
	return path
}

func outputExtension(format output.Format) string {
	switch format {
	case output.FormatJSON:
		return "json"
	case output.FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

func writeReportFile(path string, format output.Format, reports []*core.CheckReport) error {
	return writeOutputFile(path, func(w io.Writer) error {
		return renderReports(w, format, reports)
	})
}

// writeOutputFile creates path, including missing parents, and hands it to render.
func writeOutputFile(path string, render func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()
	return render(file)
}

// renderReports writes a single report with its formatter and several
// reports as one document.
func renderReports(w io.Writer, format output.Format, reports []*core.CheckReport) error {
	var (
		rendered string
		err      error
	)
	if len(reports) == 1 {
		rendered, err = output.NewFormatter(format).FormatReport(reports[0])
	} else {
		rendered, err = output.FormatReports(format, reports)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, rendered)
	return err
}
