package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/handlescan/internal/core"
	"github.com/namelens/handlescan/internal/core/engine"
	"github.com/namelens/handlescan/internal/observability"
	"github.com/namelens/handlescan/internal/output"
)

var checkCmd = &cobra.Command{
	Use:   "check <identifier> [identifier...]",
	Short: "Check username availability",
	Long: `Probe every registered site (or a subset) for each identifier and report
whether the username is available, taken, or could not be determined.

Ctrl+C stops outstanding probes; the partial report is still printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringSlice("sites", nil, "Only check these sites (comma-separated names)")
	checkCmd.Flags().String("category", "", "Only check sites in this category")
	checkCmd.Flags().String("output", "table", "Output format: table, json, markdown")
	checkCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	checkCmd.Flags().String("out-dir", "", "Write one file per identifier to a directory")
	checkCmd.Flags().String("xlsx", "", "Also export the reports to an Excel workbook")
	checkCmd.Flags().Bool("available-only", false, "Only list available sites (summary still counts all)")
	checkCmd.Flags().Int("concurrency", 0, "Probes per batch (default from config)")
	checkCmd.Flags().Duration("timeout", 0, "Per-probe timeout (default from config)")
	checkCmd.Flags().Duration("batch-delay", 0, "Pause between batches (default from config)")
}

type checkService interface {
	Check(ctx context.Context, req engine.Request) (*core.CheckReport, error)
	ValidateIdentifier(identifier string) (string, error)
}

// checkOptions carries the flag values that shape a run.
type checkOptions struct {
	Sites    []string
	Category string
	Policy   engine.Policy
}

func runCheck(cmd *cobra.Command, args []string) error {
	opts, err := checkOptionsFromFlags(cmd)
	if err != nil {
		return err
	}

	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}
	availableOnly, err := cmd.Flags().GetBool("available-only")
	if err != nil {
		return err
	}
	xlsxPath, err := cmd.Flags().GetString("xlsx")
	if err != nil {
		return err
	}
	dest, err := destinationFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newCheckRuntime(ctx, cfg, observability.CLILogger)
	if err != nil {
		return err
	}
	defer rt.Close() // nolint:errcheck // best-effort cleanup

	reports, err := runChecks(ctx, rt.Service, args, opts)
	if err != nil {
		if len(reports) > 0 {
			_, _ = dest.write(format, reports)
		}
		return err
	}

	if trimmed := strings.TrimSpace(xlsxPath); trimmed != "" {
		if err := output.SaveXLSX(trimmed, reports); err != nil {
			return err
		}
		observability.CLILogger.Info("Wrote workbook", zap.String("path", trimmed))
	}

	if availableOnly {
		for i, report := range reports {
			reports[i] = output.AvailableOnly(report)
		}
	}

	written, err := dest.write(format, reports)
	for _, path := range written {
		observability.CLILogger.Info("Wrote report", zap.String("path", path))
	}
	return err
}

func checkOptionsFromFlags(cmd *cobra.Command) (checkOptions, error) {
	var opts checkOptions

	sites, err := cmd.Flags().GetStringSlice("sites")
	if err != nil {
		return opts, err
	}
	opts.Sites = normalizeSites(sites)

	if opts.Category, err = cmd.Flags().GetString("category"); err != nil {
		return opts, err
	}
	opts.Category = strings.TrimSpace(opts.Category)

	if opts.Policy.Width, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return opts, err
	}
	if opts.Policy.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return opts, err
	}
	if opts.Policy.BatchDelay, err = cmd.Flags().GetDuration("batch-delay"); err != nil {
		return opts, err
	}
	if opts.Policy.Width < 0 || opts.Policy.Timeout < 0 || opts.Policy.BatchDelay < 0 {
		return opts, fmt.Errorf("--concurrency, --timeout and --batch-delay must not be negative")
	}

	return opts, nil
}

// normalizeSites trims names and drops blanks; nil means every site.
func normalizeSites(values []string) []string {
	var sites []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				sites = append(sites, trimmed)
			}
		}
	}
	return sites
}

// runChecks checks each identifier in turn. A cancelled context still yields
// a report for the identifier in progress; later identifiers are not started.
// runChecks validates every identifier before probing any of them. A later
// failure still returns the reports finished so far.
func runChecks(ctx context.Context, svc checkService, identifiers []string, opts checkOptions) ([]*core.CheckReport, error) {
	for _, identifier := range identifiers {
		if _, err := svc.ValidateIdentifier(identifier); err != nil {
			return nil, fmt.Errorf("check %q: %w", identifier, err)
		}
	}

	reports := make([]*core.CheckReport, 0, len(identifiers))
	for _, identifier := range identifiers {
		if len(reports) > 0 && ctx.Err() != nil {
			break
		}

		started := time.Now()
		report, err := svc.Check(ctx, engine.Request{
			Identifier: identifier,
			Sites:      opts.Sites,
			Category:   opts.Category,
			Policy:     opts.Policy,
		})
		if err != nil {
			return reports, fmt.Errorf("check %q: %w", identifier, err)
		}

		if logger := observability.CLILogger; logger != nil {
			logger.Debug("Check finished",
				zap.String("identifier", report.Identifier),
				zap.Int("total", report.Summary.Total),
				zap.Int("available", report.Summary.Available),
				zap.Duration("elapsed", time.Since(started)))
		}
		reports = append(reports, report)
	}
	return reports, nil
}
