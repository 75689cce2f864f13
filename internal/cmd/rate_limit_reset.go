package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/namelens/handlescan/internal/output"
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear stored rate limit state so hosts are probed again",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := tableOrJSON(cmd)
		if err != nil {
			return err
		}

		query, err := rateLimitQueryFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := query.Validate(); err != nil {
			return err
		}

		yes, err := cmd.Flags().GetBool("yes")
		if err != nil {
			return err
		}
		dryRun, err := cmd.Flags().GetBool("dry-run")
		if err != nil {
			return err
		}
		if query.All && !yes && !dryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		matched, err := db.ListRateLimits(cmd.Context(), query)
		if err != nil {
			return err
		}

		if dryRun {
			return writeRateLimitResetResult(cmd.OutOrStdout(), format, len(matched), 0, true)
		}

		deleted, err := db.ResetRateLimits(cmd.Context(), query)
		if err != nil {
			return err
		}

		return writeRateLimitResetResult(cmd.OutOrStdout(), format, len(matched), deleted, false)
	},
}

func writeRateLimitResetResult(w io.Writer, format output.Format, matched int, deleted int64, dryRun bool) error {
	result := map[string]any{
		"matched": matched,
		"deleted": deleted,
		"dry_run": dryRun,
	}

	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	if dryRun {
		_, err := fmt.Fprintf(w, "Would delete %d rate limit entr(ies)\n", matched)
		return err
	}
	_, err := fmt.Fprintf(w, "Deleted %d/%d rate limit entr(ies)\n", deleted, matched)
	return err
}

func init() {
	rateLimitQueryFlags(rateLimitResetCmd)
	rateLimitResetCmd.Flags().Bool("yes", false, "Confirm destructive reset")
	rateLimitResetCmd.Flags().Bool("dry-run", false, "Show what would be deleted")
	rateLimitResetCmd.Flags().String("output", string(output.FormatTable), "Output format: table|json")
}
