package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/namelens/handlescan/internal/core/store"
	"github.com/namelens/handlescan/internal/output"
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rate limit state",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := tableOrJSON(cmd)
		if err != nil {
			return err
		}

		query, err := rateLimitQueryFromFlags(cmd)
		if err != nil {
			return err
		}
		if query.Validate() != nil {
			query.All = true
		}

		outPath, err := cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
		outPath = strings.TrimSpace(outPath)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		entries, err := db.ListRateLimits(cmd.Context(), query)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if outPath == "" || outPath == "-" {
			return writeRateLimitEntries(cmd.OutOrStdout(), format, entries, now)
		}
		return writeOutputFile(outPath, func(w io.Writer) error {
			return writeRateLimitEntries(w, format, entries, now)
		})
	},
}

func writeRateLimitEntries(w io.Writer, format output.Format, entries []store.RateLimitEntry, now time.Time) error {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	lines := []string{"Rate Limits", ""}
	if len(entries) == 0 {
		lines = append(lines, "(no stored rate limit state)")
	}
	for _, entry := range entries {
		backoff := "-"
		if until := entry.State.BackoffUntil; until != nil {
			backoff = until.UTC().Format(time.RFC3339)
			if left := entry.State.BackoffRemaining(now); left > 0 {
				backoff += fmt.Sprintf(" (%s left)", left.Round(time.Second))
			}
		}
		lines = append(lines, fmt.Sprintf("%s: count=%d backoff_until=%s", entry.Host, entry.State.RequestCount, backoff))
	}

	_, err := fmt.Fprint(w, ascii.DrawBox(strings.Join(lines, "\n"), 0))
	return err
}

func init() {
	rateLimitQueryFlags(rateLimitListCmd)
	rateLimitListCmd.Flags().String("output", string(output.FormatTable), "Output format: table|json")
	rateLimitListCmd.Flags().String("out", "", "Write output to a file (default stdout)")
}
