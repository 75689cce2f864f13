package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/namelens/handlescan/internal/core/store"
)

var rateLimitCmd = &cobra.Command{
	Use:     "ratelimit",
	Aliases: []string{"rate-limit"},
	Short:   "Inspect or clear persisted per-host rate limit state",
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}

// rateLimitQueryFlags registers the host selectors shared by list and reset.
func rateLimitQueryFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("all", false, "Select every host")
	cmd.Flags().String("host", "", "Select a single host (exact match)")
	cmd.Flags().String("domain", "", "Select a domain and its subdomains")
	cmd.Flags().Bool("backoff-only", false, "Only hosts with a 429 backoff window recorded")
}

func rateLimitQueryFromFlags(cmd *cobra.Command) (store.RateLimitQuery, error) {
	var query store.RateLimitQuery
	var err error
	if query.All, err = cmd.Flags().GetBool("all"); err != nil {
		return query, err
	}
	if query.Host, err = cmd.Flags().GetString("host"); err != nil {
		return query, err
	}
	if query.Domain, err = cmd.Flags().GetString("domain"); err != nil {
		return query, err
	}
	if query.BackoffOnly, err = cmd.Flags().GetBool("backoff-only"); err != nil {
		return query, err
	}
	query.Host = strings.TrimSpace(query.Host)
	query.Domain = strings.TrimSpace(query.Domain)
	return query, nil
}
