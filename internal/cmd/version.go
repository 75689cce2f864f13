package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for build, registry, Crucible and Go versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := GetAppIdentity()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "%s %s\n", identity.BinaryName, versionInfo.Version)
		if !extended {
			return nil
		}

		fmt.Fprintf(out, "Commit: %s\n", versionInfo.Commit)
		fmt.Fprintf(out, "Built: %s\n", versionInfo.BuildDate)
		fmt.Fprintf(out, "Go: %s\n", runtime.Version())
		fmt.Fprintln(out)

		if cfg, err := loadConfig(); err == nil {
			if reg, ranks, err := loadCatalog(cfg); err == nil {
				fmt.Fprintf(out, "Registry: %s (%d sites)\n", reg.Version(), reg.Len())
				fmt.Fprintf(out, "Ranking: %s\n", ranks.Version())
			} else {
				fmt.Fprintf(out, "Registry: unavailable (%v)\n", err)
			}
		}

		version := crucible.GetVersion()
		fmt.Fprintf(out, "Gofulmen: %s\n", version.Gofulmen)
		fmt.Fprintf(out, "Crucible: %s\n", version.Crucible)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
