package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/namelens/handlescan/internal/core"
	"github.com/namelens/handlescan/internal/core/registry"
	"github.com/namelens/handlescan/internal/output"
)

var targetsCmd = &cobra.Command{
	Use:     "targets",
	Aliases: []string{"sites"},
	Short:   "Inspect the site registry",
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sites",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := tableOrJSON(cmd)
		if err != nil {
			return err
		}
		category, err := cmd.Flags().GetString("category")
		if err != nil {
			return err
		}

		reg, err := openRegistry()
		if err != nil {
			return err
		}

		targets := reg.List()
		if category = strings.TrimSpace(category); category != "" {
			targets = reg.InCategory(category)
			if len(targets) == 0 {
				return fmt.Errorf("no sites in category %q", category)
			}
		}

		return writeTargets(cmd.OutOrStdout(), format, reg.Version(), targets)
	},
}

var targetsCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List site categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		for _, category := range reg.Categories() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", category, len(reg.InCategory(category)))
		}
		return nil
	},
}

var targetsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the registry for validation patterns that do not compile",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}

		failures := registry.NewGate().Validate(reg.List())
		return writeValidation(cmd.OutOrStdout(), reg, failures)
	},
}

func init() {
	targetsListCmd.Flags().String("category", "", "Only list sites in this category")
	targetsListCmd.Flags().String("output", string(output.FormatTable), "Output format: table|json")

	targetsCmd.AddCommand(targetsListCmd)
	targetsCmd.AddCommand(targetsCategoriesCmd)
	targetsCmd.AddCommand(targetsValidateCmd)
	rootCmd.AddCommand(targetsCmd)
}

func openRegistry() (*registry.Registry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	reg, _, err := loadCatalog(cfg)
	return reg, err
}

func tableOrJSON(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", err
	}
	format, err := output.ParseFormat(value)
	if err != nil {
		return "", err
	}
	if format != output.FormatJSON && format != output.FormatTable {
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
	return format, nil
}

func writeTargets(w io.Writer, format output.Format, version string, targets []core.Target) error {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(map[string]any{
			"registry_version": version,
			"count":            len(targets),
			"targets":          targets,
		}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Name", "Category", "Detection", "URL"})
	for _, target := range targets {
		t.AppendRow(table.Row{target.Name, target.Category, string(target.Detection), target.URL})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d sites", len(targets)), version})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func writeValidation(w io.Writer, reg *registry.Registry, failures []registry.PatternError) error {
	fmt.Fprintf(w, "Registry %s: %d sites\n", reg.Version(), reg.Len())
	if len(failures) == 0 {
		_, err := fmt.Fprintln(w, "All validation patterns compile")
		return err
	}

	for _, failure := range failures {
		fmt.Fprintf(w, "  %s: %q: %v\n", failure.Target, failure.Pattern, failure.Err)
	}
	return fmt.Errorf("%d validation pattern(s) do not compile", len(failures))
}
