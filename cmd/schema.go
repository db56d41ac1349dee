package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/KaramelBytes/reconcile-cli/internal/utils"
	"github.com/spf13/cobra"
)

var schemaExportPath string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect or export the canonical schema and alias tables",
}

var schemaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List canonical columns, policies and aliases",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfig(); err != nil {
			return err
		}
		s, err := loadSchema()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Schema %s (provenance column: %s)\n\n", s.Version, s.ProvenanceColumn)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "COLUMN\tTYPE\tPOLICY\tDEFAULT\tALIASES")
		for _, c := range s.Columns {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Type, c.Policy, c.Default, strings.Join(c.Aliases, ", "))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if len(s.Derived) > 0 {
			fmt.Fprintln(out, "\nDerived fields:")
			for _, d := range s.Derived {
				fmt.Fprintf(out, "- %s: %s(%s), default %g\n", d.Name, d.Kind, strings.Join(d.Inputs(), ", "), d.Default)
			}
		}
		if len(s.Categories) > 0 {
			fmt.Fprintf(out, "\nCategory aliases: %d canonical values\n", len(s.Categories))
		}
		return nil
	},
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the effective schema as YAML (a starting point for --schema)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfig(); err != nil {
			return err
		}
		s, err := loadSchema()
		if err != nil {
			return err
		}
		b, err := s.Marshal()
		if err != nil {
			return err
		}
		if schemaExportPath == "" {
			_, err := cmd.OutOrStdout().Write(b)
			return err
		}
		if err := utils.SafeWriteFile(schemaExportPath, b); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote schema %s to %s\n", s.Version, schemaExportPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaShowCmd)
	schemaCmd.AddCommand(schemaExportCmd)
	schemaExportCmd.Flags().StringVarP(&schemaExportPath, "output", "o", "", "write YAML to this file instead of stdout")
}
