package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/KaramelBytes/reconcile-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set reconcile configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfig(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		schemaFile := cfg.SchemaFile
		if schemaFile == "" {
			schemaFile = "(built-in)"
		}
		fmt.Fprintf(out, "schema_file: %s\n", schemaFile)
		fmt.Fprintf(out, "strict_schema: %t\n", cfg.StrictSchema)
		fmt.Fprintf(out, "log_file: %s\n", cfg.LogFile)
		fmt.Fprintf(out, "output_dir: %s\n", cfg.OutputDir)
		if cfg.ProcessingDate != "" {
			fmt.Fprintf(out, "processing_date: %s\n", cfg.ProcessingDate)
		}
		fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		if cfg.SheetName != "" {
			fmt.Fprintf(out, "sheet_name: %s\n", cfg.SheetName)
		}
		fmt.Fprintf(out, "derived_default: %g\n", cfg.DerivedDefault)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// Start from the file and env only, so transient flags are not persisted.
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		switch key {
		case "schema_file":
			c.SchemaFile = val
		case "strict_schema":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for strict_schema: %v", val)
			}
			c.StrictSchema = b
		case "log_file":
			c.LogFile = val
		case "output_dir":
			c.OutputDir = val
		case "processing_date":
			c.ProcessingDate = val
			if _, err := c.AsOf(); err != nil {
				return err
			}
		case "workers":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for workers: %v", val)
			}
			c.Workers = i
		case "delimiter":
			c.Delimiter = val
			if _, err := c.DelimiterRune(); err != nil {
				return err
			}
		case "sheet_name":
			c.SheetName = val
		case "derived_default":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for derived_default: %w", err)
			}
			c.DerivedDefault = f
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = nil
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
