package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/reconcile-cli/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags, each overriding the matching config key when set
	cfgFile            string
	debug              bool
	flagSchemaFile     string
	flagLenient        bool
	flagLogFile        string
	flagWorkers        int
	flagProcessingDate string
	flagDelimiter      string
	flagSheetName      string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile heterogeneous tabular exports into one canonical dataset",
	Long: `reconcile maps drifting column names onto a versioned canonical schema,
canonicalizes categorical spellings, coerces and imputes numeric columns,
removes duplicates, computes derived fields and combines every source into a
single analysis-ready table. Every change is written to an audit log.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.reconcile/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug output")
	pf.StringVar(&flagSchemaFile, "schema", "", "schema YAML file (overrides config; default is the built-in schema)")
	pf.BoolVar(&flagLenient, "lenient", false, "keep unmapped columns instead of dropping them (overrides strict_schema)")
	pf.StringVar(&flagLogFile, "log-file", "", "audit log path (overrides config)")
	pf.IntVar(&flagWorkers, "workers", 0, "concurrent source loads (overrides config)")
	pf.StringVar(&flagProcessingDate, "processing-date", "", "reference date YYYY-MM-DD for elapsed-time fields (overrides config)")
	pf.StringVar(&flagDelimiter, "delimiter", "", "CSV delimiter, e.g. ';' or 'tab' (overrides config)")
	pf.StringVar(&flagSheetName, "sheet-name", "", "XLSX sheet to read (overrides config; default first sheet)")
}

func loadConfig() {
	if err := ensureConfig(); err != nil {
		// Non-fatal here: commands that need config report it themselves
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
	}
}

// ensureConfig loads configuration once and applies CLI overrides.
func ensureConfig() error {
	if cfg != nil {
		return nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return err
	}
	f := rootCmd.PersistentFlags()
	if f.Changed("schema") {
		c.SchemaFile = flagSchemaFile
	}
	if f.Changed("lenient") {
		c.StrictSchema = !flagLenient
	}
	if f.Changed("log-file") && flagLogFile != "" {
		c.LogFile = flagLogFile
	}
	if f.Changed("workers") && flagWorkers > 0 {
		c.Workers = flagWorkers
	}
	if f.Changed("processing-date") {
		c.ProcessingDate = flagProcessingDate
	}
	if f.Changed("delimiter") {
		c.Delimiter = flagDelimiter
	}
	if f.Changed("sheet-name") {
		c.SheetName = flagSheetName
	}
	cfg = c
	return nil
}
