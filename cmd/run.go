package cmd

import (
	"fmt"

	"github.com/KaramelBytes/reconcile-cli/internal/manifest"
	"github.com/KaramelBytes/reconcile-cli/internal/reconcile"
	"github.com/spf13/cobra"
)

var (
	runOut      outputFlags
	runStageDir string
)

var runCmd = &cobra.Command{
	Use:   "run <file>...",
	Short: "Reconcile one or more CSV/TSV/XLSX sources into a canonical dataset",
	Long: `Run every source through schema mapping, categorical normalization,
numeric imputation, deduplication and derived fields, then combine them.
Unreadable sources are skipped with a warning. Fatal conditions (no readable
source, a numeric column with nothing to impute from) write no output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfig(); err != nil {
			return err
		}
		s, err := loadSchema()
		if err != nil {
			return err
		}
		lopt, err := loaderOptions()
		if err != nil {
			return err
		}
		asOf, err := cfg.AsOf()
		if err != nil {
			return err
		}

		m := manifest.New("", "run")
		m.SchemaVersion = s.Version
		m.Strict = cfg.StrictSchema
		m.AuditLog = cfg.LogFile
		log, err := openAudit(m.RunID, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer log.Close()

		fail := func(err error) error {
			m.Fail(err)
			saveManifest(cmd, m, runOut.manifest)
			return err
		}

		p := reconcile.New(s, reconcile.Options{
			Strict:  cfg.StrictSchema,
			Workers: cfg.Workers,
			AsOf:    asOf,
			Loader:  lopt,
		}, log)
		res, err := p.Run(cmd.Context(), args)
		m.Apply(res)
		if err != nil {
			return fail(err)
		}

		written, err := writeOutputs(cmd, &runOut, res.Batch, s, log, runStageDir, res.Staged)
		if err != nil {
			return fail(err)
		}
		m.Outputs = written

		out := cmd.OutOrStdout()
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "⚠ %s\n", w)
		}
		if res.Batch.PartiallyMapped {
			fmt.Fprintln(out, "⚠ Output is partially mapped: unmapped columns were kept (lenient schema)")
		}
		fmt.Fprintf(out, "✓ %s → %s\n", res.Message, written[0])
		if debug {
			fmt.Fprintf(out, "  run %s, %d audit entries, log %s\n", m.RunID, len(log.Entries()), cfg.LogFile)
		}
		saveManifest(cmd, m, runOut.manifest)
		return nil
	},
}

func saveManifest(cmd *cobra.Command, m *manifest.Manifest, path string) {
	if path == "" {
		return
	}
	if err := m.Save(path); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %v\n", err)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runOut.register(runCmd)
	runCmd.Flags().StringVar(&runStageDir, "stage-dir", "", "also write each source's canonical batch to this directory")
}
