package cmd

import (
	"fmt"

	"github.com/KaramelBytes/reconcile-cli/internal/manifest"
	"github.com/KaramelBytes/reconcile-cli/internal/reconcile"
	"github.com/spf13/cobra"
)

var combineOut outputFlags

var combineCmd = &cobra.Command{
	Use:   "combine <file>...",
	Short: "Union already canonical files (e.g. from run --stage-dir) into one dataset",
	Long: `Combine concatenates canonical files in the order given. Columns are the
union of all inputs; rows are neither re-imputed nor deduplicated. Files
without a provenance column are tagged from their file name.`,
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
		m := manifest.New("", "combine")
		m.SchemaVersion = s.Version
		m.AuditLog = cfg.LogFile
		log, err := openAudit(m.RunID, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer log.Close()

		merged, outcomes, err := reconcile.NewCombiner(s.ProvenanceColumn, log).
			CombineFiles(cmd.Context(), args, lopt, cfg.Workers)
		res := &reconcile.Result{RunID: m.RunID, Sources: outcomes, Batch: merged, Status: reconcile.StatusOK}
		for _, o := range outcomes {
			if o.Status == reconcile.SourceSkipped {
				res.Warnings = append(res.Warnings, o.Error)
			}
		}
		if err != nil {
			m.Apply(res)
			m.Fail(err)
			saveManifest(cmd, m, combineOut.manifest)
			return err
		}
		res.Message = fmt.Sprintf("combined %d file(s) into %d row(s)", len(args)-len(res.Warnings), merged.Len())
		m.Apply(res)

		written, err := writeOutputs(cmd, &combineOut, merged, s, log, "", nil)
		if err != nil {
			m.Fail(err)
			saveManifest(cmd, m, combineOut.manifest)
			return err
		}
		out := cmd.OutOrStdout()
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "⚠ %s\n", w)
		}
		m.Outputs = written
		fmt.Fprintf(out, "✓ %s → %s\n", res.Message, written[0])
		saveManifest(cmd, m, combineOut.manifest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(combineCmd)
	combineOut.register(combineCmd)
}
