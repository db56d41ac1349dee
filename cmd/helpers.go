package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/KaramelBytes/reconcile-cli/internal/audit"
	"github.com/KaramelBytes/reconcile-cli/internal/dataset"
	"github.com/KaramelBytes/reconcile-cli/internal/parser"
	"github.com/KaramelBytes/reconcile-cli/internal/schema"
	"github.com/KaramelBytes/reconcile-cli/internal/sink"
	"github.com/spf13/cobra"
)

// outputFlags are shared by run and combine.
type outputFlags struct {
	output   string
	sqlite   string
	table    string
	manifest string
}

func (o *outputFlags) register(c *cobra.Command) {
	c.Flags().StringVarP(&o.output, "output", "o", "", "canonical CSV path (default <output_dir>/canonical.csv)")
	c.Flags().StringVar(&o.sqlite, "sqlite", "", "also write the canonical table to this SQLite database")
	c.Flags().StringVar(&o.table, "table", sink.DefaultTable, "SQLite table name")
	c.Flags().StringVar(&o.manifest, "manifest", "", "write a JSON run manifest to this path")
}

func (o *outputFlags) csvPath() string {
	if o.output != "" {
		return o.output
	}
	return filepath.Join(cfg.OutputDir, "canonical.csv")
}

func loadSchema() (*schema.Schema, error) {
	s, err := schema.Load(cfg.SchemaFile)
	if err != nil {
		return nil, err
	}
	if cfg.DerivedDefault != 0 {
		for i := range s.Derived {
			s.Derived[i].Default = cfg.DerivedDefault
		}
	}
	return s, nil
}

func loaderOptions() (parser.Options, error) {
	delim, err := cfg.DelimiterRune()
	if err != nil {
		return parser.Options{}, err
	}
	return parser.Options{Delimiter: delim, SheetName: cfg.SheetName}, nil
}

func openAudit(runID string, console io.Writer) (*audit.Log, error) {
	log, err := audit.Open(runID, cfg.LogFile, console)
	if err != nil {
		return nil, err
	}
	return log, nil
}

// writeOutputs persists b as CSV and, when requested, SQLite and one staged
// CSV per source under stageDir. All files are staged first and renamed into
// place together, so on error nothing is written. Paths are returned in order.
func writeOutputs(c *cobra.Command, o *outputFlags, b *dataset.Batch, s *schema.Schema, log *audit.Log, stageDir string, staged []*dataset.Batch) ([]string, error) {
	var out sink.Outputs
	csvPath := o.csvPath()
	if err := out.CSV(csvPath, b); err != nil {
		out.Discard()
		return nil, err
	}
	if o.sqlite != "" {
		if err := out.SQLite(c.Context(), o.sqlite, o.table, b, s); err != nil {
			out.Discard()
			return nil, err
		}
	}
	if stageDir != "" {
		if _, err := out.Staged(stageDir, staged); err != nil {
			out.Discard()
			return nil, err
		}
	}
	written, err := out.Commit()
	if err != nil {
		log.Error(audit.StageOutput, "outputs not written", err)
		return nil, err
	}

	log.Record(audit.Entry{
		Stage:  audit.StageOutput,
		Scope:  "batch",
		Action: "write_csv",
		Count:  b.Len(),
		Value:  csvPath,
		Detail: fmt.Sprintf("wrote %d row(s) to %s", b.Len(), csvPath),
	})
	if o.sqlite != "" {
		log.Record(audit.Entry{
			Stage:  audit.StageOutput,
			Scope:  "batch",
			Action: "write_sqlite",
			Count:  b.Len(),
			Value:  o.sqlite,
			Detail: fmt.Sprintf("wrote %d row(s) to %s table %s", b.Len(), o.sqlite, o.table),
		})
	}
	for _, sb := range staged {
		if stageDir == "" {
			break
		}
		p := filepath.Join(stageDir, sink.StagedName(sb))
		log.Record(audit.Entry{
			Stage:  audit.StageOutput,
			Source: sb.Name,
			Scope:  "batch",
			Action: "write_staged",
			Count:  sb.Len(),
			Value:  p,
			Detail: fmt.Sprintf("staged %d row(s) to %s", sb.Len(), p),
		})
	}
	return written, nil
}
