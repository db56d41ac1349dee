package reconcile

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/reconcile-cli/internal/audit"
	"github.com/KaramelBytes/reconcile-cli/internal/dataset"
	"github.com/KaramelBytes/reconcile-cli/internal/parser"
)

// Source statuses reported per input.
const (
	SourceLoaded    = "loaded"
	SourceSkipped   = "skipped"
	SourceProcessed = "processed"
)

// SourceOutcome summarizes what happened to one input.
type SourceOutcome struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Rows   int    `json:"rows"`
	Tag    string `json:"tag,omitempty"`
	Error  string `json:"error,omitempty"`
}

// LoadSources reads every path concurrently with at most workers loads in
// flight. Results keep input order. Unreadable sources are reported as
// SourceUnavailableError warnings and skipped; ErrNoSources is returned when
// none could be read.
func LoadSources(ctx context.Context, paths []string, opt parser.Options, workers int, log *audit.Log) ([]*dataset.Batch, []SourceOutcome, error) {
	if len(paths) == 0 {
		return nil, nil, ErrNoSources
	}
	if workers <= 0 {
		workers = 1
	}
	batches := make([]*dataset.Batch, len(paths))
	failures := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := parser.LoadFile(p, opt)
			if err != nil {
				failures[i] = &SourceUnavailableError{Path: p, Err: err}
				return nil
			}
			batches[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var loaded []*dataset.Batch
	outcomes := make([]SourceOutcome, len(paths))
	for i, p := range paths {
		outcomes[i] = SourceOutcome{Path: p, Name: filepath.Base(p)}
		if failures[i] != nil {
			outcomes[i].Status = SourceSkipped
			outcomes[i].Error = failures[i].Error()
			log.Record(audit.Entry{
				Stage:  audit.StageLoad,
				Source: filepath.Base(p),
				Scope:  "batch",
				Action: "skip_source",
				Detail: failures[i].Error(),
				Warn:   true,
			})
			continue
		}
		b := batches[i]
		outcomes[i].Status = SourceLoaded
		outcomes[i].Rows = b.Len()
		log.Note(audit.StageLoad, fmt.Sprintf("loaded %s: %d row(s), %d column(s)", b.Name, b.Len(), len(b.Columns)))
		loaded = append(loaded, b)
	}
	if len(loaded) == 0 {
		log.Error(audit.StageLoad, "no readable sources", ErrNoSources)
		return nil, outcomes, ErrNoSources
	}
	return loaded, outcomes, nil
}

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// ProvenanceTag derives a source tag from a file name: the first four-digit
// year if one appears, else the base name without extension.
func ProvenanceTag(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if y := yearPattern.FindString(base); y != "" {
		return y
	}
	return base
}

// Combiner unions canonical batches from several sources.
type Combiner struct {
	provenance string
	log        *audit.Log
}

func NewCombiner(provenanceColumn string, log *audit.Log) *Combiner {
	return &Combiner{provenance: provenanceColumn, log: log}
}

// CombineFiles loads already canonical files (for example staged outputs of
// earlier runs) and unions them.
func (c *Combiner) CombineFiles(ctx context.Context, paths []string, opt parser.Options, workers int) (*dataset.Batch, []SourceOutcome, error) {
	batches, outcomes, err := LoadSources(ctx, paths, opt, workers, c.log)
	if err != nil {
		return nil, outcomes, err
	}
	merged, err := c.Combine(batches)
	if err != nil {
		return nil, outcomes, err
	}
	for i := range outcomes {
		if outcomes[i].Status == SourceLoaded {
			outcomes[i].Tag = ProvenanceTag(outcomes[i].Path)
		}
	}
	return merged, outcomes, nil
}

// Combine concatenates batches in input order. Columns are the union in
// first-seen order; cells a batch lacks are missing. Rows are neither
// re-imputed nor deduplicated across sources. Inputs missing a provenance
// value are tagged in place.
func (c *Combiner) Combine(batches []*dataset.Batch) (*dataset.Batch, error) {
	if len(batches) == 0 {
		return nil, ErrNoSources
	}
	var columns []string
	seen := make(map[string]struct{})
	for _, b := range batches {
		tagProvenance(b, c.provenance, c.log)
		for _, col := range b.Columns {
			if _, ok := seen[col]; ok {
				continue
			}
			seen[col] = struct{}{}
			columns = append(columns, col)
		}
	}

	out := dataset.NewBatch("combined", columns)
	total := 0
	for _, b := range batches {
		total += b.Len()
		for _, r := range b.Rows {
			row := make(dataset.Row, len(columns))
			for _, col := range columns {
				row[col] = r[col]
			}
			out.Append(row)
		}
		if b.PartiallyMapped {
			out.PartiallyMapped = true
		}
	}
	c.log.Record(audit.Entry{
		Stage:  audit.StageCombine,
		Scope:  "batch",
		Action: "union",
		Count:  total,
		Detail: fmt.Sprintf("combined %d source(s) into %d row(s) and %d column(s)", len(batches), total, len(columns)),
	})
	return out, nil
}

// tagProvenance fills the provenance column for rows that lack it, using the
// tag derived from the batch's file name.
func tagProvenance(b *dataset.Batch, column string, log *audit.Log) {
	if column == "" {
		return
	}
	src := b.Path
	if src == "" {
		src = b.Name
	}
	value := ProvenanceTag(src)
	if !b.HasColumn(column) {
		b.AddColumn(column)
	}
	filled := 0
	for _, r := range b.Rows {
		if r[column].IsMissing() {
			r[column] = dataset.Text(value)
			filled++
		}
	}
	if filled == 0 {
		return
	}
	log.Record(audit.Entry{
		Stage:  audit.StageCombine,
		Source: b.Name,
		Scope:  column,
		Action: "tag_provenance",
		Count:  filled,
		Value:  value,
		Detail: fmt.Sprintf("tagged %d row(s) from %s with %s=%s", filled, b.Name, column, value),
	})
}
