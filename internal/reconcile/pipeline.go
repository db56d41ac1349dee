// Package reconcile turns raw tabular sources into one canonical dataset:
// schema mapping, categorical normalization, numeric imputation,
// deduplication, derived fields and consolidation, each stage audited.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/KaramelBytes/reconcile-cli/internal/audit"
	"github.com/KaramelBytes/reconcile-cli/internal/dataset"
	"github.com/KaramelBytes/reconcile-cli/internal/parser"
	"github.com/KaramelBytes/reconcile-cli/internal/schema"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Options configure a pipeline run.
type Options struct {
	// Strict drops columns the alias table cannot resolve.
	Strict bool
	// Workers bounds concurrent source loads.
	Workers int
	// AsOf is the processing date for elapsed-time fields. Zero means now.
	AsOf   time.Time
	Loader parser.Options
}

// Result is the structured outcome of a run. Batch is nil unless Status is
// StatusOK.
type Result struct {
	Status   string
	Message  string
	RunID    string
	Batch    *dataset.Batch
	Staged   []*dataset.Batch
	Sources  []SourceOutcome
	Warnings []string
}

// Pipeline runs every source through the stages in a fixed order and then
// combines them.
type Pipeline struct {
	schema *schema.Schema
	opt    Options
	log    *audit.Log

	mapper      *Mapper
	categorizer *Categorizer
	imputer     *Imputer
	deriver     *Deriver
	combiner    *Combiner
}

func New(s *schema.Schema, opt Options, log *audit.Log) *Pipeline {
	if opt.AsOf.IsZero() {
		opt.AsOf = time.Now()
	}
	if opt.Workers <= 0 {
		opt.Workers = 4
	}
	return &Pipeline{
		schema:      s,
		opt:         opt,
		log:         log,
		mapper:      NewMapper(s, opt.Strict, log),
		categorizer: NewCategorizer(s, log),
		imputer:     NewImputer(s, log),
		deriver:     NewDeriver(s, opt.AsOf, log),
		combiner:    NewCombiner(s.ProvenanceColumn, log),
	}
}

// Run loads the sources, processes each one in input order and returns the
// combined canonical batch. On a fatal condition the returned Result carries
// StatusFailed and no batch, alongside the error.
func (p *Pipeline) Run(ctx context.Context, paths []string) (*Result, error) {
	res := &Result{RunID: p.log.RunID()}
	fail := func(err error) (*Result, error) {
		res.Status = StatusFailed
		res.Message = err.Error()
		res.Batch = nil
		res.Staged = nil
		return res, err
	}

	raw, outcomes, err := LoadSources(ctx, paths, p.opt.Loader, p.opt.Workers, p.log)
	res.Sources = outcomes
	for _, o := range outcomes {
		if o.Status == SourceSkipped {
			res.Warnings = append(res.Warnings, o.Error)
		}
	}
	if err != nil {
		return fail(err)
	}

	// raw holds the loaded sources in outcome order.
	next := 0
	for _, b := range raw {
		for next < len(res.Sources) && res.Sources[next].Status != SourceLoaded {
			next++
		}
		staged, warnings, err := p.Process(b)
		res.Warnings = append(res.Warnings, warnings...)
		if err != nil {
			return fail(fmt.Errorf("%s: %w", b.Name, err))
		}
		if next < len(res.Sources) {
			res.Sources[next].Status = SourceProcessed
			res.Sources[next].Rows = staged.Len()
			res.Sources[next].Tag = ProvenanceTag(b.Path)
			next++
		}
		res.Staged = append(res.Staged, staged)
	}

	merged, err := p.combiner.Combine(res.Staged)
	if err != nil {
		return fail(err)
	}
	res.Status = StatusOK
	res.Batch = merged
	res.Message = fmt.Sprintf("reconciled %d source(s) into %d row(s)", len(res.Staged), merged.Len())
	p.log.Note(audit.StageOutput, res.Message)
	return res, nil
}

// Process takes one raw batch to canonical form. Non-fatal problems are
// returned as warnings; a non-nil error means the batch is unusable.
func (p *Pipeline) Process(raw *dataset.Batch) (*dataset.Batch, []string, error) {
	var warnings []string
	b := p.mapper.Map(raw)
	b = p.categorizer.Normalize(b)
	b, err := p.imputer.Apply(b)
	if err != nil {
		return nil, warnings, err
	}
	b = Dedupe(b, p.log)
	b, derr := p.deriver.Apply(b)
	for _, e := range multierr.Errors(derr) {
		warnings = append(warnings, fmt.Sprintf("%s: %v", raw.Name, e))
	}
	tagProvenance(b, p.schema.ProvenanceColumn, p.log)
	conform(b, p.schema)
	return b, warnings, nil
}

// conform orders columns as the schema declares them, followed by any
// passthrough columns in their existing order.
func conform(b *dataset.Batch, s *schema.Schema) {
	ordered := make([]string, 0, len(b.Columns))
	for _, name := range s.Names() {
		if b.HasColumn(name) {
			ordered = append(ordered, name)
		}
	}
	for _, c := range b.Columns {
		if !s.IsCanonical(c) {
			ordered = append(ordered, c)
		}
	}
	b.Columns = ordered
}
