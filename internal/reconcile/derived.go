package reconcile

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/KaramelBytes/reconcile-cli/internal/audit"
	"github.com/KaramelBytes/reconcile-cli/internal/dataset"
	"github.com/KaramelBytes/reconcile-cli/internal/schema"
)

const daysPerYear = 365.25

// Deriver computes the schema's derived fields against a fixed processing
// date.
type Deriver struct {
	schema *schema.Schema
	asOf   time.Time
	log    *audit.Log
}

func NewDeriver(s *schema.Schema, asOf time.Time, log *audit.Log) *Deriver {
	return &Deriver{schema: s, asOf: asOf, log: log}
}

// Apply adds every derived field it can. Bad rows fall back to the field
// default; a field whose input column is absent is skipped and reported as a
// SchemaMismatchError. The returned error never invalidates the batch.
func (d *Deriver) Apply(in *dataset.Batch) (*dataset.Batch, error) {
	out := in.Clone()
	var errs error
	for _, f := range d.schema.Derived {
		if col := firstAbsent(out, f.Inputs()); col != "" {
			err := &SchemaMismatchError{Field: f.Name, Column: col}
			errs = multierr.Append(errs, err)
			d.log.Record(audit.Entry{
				Stage:  audit.StageDerived,
				Source: in.Name,
				Scope:  f.Name,
				Action: "skip_field",
				Detail: err.Error(),
				Warn:   true,
			})
			continue
		}
		var fallbacks int
		switch f.Kind {
		case schema.DerivedRatio:
			fallbacks = d.ratio(out, f)
		case schema.DerivedYearsSince:
			fallbacks = d.yearsSince(out, f)
		}
		out.AddColumn(f.Name)
		d.log.Record(audit.Entry{
			Stage:  audit.StageDerived,
			Source: in.Name,
			Scope:  f.Name,
			Action: "derive",
			Count:  fallbacks,
			Value:  dataset.FormatNumber(f.Default),
			Detail: fmt.Sprintf("computed %s for %d row(s); %d replaced with default %s", f.Name, len(out.Rows), fallbacks, dataset.FormatNumber(f.Default)),
		})
	}
	return out, errs
}

func (d *Deriver) ratio(b *dataset.Batch, f schema.DerivedField) int {
	fallbacks := 0
	for _, r := range b.Rows {
		num, okN := numberOf(r[f.Numerator])
		den, okD := numberOf(r[f.Denominator])
		if !okN || !okD || den == 0 {
			r[f.Name] = dataset.Number(f.Default)
			fallbacks++
			continue
		}
		q := num / den
		if math.IsNaN(q) || math.IsInf(q, 0) {
			r[f.Name] = dataset.Number(f.Default)
			fallbacks++
			continue
		}
		r[f.Name] = dataset.Number(q)
	}
	return fallbacks
}

func (d *Deriver) yearsSince(b *dataset.Batch, f schema.DerivedField) int {
	fallbacks := 0
	for _, r := range b.Rows {
		v := r[f.Source]
		t, ok := ParseDate(v.String())
		if v.IsMissing() || !ok {
			r[f.Name] = dataset.Number(f.Default)
			fallbacks++
			continue
		}
		years := d.asOf.Sub(t).Hours() / 24 / daysPerYear
		if math.IsNaN(years) || math.IsInf(years, 0) {
			r[f.Name] = dataset.Number(f.Default)
			fallbacks++
			continue
		}
		r[f.Name] = dataset.Number(math.Round(years*100) / 100)
	}
	return fallbacks
}

func numberOf(v dataset.Value) (float64, bool) {
	if f, ok := v.Float(); ok {
		return f, true
	}
	if v.IsMissing() {
		return 0, false
	}
	return CoerceNumber(v.String())
}

func firstAbsent(b *dataset.Batch, cols []string) string {
	for _, c := range cols {
		if !b.HasColumn(c) {
			return c
		}
	}
	return ""
}

var dateLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	"02-01-2006", "02.01.2006", "2/1/2006", "02-Jan-2006", "2-Jan-2006", "02 Jan 2006", "Jan 2, 2006", "2006",
}

// ParseDate tries the accepted date layouts in order; day-first layouts are
// preferred over month-first for ambiguous values.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
