package reconcile

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/reconcile-cli/internal/audit"
	"github.com/KaramelBytes/reconcile-cli/internal/dataset"
	"github.com/KaramelBytes/reconcile-cli/internal/schema"
)

// Imputer coerces declared numeric columns and fills missing cells.
type Imputer struct {
	schema *schema.Schema
	log    *audit.Log
}

func NewImputer(s *schema.Schema, log *audit.Log) *Imputer {
	return &Imputer{schema: s, log: log}
}

// Apply coerces and imputes every numeric column, then fills fixed-default
// text columns. An UndefinedStatisticError aborts the batch.
func (im *Imputer) Apply(in *dataset.Batch) (*dataset.Batch, error) {
	out := in.Clone()
	for _, col := range im.schema.ColumnsOfType(schema.TypeNumeric) {
		if !out.HasColumn(col.Name) {
			if !contains(out.Blank, col.Name) || col.Policy == schema.PolicyNone {
				im.log.Record(audit.Entry{
					Stage:  audit.StageNumeric,
					Source: in.Name,
					Scope:  col.Name,
					Action: "absent",
					Detail: fmt.Sprintf("numeric column %s is absent from %s", col.Name, in.Name),
					Warn:   true,
				})
				continue
			}
			// The source had the column but every cell was empty.
			out.AddColumn(col.Name)
			for _, r := range out.Rows {
				r[col.Name] = dataset.Missing()
			}
		}
		if err := im.imputeColumn(out, col); err != nil {
			return nil, err
		}
	}
	im.fillDefaults(out)
	return out, nil
}

func (im *Imputer) imputeColumn(b *dataset.Batch, col schema.Column) error {
	var observed []float64
	var missing []int
	failures := 0
	var firstFailure *ValueCoercionError
	for i, r := range b.Rows {
		v := r[col.Name]
		if f, ok := v.Float(); ok {
			observed = append(observed, f)
			continue
		}
		if v.IsMissing() {
			missing = append(missing, i)
			continue
		}
		f, ok := CoerceNumber(v.String())
		if !ok {
			failures++
			if firstFailure == nil {
				firstFailure = &ValueCoercionError{Column: col.Name, Value: v.String()}
			}
			r[col.Name] = dataset.Missing()
			missing = append(missing, i)
			continue
		}
		r[col.Name] = dataset.Number(f)
		observed = append(observed, f)
	}

	entry := audit.Entry{
		Stage:  audit.StageNumeric,
		Source: b.Name,
		Scope:  col.Name,
		Action: "impute",
		Count:  len(missing),
	}
	var fill float64
	switch col.Policy {
	case schema.PolicyMedian, schema.PolicyMean:
		if len(missing) > 0 && len(observed) == 0 {
			err := &UndefinedStatisticError{Column: col.Name, Policy: col.Policy, Missing: len(missing)}
			im.log.Error(audit.StageNumeric, "cannot impute "+col.Name, err)
			return err
		}
		if len(observed) == 0 {
			entry.Detail = fmt.Sprintf("%s has no rows to impute", col.Name)
			im.log.Record(entry)
			return nil
		}
		if col.Policy == schema.PolicyMedian {
			fill = Median(observed)
		} else {
			fill = stat.Mean(observed, nil)
		}
	case schema.PolicyFixed:
		f, err := col.NumericDefault()
		if err != nil {
			return err
		}
		fill = f
	default:
		entry.Action = "coerce"
		entry.Detail = fmt.Sprintf("%d missing value(s) in %s left unfilled (policy none)", len(missing), col.Name)
		if failures > 0 {
			entry.Detail += fmt.Sprintf("; %d unparsable, e.g. %v", failures, firstFailure)
		}
		im.log.Record(entry)
		return nil
	}

	if len(missing) > 0 {
		for _, i := range missing {
			b.Rows[i][col.Name] = dataset.Number(fill)
		}
		entry.Value = dataset.FormatNumber(fill)
	}
	entry.Detail = fmt.Sprintf("filled %d missing value(s) in %s with %s %s", len(missing), col.Name, col.Policy, dataset.FormatNumber(fill))
	if failures > 0 {
		entry.Detail += fmt.Sprintf("; %d unparsable, e.g. %v", failures, firstFailure)
	}
	im.log.Record(entry)
	return nil
}

// fillDefaults applies the fixed-default policy to non-numeric columns.
func (im *Imputer) fillDefaults(b *dataset.Batch) {
	for _, col := range im.schema.Columns {
		if col.Type == schema.TypeNumeric || col.Policy != schema.PolicyFixed || !b.HasColumn(col.Name) {
			continue
		}
		filled := 0
		for _, r := range b.Rows {
			if r[col.Name].IsMissing() {
				r[col.Name] = dataset.Text(col.Default)
				filled++
			}
		}
		if filled == 0 {
			continue
		}
		im.log.Record(audit.Entry{
			Stage:  audit.StageImpute,
			Source: b.Name,
			Scope:  col.Name,
			Action: "fill_default",
			Count:  filled,
			Value:  col.Default,
			Detail: fmt.Sprintf("filled %d missing value(s) in %s with %q", filled, col.Name, col.Default),
		})
	}
}

// CoerceNumber strips everything except digits and '.', then parses.
// Currency symbols, grouping commas and stray letters are discarded.
func CoerceNumber(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	raw := b.String()
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Median returns the middle value, averaging the middle pair for even counts.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return quantile(cp, 0.5)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
