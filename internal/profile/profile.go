// Package profile summarizes a canonical batch as Markdown, the hand-off
// format for downstream chart and query tools.
package profile

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/reconcile-cli/internal/dataset"
	"github.com/KaramelBytes/reconcile-cli/internal/reconcile"
	"github.com/KaramelBytes/reconcile-cli/internal/schema"
)

// Column kinds.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindUnknown     = "unknown"
)

// Options controls the summary.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// TopValues caps the categorical value counts listed per column.
	TopValues int
	// GroupBy computes per-group numeric means for the given column.
	GroupBy string
}

// DefaultOptions returns reasonable defaults.
func DefaultOptions() Options {
	return Options{SampleRows: 5, TopValues: 5}
}

// Report is a markdown-friendly summary of a batch.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Groups   []GroupResult
	Warnings []string
}

// ColumnSummary captures kind and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult holds numeric means for one group key.
type GroupResult struct {
	Key   string
	Size  int
	Means map[string]float64
}

// Summarize profiles b. Declared schema types decide a column's kind; other
// columns are inferred from their values. s may be nil.
func Summarize(b *dataset.Batch, s *schema.Schema, opt Options) *Report {
	if opt.SampleRows <= 0 {
		opt.SampleRows = 5
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 5
	}
	rep := &Report{Name: b.Name, Rows: b.Len()}
	numeric := map[string][]float64{}
	for _, col := range b.Columns {
		cs, vals := summarizeColumn(b, col, kindOf(b, col, s), opt)
		if cs.Kind == KindNumeric {
			numeric[col] = vals
		}
		if cs.NonNull == 0 && cs.Missing > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s has no values", col))
		}
		rep.Cols = append(rep.Cols, cs)
	}
	for i := 0; i < b.Len() && i < opt.SampleRows; i++ {
		rep.Samples = append(rep.Samples, b.Record(i))
	}
	if opt.GroupBy != "" {
		if b.HasColumn(opt.GroupBy) {
			rep.Groups = groupMeans(b, opt.GroupBy, numeric)
		} else {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("group-by column %s not found", opt.GroupBy))
		}
	}
	if b.PartiallyMapped {
		rep.Warnings = append(rep.Warnings, "batch is partially mapped; some columns are outside the schema")
	}
	return rep
}

func kindOf(b *dataset.Batch, col string, s *schema.Schema) string {
	if s != nil {
		if c, ok := s.Column(col); ok {
			switch c.Type {
			case schema.TypeNumeric:
				return KindNumeric
			case schema.TypeDate:
				return KindDatetime
			case schema.TypeCategorical:
				return KindCategorical
			case schema.TypeText:
				return KindText
			}
		}
		for _, d := range s.Derived {
			if d.Name == col {
				return KindNumeric
			}
		}
	}
	nonNull, num, dt := 0, 0, 0
	distinct := map[string]struct{}{}
	for _, r := range b.Rows {
		v := r[col]
		if v.IsMissing() {
			continue
		}
		nonNull++
		if _, ok := asFloat(v); ok {
			num++
			continue
		}
		if _, ok := reconcile.ParseDate(v.String()); ok {
			dt++
		}
		distinct[v.String()] = struct{}{}
	}
	switch {
	case nonNull == 0:
		return KindUnknown
	case num == nonNull:
		return KindNumeric
	case dt == nonNull:
		return KindDatetime
	case len(distinct) <= 20 || float64(len(distinct)) <= 0.5*float64(nonNull):
		return KindCategorical
	}
	return KindText
}

func asFloat(v dataset.Value) (float64, bool) {
	if f, ok := v.Float(); ok {
		return f, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func summarizeColumn(b *dataset.Batch, col, kind string, opt Options) (ColumnSummary, []float64) {
	cs := ColumnSummary{Name: col, Kind: kind, Min: math.Inf(1), Max: math.Inf(-1)}
	counts := map[string]int{}
	var vals []float64
	for _, r := range b.Rows {
		v := r[col]
		if v.IsMissing() {
			cs.Missing++
			continue
		}
		cs.NonNull++
		counts[v.String()]++
		if kind != KindNumeric {
			continue
		}
		if x, ok := asFloat(v); ok {
			vals = append(vals, x)
			cs.Min = math.Min(cs.Min, x)
			cs.Max = math.Max(cs.Max, x)
		}
	}
	cs.Unique = len(counts)
	if len(vals) > 0 {
		cs.Mean, cs.Std = stat.MeanStdDev(vals, nil)
		if len(vals) == 1 {
			cs.Std = 0
		}
	} else {
		cs.Min, cs.Max = 0, 0
	}
	switch kind {
	case KindCategorical:
		cs.TopValues = topValues(counts, opt.TopValues)
	case KindText:
		for _, r := range b.Rows {
			if len(cs.ExampleTexts) >= 3 {
				break
			}
			if v := r[col]; !v.IsMissing() {
				cs.ExampleTexts = append(cs.ExampleTexts, v.String())
			}
		}
	}
	return cs, vals
}

func topValues(counts map[string]int, n int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, CategoryCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func groupMeans(b *dataset.Batch, by string, numeric map[string][]float64) []GroupResult {
	type acc struct {
		size int
		sum  map[string]float64
		cnt  map[string]int
	}
	groups := map[string]*acc{}
	var order []string
	for _, r := range b.Rows {
		key := r[by].String()
		if key == "" {
			key = "(missing)"
		}
		g := groups[key]
		if g == nil {
			g = &acc{sum: map[string]float64{}, cnt: map[string]int{}}
			groups[key] = g
			order = append(order, key)
		}
		g.size++
		for col := range numeric {
			if x, ok := asFloat(r[col]); ok {
				g.sum[col] += x
				g.cnt[col]++
			}
		}
	}
	sort.Strings(order)
	out := make([]GroupResult, 0, len(order))
	for _, key := range order {
		g := groups[key]
		gr := GroupResult{Key: key, Size: g.size, Means: map[string]float64{}}
		for col, n := range g.cnt {
			gr.Means[col] = g.sum[col] / float64(n)
		}
		out = append(out, gr)
	}
	return out
}

// Markdown renders a compact report suitable for prompts or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("Dataset: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case KindNumeric:
			b.WriteString(fmt.Sprintf(" | min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
		case KindCategorical:
			if len(c.TopValues) > 0 {
				b.WriteString(" | top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		case KindText:
			if len(c.ExampleTexts) > 0 {
				b.WriteString(" | e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" / ")
					}
					b.WriteString(safeVal(ex))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", safeVal(g.Key), g.Size))
			keys := make([]string, 0, len(g.Means))
			for k := range g.Means {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g\n", k, g.Means[k]))
			}
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n|")
		for range r.Cols {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
