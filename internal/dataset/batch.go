// Package dataset holds the in-memory table model shared by every pipeline
// stage: a Batch of ordered rows over an ordered column list.
package dataset

import "strings"

// Row maps a column name to its cell. Absent keys read as missing.
type Row map[string]Value

// Batch is an ordered set of rows loaded from, or destined for, one table.
type Batch struct {
	// Name identifies the source, usually the file base name.
	Name string
	// Path is the on-disk location the batch was read from, if any.
	Path    string
	Columns []string
	Rows    []Row
	// PartiallyMapped is set when unresolved columns were passed through.
	PartiallyMapped bool
	// Blank lists canonical names whose source column was dropped for being
	// empty in every row.
	Blank []string
}

// NewBatch constructs an empty batch over the given columns.
func NewBatch(name string, columns []string) *Batch {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Batch{Name: name, Columns: cols}
}

// Len returns the number of rows.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Rows)
}

// HasColumn reports whether name is one of the batch's columns.
func (b *Batch) HasColumn(name string) bool {
	return b.ColumnIndex(name) >= 0
}

// ColumnIndex returns the position of name or -1.
func (b *Batch) ColumnIndex(name string) int {
	for i, c := range b.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AddColumn appends name to the column list if it is not present yet.
func (b *Batch) AddColumn(name string) {
	if !b.HasColumn(name) {
		b.Columns = append(b.Columns, name)
	}
}

// DropColumn removes name from the column list and every row.
func (b *Batch) DropColumn(name string) {
	idx := b.ColumnIndex(name)
	if idx < 0 {
		return
	}
	b.Columns = append(b.Columns[:idx], b.Columns[idx+1:]...)
	for _, r := range b.Rows {
		delete(r, name)
	}
}

// Append adds a row. Keys outside Columns are kept but not rendered.
func (b *Batch) Append(r Row) {
	b.Rows = append(b.Rows, r)
}

// Get returns the cell at row i, column name.
func (b *Batch) Get(i int, name string) Value {
	return b.Rows[i][name]
}

// Record renders row i as strings in column order.
func (b *Batch) Record(i int) []string {
	rec := make([]string, len(b.Columns))
	for j, c := range b.Columns {
		rec[j] = b.Rows[i][c].String()
	}
	return rec
}

// IsBlankColumn reports whether every row is missing or whitespace for name.
func (b *Batch) IsBlankColumn(name string) bool {
	for _, r := range b.Rows {
		v := r[name]
		if v.IsMissing() {
			continue
		}
		if v.IsNumber() || strings.TrimSpace(v.String()) != "" {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so stages never mutate their input in place.
func (b *Batch) Clone() *Batch {
	out := NewBatch(b.Name, b.Columns)
	out.Path = b.Path
	out.PartiallyMapped = b.PartiallyMapped
	out.Blank = append([]string(nil), b.Blank...)
	out.Rows = make([]Row, len(b.Rows))
	for i, r := range b.Rows {
		nr := make(Row, len(r))
		for k, v := range r {
			nr[k] = v
		}
		out.Rows[i] = nr
	}
	return out
}
