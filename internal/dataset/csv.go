package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// ReadCSV reads a delimited table with a header row. Blank cells load as
// missing; short records are padded, long records are truncated to the header.
func ReadCSV(r io.Reader, name string, delim rune) (*Batch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	if delim != 0 {
		cr.Comma = delim
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewBatch(name, nil), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	b := NewBatch(name, uniqueHeader(header))

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		b.Append(RowFromRecord(b.Columns, rec))
	}
	return b, nil
}

// FromRecords builds a batch from a header row followed by data rows, the
// shape spreadsheet readers return.
func FromRecords(name string, records [][]string) *Batch {
	if len(records) == 0 {
		return NewBatch(name, nil)
	}
	header := append([]string(nil), records[0]...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	b := NewBatch(name, uniqueHeader(header))
	for _, rec := range records[1:] {
		if isEmptyRecord(rec) {
			continue
		}
		b.Append(RowFromRecord(b.Columns, rec))
	}
	return b
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// RowFromRecord builds a row from positional values.
func RowFromRecord(columns []string, rec []string) Row {
	row := make(Row, len(columns))
	for j, c := range columns {
		if j >= len(rec) {
			row[c] = Missing()
			continue
		}
		if strings.TrimSpace(rec[j]) == "" {
			row[c] = Missing()
			continue
		}
		row[c] = Text(rec[j])
	}
	return row
}

// WriteCSV renders the batch with a header row.
func WriteCSV(w io.Writer, b *Batch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(b.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range b.Rows {
		if err := cw.Write(b.Record(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// uniqueHeader keeps raw names but disambiguates exact repeats so that no
// column silently shadows another before the schema mapper sees it.
func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for _, h := range header {
		taken[h] = true
	}
	used := make(map[string]bool, len(header))
	next := make(map[string]int, len(header))
	for i, h := range header {
		if !used[h] {
			out[i] = h
			used[h] = true
			continue
		}
		n := next[h]
		name := h
		for taken[name] || used[name] {
			n++
			name = fmt.Sprintf("%s.%d", h, n)
		}
		next[h] = n
		out[i] = name
		used[name] = true
	}
	return out
}
