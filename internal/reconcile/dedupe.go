package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/reconcile-cli/internal/audit"
	"github.com/KaramelBytes/reconcile-cli/internal/dataset"
)

// Dedupe drops exact duplicate rows, keeping the first occurrence and the
// original order. Identity is the tuple of every column value, compared
// case-sensitively.
func Dedupe(in *dataset.Batch, log *audit.Log) *dataset.Batch {
	out := dataset.NewBatch(in.Name, in.Columns)
	out.Path = in.Path
	out.PartiallyMapped = in.PartiallyMapped
	out.Blank = in.Blank
	seen := make(map[string]struct{}, len(in.Rows))
	for i, r := range in.Rows {
		key := rowKey(in.Columns, r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Append(in.Rows[i])
	}
	removed := len(in.Rows) - len(out.Rows)
	log.Record(audit.Entry{
		Stage:  audit.StageDedupe,
		Source: in.Name,
		Scope:  "batch",
		Action: "drop_duplicates",
		Count:  removed,
		Detail: fmt.Sprintf("removed %d duplicate row(s), %d remain", removed, len(out.Rows)),
	})
	return out
}

// rowKey encodes kind, payload length and payload per cell so that a missing
// cell, an empty text and the number 0 never collide, whatever bytes the
// payload holds.
func rowKey(cols []string, r dataset.Row) string {
	var b strings.Builder
	for _, c := range cols {
		v := r[c]
		switch v.Kind() {
		case dataset.KindMissing:
			b.WriteByte('m')
			continue
		case dataset.KindNumber:
			b.WriteByte('n')
		default:
			b.WriteByte('t')
		}
		s := v.String()
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}
