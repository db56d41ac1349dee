package reconcile

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/reconcile-cli/internal/audit"
	"github.com/KaramelBytes/reconcile-cli/internal/dataset"
	"github.com/KaramelBytes/reconcile-cli/internal/schema"
)

// Mapper renames raw columns to canonical names.
type Mapper struct {
	schema  *schema.Schema
	aliases *schema.AliasTable
	strict  bool
	log     *audit.Log
}

// NewMapper builds a mapper. In strict mode unresolved columns are dropped;
// otherwise they pass through under their normalized name.
func NewMapper(s *schema.Schema, strict bool, log *audit.Log) *Mapper {
	return &Mapper{schema: s, aliases: s.ColumnAliases(), strict: strict, log: log}
}

type pick struct {
	raw      string
	priority int
}

// Map drops blank columns, then resolves the rest through the alias table.
// Blank-column removal always happens before renaming.
func (m *Mapper) Map(in *dataset.Batch) *dataset.Batch {
	var blank, kept []string
	for _, c := range in.Columns {
		if in.IsBlankColumn(c) {
			blank = append(blank, c)
			continue
		}
		kept = append(kept, c)
	}
	m.log.Record(audit.Entry{
		Stage:  audit.StageSchema,
		Source: in.Name,
		Scope:  "batch",
		Action: "drop_blank_columns",
		Count:  len(blank),
		Detail: detailList(fmt.Sprintf("dropped %d blank column(s)", len(blank)), blank),
	})

	chosen := map[string]pick{}
	var unmapped []string
	passthrough := map[string]string{}
	var passOrder []string
	for _, raw := range kept {
		res, ok := m.aliases.Resolve(raw)
		if !ok {
			if m.strict {
				unmapped = append(unmapped, raw)
				continue
			}
			name := schema.NormalizeName(raw)
			if name == "" {
				unmapped = append(unmapped, raw)
				continue
			}
			if _, dup := passthrough[name]; !dup {
				passOrder = append(passOrder, name)
			}
			passthrough[name] = raw
			continue
		}
		prev, exists := chosen[res.Canonical]
		if exists && res.Priority > prev.priority {
			m.recordCollision(in, res.Canonical, prev.raw, raw)
			continue
		}
		if exists {
			m.recordCollision(in, res.Canonical, raw, prev.raw)
		}
		chosen[res.Canonical] = pick{raw: raw, priority: res.Priority}
	}

	var cols []string
	for _, name := range m.schema.Names() {
		if _, ok := chosen[name]; ok {
			cols = append(cols, name)
		}
	}
	cols = append(cols, passOrder...)

	out := dataset.NewBatch(in.Name, cols)
	out.Path = in.Path
	out.PartiallyMapped = len(passOrder) > 0
	for _, raw := range blank {
		if res, ok := m.aliases.Resolve(raw); ok {
			if _, present := chosen[res.Canonical]; !present {
				out.Blank = append(out.Blank, res.Canonical)
			}
		}
	}
	out.Rows = make([]dataset.Row, len(in.Rows))
	for i, r := range in.Rows {
		nr := make(dataset.Row, len(cols))
		for canon, p := range chosen {
			nr[canon] = r[p.raw]
		}
		for name, raw := range passthrough {
			nr[name] = r[raw]
		}
		out.Rows[i] = nr
	}

	for _, name := range cols {
		p, ok := chosen[name]
		if !ok || p.raw == name {
			continue
		}
		m.log.Record(audit.Entry{
			Stage:  audit.StageSchema,
			Source: in.Name,
			Scope:  name,
			Action: "rename",
			Count:  len(in.Rows),
			Value:  name,
			Detail: fmt.Sprintf("renamed %q to %s", p.raw, name),
		})
	}
	if len(unmapped) > 0 {
		m.log.Record(audit.Entry{
			Stage:  audit.StageSchema,
			Source: in.Name,
			Scope:  "batch",
			Action: "drop_unmapped",
			Count:  len(unmapped),
			Detail: detailList(fmt.Sprintf("dropped %d column(s) outside schema %s", len(unmapped), m.aliases.Version()), unmapped),
		})
	}
	if len(passOrder) > 0 {
		m.log.Record(audit.Entry{
			Stage:  audit.StageSchema,
			Source: in.Name,
			Scope:  "batch",
			Action: "passthrough",
			Count:  len(passOrder),
			Detail: detailList(fmt.Sprintf("kept %d unmapped column(s); batch is partially mapped", len(passOrder)), passOrder),
		})
	}
	return out
}

func (m *Mapper) recordCollision(in *dataset.Batch, canonical, winner, loser string) {
	m.log.Record(audit.Entry{
		Stage:  audit.StageSchema,
		Source: in.Name,
		Scope:  canonical,
		Action: "collision",
		Count:  1,
		Value:  winner,
		Detail: fmt.Sprintf("%q and %q both map to %s; kept %q", winner, loser, canonical, winner),
	})
}

func detailList(head string, names []string) string {
	if len(names) == 0 {
		return head
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return head + ": " + strings.Join(quoted, ", ")
}
