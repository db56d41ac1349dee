package reconcile

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KaramelBytes/reconcile-cli/internal/audit"
	"github.com/KaramelBytes/reconcile-cli/internal/dataset"
	"github.com/KaramelBytes/reconcile-cli/internal/schema"
)

// Categorizer canonicalizes the spelling of categorical columns.
type Categorizer struct {
	schema *schema.Schema
	log    *audit.Log
}

func NewCategorizer(s *schema.Schema, log *audit.Log) *Categorizer {
	return &Categorizer{schema: s, log: log}
}

// Normalize trims, title-cases and alias-substitutes every declared
// categorical column present in b. Unknown values pass through.
func (c *Categorizer) Normalize(in *dataset.Batch) *dataset.Batch {
	out := in.Clone()
	caser := cases.Title(language.English)
	for _, col := range c.schema.ColumnsOfType(schema.TypeCategorical) {
		if !out.HasColumn(col.Name) {
			continue
		}
		matcher := c.schema.CategoryMatcher(col.Name)
		touched, aliased := 0, 0
		for _, r := range out.Rows {
			v := r[col.Name]
			if v.IsMissing() {
				continue
			}
			raw := v.String()
			norm := caser.String(collapseSpaces(raw))
			if canon, ok := matcher.Match(norm); ok {
				if canon != norm {
					aliased++
				}
				norm = canon
			}
			if norm == "" {
				r[col.Name] = dataset.Missing()
				touched++
				continue
			}
			if norm != raw || v.IsNumber() {
				r[col.Name] = dataset.Text(norm)
				touched++
			}
		}
		if touched == 0 {
			continue
		}
		c.log.Record(audit.Entry{
			Stage:  audit.StageCategorical,
			Source: in.Name,
			Scope:  col.Name,
			Action: "normalize",
			Count:  touched,
			Detail: fmt.Sprintf("normalized %d value(s) in %s (%d via alias table)", touched, col.Name, aliased),
		})
	}
	return out
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
