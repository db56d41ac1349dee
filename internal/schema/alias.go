package schema

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName lowercases and trims a raw column name and collapses runs of
// whitespace, underscores and hyphens into a single underscore.
func NormalizeName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
	var b strings.Builder
	sep := false
	for _, r := range s {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			sep = true
			continue
		}
		if sep && b.Len() > 0 {
			b.WriteByte('_')
		}
		sep = false
		b.WriteRune(r)
	}
	return b.String()
}

// Resolution is the result of a column alias lookup.
type Resolution struct {
	Canonical string
	// Priority is the alias position; 0 is the canonical name itself.
	Priority int
}

// AliasTable resolves normalized raw column names to canonical names.
type AliasTable struct {
	version string
	byName  map[string]Resolution
}

// ColumnAliases compiles the column alias table. When two columns declare the
// same alias, the first declaration wins.
func (s *Schema) ColumnAliases() *AliasTable {
	t := &AliasTable{version: s.Version, byName: map[string]Resolution{}}
	add := func(alias, canonical string, prio int) {
		key := NormalizeName(alias)
		if key == "" {
			return
		}
		if _, ok := t.byName[key]; ok {
			return
		}
		t.byName[key] = Resolution{Canonical: canonical, Priority: prio}
	}
	for _, c := range s.Columns {
		add(c.Name, c.Name, 0)
	}
	for _, c := range s.Columns {
		for i, a := range c.Aliases {
			add(a, c.Name, i+1)
		}
	}
	if s.ProvenanceColumn != "" {
		add(s.ProvenanceColumn, s.ProvenanceColumn, 0)
	}
	return t
}

// Version reports the schema version the table was compiled from.
func (t *AliasTable) Version() string { return t.version }

// Resolve looks up a raw column name.
func (t *AliasTable) Resolve(raw string) (Resolution, bool) {
	r, ok := t.byName[NormalizeName(raw)]
	return r, ok
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CategoryKey folds a categorical value to its comparison form: accents
// stripped, lowercased, letters and digits only.
func CategoryKey(s string) string {
	folded, _, err := transform.String(stripAccents, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// categoryTokens splits a value into folded, lowercased words.
func categoryTokens(s string) []string {
	folded, _, err := transform.String(stripAccents, s)
	if err != nil {
		folded = s
	}
	return strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

type prefixEntry struct {
	tokens    []string
	canonical string
}

func hasTokenPrefix(tokens, prefix []string) bool {
	if len(prefix) > len(tokens) {
		return false
	}
	for i, p := range prefix {
		if tokens[i] != p {
			return false
		}
	}
	return true
}

// CategoryMatcher resolves categorical spellings for one column.
type CategoryMatcher struct {
	exact  map[string]string
	prefix []prefixEntry
}

// CategoryMatcher compiles the category alias table for column.
func (s *Schema) CategoryMatcher(column string) *CategoryMatcher {
	m := &CategoryMatcher{exact: map[string]string{}}
	for _, ca := range s.Categories {
		if len(ca.Columns) > 0 && !contains(ca.Columns, column) {
			continue
		}
		variants := append([]string{ca.Canonical}, ca.Variants...)
		for _, v := range variants {
			key := CategoryKey(v)
			if key == "" {
				continue
			}
			if _, ok := m.exact[key]; !ok {
				m.exact[key] = ca.Canonical
			}
			if tokens := categoryTokens(v); len(tokens) > 1 {
				m.prefix = append(m.prefix, prefixEntry{tokens: tokens, canonical: ca.Canonical})
			}
		}
	}
	sort.SliceStable(m.prefix, func(i, j int) bool {
		return len(m.prefix[i].tokens) > len(m.prefix[j].tokens)
	})
	return m
}

// Match returns the canonical spelling for value. Exact key matches win;
// otherwise the longest multi-word variant whose words lead the value is
// used. Words are compared whole, so "Rangareddyguda" is left alone.
func (m *CategoryMatcher) Match(value string) (string, bool) {
	key := CategoryKey(value)
	if key == "" {
		return "", false
	}
	if c, ok := m.exact[key]; ok {
		return c, true
	}
	tokens := categoryTokens(value)
	for _, p := range m.prefix {
		if hasTokenPrefix(tokens, p.tokens) {
			return p.canonical, true
		}
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
