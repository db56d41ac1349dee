// Package schema defines the canonical target schema and the alias tables
// that map raw column names and categorical spellings onto it.
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Type is the declared type of a canonical column.
type Type string

const (
	TypeNumeric     Type = "numeric"
	TypeCategorical Type = "categorical"
	TypeDate        Type = "date"
	TypeText        Type = "text"
)

// Policy selects how missing cells of a column are filled.
type Policy string

const (
	PolicyMedian Policy = "median"
	PolicyMean   Policy = "mean"
	PolicyFixed  Policy = "fixed-default"
	PolicyNone   Policy = "none"
)

// DerivedKind selects the derived-field formula.
type DerivedKind string

const (
	DerivedRatio      DerivedKind = "ratio"
	DerivedYearsSince DerivedKind = "years_since"
)

// Column declares one canonical column.
type Column struct {
	Name   string `yaml:"name"`
	Type   Type   `yaml:"type"`
	Policy Policy `yaml:"policy"`
	// Default is used by the fixed-default policy. Numeric columns parse it.
	Default string `yaml:"default,omitempty"`
	// Aliases are raw-name variants in priority order; the canonical name is
	// always priority 0.
	Aliases []string `yaml:"aliases,omitempty"`
}

// DerivedField declares a computed column.
type DerivedField struct {
	Name        string      `yaml:"name"`
	Kind        DerivedKind `yaml:"kind"`
	Numerator   string      `yaml:"numerator,omitempty"`
	Denominator string      `yaml:"denominator,omitempty"`
	Source      string      `yaml:"source,omitempty"`
	Default     float64     `yaml:"default"`
}

// Inputs returns the canonical columns the field reads.
func (d DerivedField) Inputs() []string {
	switch d.Kind {
	case DerivedRatio:
		return []string{d.Numerator, d.Denominator}
	case DerivedYearsSince:
		return []string{d.Source}
	}
	return nil
}

// CategoryAlias maps spelling variants to one canonical value.
type CategoryAlias struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
	// Columns restricts the entry to some categorical columns; empty means all.
	Columns []string `yaml:"columns,omitempty"`
}

// Schema is the versioned canonical schema plus its alias tables.
type Schema struct {
	Version          string          `yaml:"version"`
	ProvenanceColumn string          `yaml:"provenance_column"`
	Columns          []Column        `yaml:"columns"`
	Derived          []DerivedField  `yaml:"derived,omitempty"`
	Categories       []CategoryAlias `yaml:"categories,omitempty"`
}

// Column returns the declaration for name.
func (s *Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Names lists the declared column names in order, then the provenance
// column, then derived fields. This is the canonical output order.
func (s *Schema) Names() []string {
	out := make([]string, 0, len(s.Columns)+len(s.Derived)+1)
	for _, c := range s.Columns {
		out = append(out, c.Name)
	}
	if s.ProvenanceColumn != "" {
		out = append(out, s.ProvenanceColumn)
	}
	for _, d := range s.Derived {
		out = append(out, d.Name)
	}
	return out
}

// IsCanonical reports whether name may appear in a canonical batch.
func (s *Schema) IsCanonical(name string) bool {
	for _, n := range s.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// ColumnsOfType returns declared columns with the given type.
func (s *Schema) ColumnsOfType(t Type) []Column {
	var out []Column
	for _, c := range s.Columns {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// NumericDefault parses the fixed default of a numeric column.
func (c Column) NumericDefault() (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(c.Default), 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid numeric default %q: %w", c.Name, c.Default, err)
	}
	return f, nil
}

// Validate checks the schema is closed and self-consistent.
func (s *Schema) Validate() error {
	if s == nil {
		return errors.New("schema is nil")
	}
	if len(s.Columns) == 0 {
		return errors.New("schema declares no columns")
	}
	seen := map[string]struct{}{}
	claim := func(name, what string) error {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s with empty name", what)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("duplicate column name %q", name)
		}
		seen[name] = struct{}{}
		return nil
	}
	for _, c := range s.Columns {
		if err := claim(c.Name, "column"); err != nil {
			return err
		}
		switch c.Type {
		case TypeNumeric, TypeCategorical, TypeDate, TypeText:
		default:
			return fmt.Errorf("column %s: unknown type %q", c.Name, c.Type)
		}
		switch c.Policy {
		case PolicyMedian, PolicyMean:
			if c.Type != TypeNumeric {
				return fmt.Errorf("column %s: policy %s needs a numeric column", c.Name, c.Policy)
			}
		case PolicyFixed:
			if c.Type == TypeNumeric {
				if _, err := c.NumericDefault(); err != nil {
					return err
				}
			}
		case PolicyNone, "":
		default:
			return fmt.Errorf("column %s: unknown policy %q", c.Name, c.Policy)
		}
	}
	if s.ProvenanceColumn != "" {
		if err := claim(s.ProvenanceColumn, "provenance column"); err != nil {
			return err
		}
	}
	for _, d := range s.Derived {
		if err := claim(d.Name, "derived field"); err != nil {
			return err
		}
		switch d.Kind {
		case DerivedRatio, DerivedYearsSince:
		default:
			return fmt.Errorf("derived %s: unknown kind %q", d.Name, d.Kind)
		}
		for _, in := range d.Inputs() {
			if _, ok := s.Column(in); !ok {
				return fmt.Errorf("derived %s: input %q is not a declared column", d.Name, in)
			}
		}
	}
	for _, ca := range s.Categories {
		if strings.TrimSpace(ca.Canonical) == "" {
			return errors.New("category alias with empty canonical value")
		}
		for _, col := range ca.Columns {
			c, ok := s.Column(col)
			if !ok || c.Type != TypeCategorical {
				return fmt.Errorf("category alias %q: %q is not a categorical column", ca.Canonical, col)
			}
		}
	}
	return nil
}
