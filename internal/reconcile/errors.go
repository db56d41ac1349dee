package reconcile

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/reconcile-cli/internal/schema"
)

// ErrNoSources indicates that no declared input could be read.
var ErrNoSources = errors.New("no readable sources")

// SourceUnavailableError indicates an input path could not be opened or
// parsed. The combiner skips such sources unless none remain.
type SourceUnavailableError struct {
	Path string
	Err  error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source unavailable: %s: %v", e.Path, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// SchemaMismatchError indicates a column required by a derived field is
// absent from the batch. Only that field is skipped.
type SchemaMismatchError struct {
	Field  string
	Column string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: derived field %s needs column %s, which is absent", e.Field, e.Column)
}

// UndefinedStatisticError indicates an imputation target with no observed
// values. The run cannot continue.
type UndefinedStatisticError struct {
	Column  string
	Policy  schema.Policy
	Missing int
}

func (e *UndefinedStatisticError) Error() string {
	return fmt.Sprintf("undefined statistic: column %s has no values to compute a %s from (%d missing)", e.Column, e.Policy, e.Missing)
}

// ValueCoercionError describes a single cell that failed numeric or date
// parsing. It is absorbed as missing and only surfaces in audit detail.
type ValueCoercionError struct {
	Column string
	Value  string
}

func (e *ValueCoercionError) Error() string {
	return fmt.Sprintf("cannot coerce %q in column %s", e.Value, e.Column)
}

// IsFatal reports whether err must stop the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var us *UndefinedStatisticError
	return errors.Is(err, ErrNoSources) || errors.As(err, &us)
}
