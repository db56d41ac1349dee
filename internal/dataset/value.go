package dataset

import (
	"math"
	"strconv"
)

// Kind classifies a cell.
type Kind uint8

const (
	KindMissing Kind = iota
	KindText
	KindNumber
)

// Value is a single cell. The zero Value is missing.
type Value struct {
	kind Kind
	text string
	num  float64
}

// Missing returns an absent cell.
func Missing() Value { return Value{} }

// Text wraps a raw or normalized string cell.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number wraps a numeric cell. NaN is stored as missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// Float returns the numeric payload and whether the cell is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// String renders the cell as it appears in delimited output. Missing is "".
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return FormatNumber(v.num)
	default:
		return ""
	}
}

// Equal reports exact, case-sensitive equality including kind.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num == o.num
	}
	return true
}

// FormatNumber uses the shortest representation that round-trips.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
