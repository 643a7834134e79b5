package table

import (
	"strconv"
	"strings"
)

// Value is a single table cell. The zero Value is missing, which is
// distinct from a present empty string.
type Value struct {
	s     string
	valid bool
}

// Missing is the missing cell.
var Missing Value

// Str returns a present Value holding s.
func Str(s string) Value {
	return Value{s: s, valid: true}
}

// Bool returns a present Value holding "true" or "false".
func Bool(b bool) Value {
	return Str(strconv.FormatBool(b))
}

// Float returns a present Value holding the shortest decimal rendering of f.
func Float(f float64) Value {
	return Str(strconv.FormatFloat(f, 'f', -1, 64))
}

// Cell converts raw spreadsheet text to a Value. Blank text is missing.
func Cell(raw string) Value {
	if strings.TrimSpace(raw) == "" {
		return Missing
	}
	return Str(raw)
}

// Valid reports whether the value is present.
func (v Value) Valid() bool { return v.valid }

// String returns the held text, or "" when missing.
func (v Value) String() string { return v.s }

// Or returns v when present, otherwise fallback.
func (v Value) Or(fallback Value) Value {
	if v.valid {
		return v
	}
	return fallback
}

// Float parses the value as a number. Decimal commas are accepted.
func (v Value) Float() (float64, bool) {
	if !v.valid {
		return 0, false
	}
	s := strings.TrimSpace(v.s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Bool parses a value written by Bool.
func (v Value) Bool() bool {
	b, _ := strconv.ParseBool(v.s)
	return v.valid && b
}
