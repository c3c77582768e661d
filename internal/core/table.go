package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the type of value held by a cell.
type Kind int

const (
	KindMissing Kind = iota
	KindText
	KindNumber
	KindTime
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindTime:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Value is a single table cell. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind
	Text string
	Num  float64
	Time time.Time
}

// Missing returns a missing value.
func Missing() Value { return Value{} }

// Text returns a text value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Timestamp returns a timestamp value.
func Timestamp(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// IsMissing reports whether the value holds nothing.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// IsBlank reports whether the value is missing, empty, or whitespace-only text.
func (v Value) IsBlank() bool {
	switch v.Kind {
	case KindMissing:
		return true
	case KindText:
		return strings.TrimSpace(v.Text) == ""
	default:
		return false
	}
}

// String renders the value as display text. Missing values render as "".
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindTime:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 && v.Time.Nanosecond() == 0 {
			return v.Time.Format("2006-01-02")
		}
		return v.Time.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindMissing:
		return true
	case KindText:
		return v.Text == o.Text
	case KindNumber:
		return v.Num == o.Num
	case KindTime:
		return v.Time.Equal(o.Time)
	}
	return false
}

// naTokens are cell strings read as missing, matching the markers common
// spreadsheet and dataframe exports write for absent values.
var naTokens = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// IsNAToken reports whether s, once trimmed, marks a missing value.
func IsNAToken(s string) bool {
	_, ok := naTokens[strings.TrimSpace(s)]
	return ok
}

// ParseCell types a raw cell string: empty or an NA marker is missing, a
// finite decimal number is a number, everything else is text.
func ParseCell(s string) Value {
	if s == "" || IsNAToken(s) {
		return Missing()
	}
	if f, ok := parseNumber(strings.TrimSpace(s)); ok {
		return Number(f)
	}
	return Text(s)
}

// parseNumber accepts finite decimal floats only. Hex floats, Inf and NaN
// stay text.
func parseNumber(s string) (float64, bool) {
	if hasHexPrefix(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func hasHexPrefix(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// Table is an in-memory rectangular collection of labeled columns and ordered
// rows. Every row holds exactly one Value per column.
//
// Tables are treated as immutable once built: every operation in this package
// returns a new Table and leaves its input untouched.
type Table struct {
	Columns []string
	Rows    [][]Value
}

// NewTable builds a table, padding short rows with missing values.
// It returns an error if labels are not unique or a row is wider than the
// label set.
func NewTable(columns []string, rows [][]Value) (*Table, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("duplicate column label %q", c)
		}
		seen[c] = struct{}{}
	}

	out := &Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]Value, len(rows)),
	}
	for i, r := range rows {
		if len(r) > len(columns) {
			return nil, fmt.Errorf("row %d has %d values for %d columns", i, len(r), len(columns))
		}
		row := make([]Value, len(columns))
		copy(row, r)
		out.Rows[i] = row
	}
	return out, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.Columns) }

// ColumnIndex returns the position of a column label, or -1.
func (t *Table) ColumnIndex(label string) int {
	for i, c := range t.Columns {
		if c == label {
			return i
		}
	}
	return -1
}

// Column returns a copy of the values in the named column.
func (t *Table) Column(label string) ([]Value, bool) {
	idx := t.ColumnIndex(label)
	if idx < 0 {
		return nil, false
	}
	out := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, true
}

// ColumnKind reports the single kind shared by every non-missing value in the
// column. Columns with mixed kinds report KindText; all-missing columns
// report KindMissing.
func (t *Table) ColumnKind(label string) Kind {
	idx := t.ColumnIndex(label)
	if idx < 0 {
		return KindMissing
	}
	kind := KindMissing
	for _, r := range t.Rows {
		v := r[idx]
		if v.IsMissing() {
			continue
		}
		if kind == KindMissing {
			kind = v.Kind
			continue
		}
		if kind != v.Kind {
			return KindText
		}
	}
	return kind
}

// MissingCount returns the number of missing cells across the table.
func (t *Table) MissingCount() int {
	n := 0
	for _, r := range t.Rows {
		for _, v := range r {
			if v.IsMissing() {
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]Value, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]Value(nil), r...)
	}
	return out
}

// SliceRows returns a new table holding rows start..end inclusive.
// Callers are responsible for bounds; see SelectRegion for checked access.
func (t *Table) SliceRows(start, end int) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	if end < start {
		out.Rows = [][]Value{}
		return out
	}
	out.Rows = make([][]Value, 0, end-start+1)
	for _, r := range t.Rows[start : end+1] {
		out.Rows = append(out.Rows, append([]Value(nil), r...))
	}
	return out
}

// withRows returns a table sharing labels with t and holding copies of the
// given rows.
func (t *Table) withRows(rows [][]Value) *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]Value, len(rows)),
	}
	for i, r := range rows {
		out.Rows[i] = append([]Value(nil), r...)
	}
	return out
}

// Strings renders the table as display strings, header first.
func (t *Table) Strings() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), t.Columns...))
	for _, r := range t.Rows {
		line := make([]string, len(r))
		for i, v := range r {
			line[i] = v.String()
		}
		out = append(out, line)
	}
	return out
}
