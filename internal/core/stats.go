package core

import (
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
)

// Overview holds table-wide counts.
type Overview struct {
	Rows               int `json:"rows"`
	Columns            int `json:"columns"`
	NumericColumns     int `json:"numeric_columns"`
	CategoricalColumns int `json:"categorical_columns"`
	MissingCells       int `json:"missing_cells"`
	DuplicateRows      int `json:"duplicate_rows"`
	EmptyColumns       int `json:"empty_columns"`
}

// NumericStats describes one numeric column. Mode and StdDev are nil when
// they cannot be computed.
type NumericStats struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
	Median float64  `json:"median"`
	Mode   *float64 `json:"mode"`
	Mean   float64  `json:"mean"`
	StdDev *float64 `json:"std_dev"`
}

// CategoricalStats describes one text column.
type CategoricalStats struct {
	Column    string `json:"column"`
	Unique    int    `json:"unique"`
	Mode      string `json:"mode"`
	ModeCount int    `json:"mode_count"`
	Missing   int    `json:"missing"`
}

// Summary is the statistics report for a table.
type Summary struct {
	Overview    Overview           `json:"overview"`
	Numeric     []NumericStats     `json:"numeric"`
	Categorical []CategoricalStats `json:"categorical"`
}

// NumericColumns lists columns whose values are all numbers.
func NumericColumns(t *Table) []string {
	return columnsOfKind(t, KindNumber)
}

// CategoricalColumns lists columns holding text.
func CategoricalColumns(t *Table) []string {
	return columnsOfKind(t, KindText)
}

func columnsOfKind(t *Table, k Kind) []string {
	var out []string
	for _, c := range t.Columns {
		if t.ColumnKind(c) == k {
			out = append(out, c)
		}
	}
	return out
}

// Summarize computes the overview, numeric and categorical statistics.
func Summarize(t *Table) Summary {
	numeric := NumericColumns(t)
	categorical := CategoricalColumns(t)

	s := Summary{
		Overview: Overview{
			Rows:               t.Len(),
			Columns:            t.Width(),
			NumericColumns:     len(numeric),
			CategoricalColumns: len(categorical),
			MissingCells:       t.MissingCount(),
			DuplicateRows:      DuplicateRows(t),
		},
	}
	for _, c := range t.Columns {
		if t.ColumnKind(c) == KindMissing {
			s.Overview.EmptyColumns++
		}
	}

	for _, c := range numeric {
		if ns, ok := ColumnNumbers(t, c); ok {
			s.Numeric = append(s.Numeric, ns)
		}
	}
	for _, c := range categorical {
		s.Categorical = append(s.Categorical, ColumnCategories(t, c))
	}
	return s
}

// numbers returns the non-missing numeric values of a column.
func numbers(t *Table, column string) stats.Float64Data {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil
	}
	var data stats.Float64Data
	for _, row := range t.Rows {
		if v := row[idx]; v.Kind == KindNumber {
			data = append(data, v.Num)
		}
	}
	return data
}

// ColumnNumbers computes statistics over the numbers in a column. It
// reports false when the column has no numbers.
func ColumnNumbers(t *Table, column string) (NumericStats, bool) {
	data := numbers(t, column)
	if len(data) == 0 {
		return NumericStats{Column: column}, false
	}

	ns := NumericStats{Column: column, Count: len(data)}
	ns.Min, _ = stats.Min(data)
	ns.Max, _ = stats.Max(data)
	ns.Median, _ = stats.Median(data)
	ns.Mean, _ = stats.Mean(data)

	// Every value occurring once leaves no mode; fall back to the smallest.
	if modes, err := stats.Mode(data); err == nil {
		m := ns.Min
		if len(modes) > 0 {
			m = modes[0]
		}
		ns.Mode = &m
	}
	if len(data) > 1 {
		if sd, err := stats.StandardDeviationSample(data); err == nil {
			ns.StdDev = &sd
		}
	}
	return ns, true
}

// ColumnCategories counts distinct values in a column.
func ColumnCategories(t *Table, column string) CategoricalStats {
	cs := CategoricalStats{Column: column}
	col, ok := t.Column(column)
	if !ok {
		return cs
	}

	counts := make(map[string]int)
	for _, v := range col {
		if v.IsMissing() {
			cs.Missing++
			continue
		}
		counts[v.String()]++
	}
	cs.Unique = len(counts)

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > cs.ModeCount {
			cs.Mode, cs.ModeCount = k, counts[k]
		}
	}
	return cs
}

// DuplicateRows counts rows identical to an earlier row.
func DuplicateRows(t *Table) int {
	seen := make(map[string]struct{}, t.Len())
	dups := 0
	var b strings.Builder
	for _, row := range t.Rows {
		b.Reset()
		for _, v := range row {
			b.WriteString(v.Kind.String())
			b.WriteByte(':')
			b.WriteString(v.String())
			b.WriteByte(0)
		}
		key := b.String()
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}
