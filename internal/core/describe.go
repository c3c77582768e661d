package core

// ColumnInfo is a short description of one column.
type ColumnInfo struct {
	Label   string `json:"label"`
	Kind    string `json:"kind"`
	Missing int    `json:"missing"`
}

// Description summarizes a table for preview.
type Description struct {
	Rows    int          `json:"rows"`
	Columns []ColumnInfo `json:"columns"`
}

// Describe reports each column's kind and missing count.
func Describe(t *Table) Description {
	d := Description{Rows: t.Len(), Columns: make([]ColumnInfo, len(t.Columns))}
	for i, c := range t.Columns {
		info := ColumnInfo{Label: c, Kind: t.ColumnKind(c).String()}
		for _, row := range t.Rows {
			if row[i].IsMissing() {
				info.Missing++
			}
		}
		d.Columns[i] = info
	}
	return d
}

// Head returns up to n leading rows of t.
func Head(t *Table, n int) *Table {
	if n >= t.Len() {
		return t.Clone()
	}
	if n <= 0 {
		return t.withRows(nil)
	}
	return t.SliceRows(0, n-1)
}
