package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// firstColumnTable builds a single-column table from display strings using
// the loader's cell typing.
func firstColumnTable(t *testing.T, values ...string) *Table {
	t.Helper()
	rows := make([][]Value, len(values))
	for i, v := range values {
		rows[i] = []Value{ParseCell(v)}
	}
	tbl, err := NewTable([]string{"A"}, rows)
	require.NoError(t, err)
	return tbl
}

// numberedTable builds an n-row table whose "N" column holds 0..n-1.
func numberedTable(t *testing.T, n int) *Table {
	t.Helper()
	rows := make([][]Value, n)
	for i := range rows {
		rows[i] = []Value{Number(float64(i)), Text("row")}
	}
	tbl, err := NewTable([]string{"N", "Label"}, rows)
	require.NoError(t, err)
	return tbl
}

// datedTable builds a table with a "When" timestamp column.
func datedTable(t *testing.T, times ...time.Time) *Table {
	t.Helper()
	rows := make([][]Value, len(times))
	for i, ts := range times {
		if ts.IsZero() {
			rows[i] = []Value{Missing(), Number(float64(i))}
			continue
		}
		rows[i] = []Value{Timestamp(ts), Number(float64(i))}
	}
	tbl, err := NewTable([]string{"When", "Seq"}, rows)
	require.NoError(t, err)
	return tbl
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
