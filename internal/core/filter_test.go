package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestFilterByDateRange_Example(t *testing.T) {
	tbl := datedTable(t,
		day(2024, 1, 1), day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4), day(2024, 1, 5),
	)

	res, err := FilterByDateRange(tbl, "When", mustDate(t, "2024-01-02"), mustDate(t, "2024-01-03"), false)
	require.NoError(t, err)
	assert.Equal(t, 5, res.OriginalCount)
	assert.Equal(t, 2, res.FilteredCount)
	require.Equal(t, 2, res.Table.Len())
	assert.True(t, day(2024, 1, 2).Equal(res.Table.Rows[0][0].Time))
	assert.Equal(t, 5, tbl.Len(), "input unchanged")
}

func TestFilterByDateRange_EndOfDayInclusive(t *testing.T) {
	tbl := datedTable(t,
		time.Date(2024, 1, 3, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 1, 3, 23, 59, 59, 999_999_999, time.UTC),
		time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC),
	)

	res, err := FilterByDateRange(tbl, "When", mustDate(t, "2024-01-02"), mustDate(t, "2024-01-03"), false)
	require.NoError(t, err)
	require.Equal(t, 2, res.FilteredCount)
	assert.Equal(t, float64(0), res.Table.Rows[0][1].Num)
	assert.Equal(t, float64(1), res.Table.Rows[1][1].Num)
}

func TestFilterByDateRange_MissingExcluded(t *testing.T) {
	tbl := datedTable(t, day(2024, 1, 2), time.Time{}, day(2024, 1, 2))

	res, err := FilterByDateRange(tbl, "When", mustDate(t, "2024-01-01"), mustDate(t, "2024-12-31"), false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilteredCount)
}

func TestFilterByDateRange_Skip(t *testing.T) {
	tbl := datedTable(t, day(2024, 1, 1), day(2024, 6, 1))

	res, err := FilterByDateRange(tbl, "When", mustDate(t, "2030-01-01"), mustDate(t, "2020-01-01"), true)
	require.NoError(t, err)
	assert.Equal(t, tbl, res.Table)
	assert.Equal(t, res.OriginalCount, res.FilteredCount)

	again, err := FilterByDateRange(res.Table, "missing column", Date{}, Date{}, true)
	require.NoError(t, err)
	assert.Equal(t, res.Table, again.Table)
}

func TestFilterByDateRange_InvalidRange(t *testing.T) {
	tbl := datedTable(t, day(2024, 1, 1))

	res, err := FilterByDateRange(tbl, "When", mustDate(t, "2024-02-01"), mustDate(t, "2024-01-01"), false)
	var ire *InvalidRangeError
	require.True(t, errors.As(err, &ire))
	assert.Equal(t, tbl, res.Table)
	assert.Equal(t, 1, res.FilteredCount)
}

func TestFilterByDateRange_ColumnErrors(t *testing.T) {
	tbl := datedTable(t, day(2024, 1, 1))
	d := mustDate(t, "2024-01-01")

	_, err := FilterByDateRange(tbl, "Nope", d, d, false)
	var ce *ColumnError
	assert.True(t, errors.As(err, &ce))

	_, err = FilterByDateRange(tbl, "Seq", d, d, false)
	assert.ErrorIs(t, err, ErrNotTemporal)
}

func TestDateFilter_Location(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	// 2024-01-03 02:00 UTC is still Jan 2 at UTC-5.
	tbl := datedTable(t, time.Date(2024, 1, 3, 2, 0, 0, 0, time.UTC))

	f := DateFilter{Column: "When", Start: mustDate(t, "2024-01-02"), End: mustDate(t, "2024-01-02"), Location: loc}
	res, err := f.Apply(tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilteredCount)
}

func TestDateBounds(t *testing.T) {
	tbl := datedTable(t, day(2024, 3, 1), time.Time{}, day(2023, 12, 31), day(2024, 1, 5))

	r, err := DateBounds(tbl, "When")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", r.Start.String())
	assert.Equal(t, "2024-03-01", r.End.String())

	_, err = DateBounds(tbl, "Seq")
	assert.ErrorIs(t, err, ErrNoTimestamps)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, d)

	_, err = ParseDate("02/29/2024")
	assert.Error(t, err)
}

func TestTemporalColumns(t *testing.T) {
	tbl := datedTable(t, day(2024, 1, 1))
	assert.Equal(t, []string{"When"}, TemporalColumns(tbl))
}
