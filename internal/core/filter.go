package core

import (
	"errors"
	"fmt"
	"time"
)

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate reads a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// In returns midnight at the start of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// After reports whether d is a later day than o.
func (d Date) After(o Date) bool {
	return d.In(time.UTC).After(o.In(time.UTC))
}

func (d Date) String() string {
	return d.In(time.UTC).Format("2006-01-02")
}

// MarshalText encodes the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a YYYY-MM-DD date.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive pair of calendar dates.
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// InvalidRangeError reports a date range whose start is after its end.
type InvalidRangeError struct {
	Start Date
	End   Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s", e.Start, e.End)
}

// ColumnError reports a column label absent from the table.
type ColumnError struct {
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column not found: %q", e.Column)
}

// ErrNotTemporal is returned when filtering on a column that does not hold
// timestamps.
var ErrNotTemporal = errors.New("column is not a timestamp column")

// ErrNoTimestamps is returned by DateBounds for a column with no values.
var ErrNoTimestamps = errors.New("column has no timestamps")

// FilterResult is the outcome of a date range filter.
type FilterResult struct {
	Table         *Table
	OriginalCount int
	FilteredCount int
}

// DateFilter keeps rows whose timestamp in Column falls within Start..End,
// both days inclusive.
type DateFilter struct {
	Column string
	Start  Date
	End    Date
	// Skip returns the input unchanged.
	Skip bool
	// Location defines day boundaries. Nil means UTC.
	Location *time.Location
}

// FilterByDateRange applies a DateFilter with UTC day boundaries.
func FilterByDateRange(t *Table, column string, start, end Date, skip bool) (FilterResult, error) {
	return DateFilter{Column: column, Start: start, End: end, Skip: skip}.Apply(t)
}

// Apply returns a new table holding only matching rows. Rows with a missing
// value in the column are dropped. When the range is inverted the original
// rows are returned with an *InvalidRangeError.
func (f DateFilter) Apply(t *Table) (FilterResult, error) {
	unchanged := FilterResult{Table: t.Clone(), OriginalCount: t.Len(), FilteredCount: t.Len()}
	if f.Skip {
		return unchanged, nil
	}
	if f.Start.After(f.End) {
		return unchanged, &InvalidRangeError{Start: f.Start, End: f.End}
	}

	idx := t.ColumnIndex(f.Column)
	if idx < 0 {
		return unchanged, &ColumnError{Column: f.Column}
	}
	if k := t.ColumnKind(f.Column); k != KindTime && k != KindMissing {
		return unchanged, fmt.Errorf("%w: %q holds %s values", ErrNotTemporal, f.Column, k)
	}

	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	lower := f.Start.In(loc)
	upper := f.End.In(loc).AddDate(0, 0, 1).Add(-time.Nanosecond)

	kept := make([][]Value, 0, t.Len())
	for _, row := range t.Rows {
		v := row[idx]
		if v.Kind != KindTime {
			continue
		}
		if v.Time.Before(lower) || v.Time.After(upper) {
			continue
		}
		kept = append(kept, row)
	}

	return FilterResult{
		Table:         t.withRows(kept),
		OriginalCount: t.Len(),
		FilteredCount: len(kept),
	}, nil
}

// DateBounds returns the earliest and latest dates in a timestamp column.
func DateBounds(t *Table, column string) (DateRange, error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return DateRange{}, &ColumnError{Column: column}
	}

	var lo, hi time.Time
	found := false
	for _, row := range t.Rows {
		v := row[idx]
		if v.Kind != KindTime {
			continue
		}
		if !found || v.Time.Before(lo) {
			lo = v.Time
		}
		if !found || v.Time.After(hi) {
			hi = v.Time
		}
		found = true
	}
	if !found {
		return DateRange{}, ErrNoTimestamps
	}
	return DateRange{Start: DateOf(lo), End: DateOf(hi)}, nil
}

// TemporalColumns lists the labels of columns holding timestamps.
func TemporalColumns(t *Table) []string {
	var out []string
	for _, c := range t.Columns {
		if t.ColumnKind(c) == KindTime {
			out = append(out, c)
		}
	}
	return out
}
