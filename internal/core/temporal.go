package core

// temporal.go converts chosen columns to timestamps.
//
// Spreadsheet exports carry dates in many shapes: ISO dates and datetimes,
// US and EU slash/dash/dot dates, two-digit years, month names and compact
// yyyymmdd. Values that fit none of the known layouts become missing rather
// than failing the column; the affected columns are reported back.

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

var (
	isoLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"2006-1-2",
		"2006/01/02 15:04:05",
		"2006/01/02",
		"2006.01.02",
	}
	monthFirstLayouts = []string{
		"1/2/2006 15:04:05", "1/2/2006 15:04", "1/2/2006 3:04 PM", "1/2/2006",
		"1-2-2006 15:04:05", "1-2-2006",
		"1.2.2006",
	}
	dayFirstLayouts = []string{
		"2/1/2006 15:04:05", "2/1/2006 15:04", "2/1/2006",
		"2-1-2006 15:04:05", "2-1-2006",
		"2.1.2006",
	}
	namedMonthLayouts = []string{
		"Jan 2, 2006", "January 2, 2006", "Jan 2 2006",
		"2 Jan 2006", "2 January 2006", "02-Jan-2006", "2-Jan-2006",
		"Mon, 02 Jan 2006 15:04:05 MST", "Mon Jan 2 15:04:05 2006",
		"20060102",
	}
	monthFirstShortYear = []string{"1/2/06", "1-2-06", "1.2.06", "02-Jan-06"}
	dayFirstShortYear   = []string{"2/1/06", "2-1-06", "2.1.06", "02-Jan-06"}
)

// Converter parses text into timestamps.
type Converter struct {
	// DayFirst reads ambiguous numeric dates as D/M/Y instead of M/D/Y.
	DayFirst bool
	// Location is applied to values without a zone. Nil means UTC.
	Location *time.Location
	// PivotYear is the last year a 2-digit year may land in. Zero means
	// the current year plus TwoDigitYearPivot.
	PivotYear int
}

// ColumnConversion summarizes one converted column.
type ColumnConversion struct {
	Label     string `json:"label"`
	Converted int    `json:"converted"`
	Failed    int    `json:"failed"`
}

// ConversionResult is the outcome of converting columns.
type ConversionResult struct {
	Table *Table
	// Failed lists columns with at least one unparseable value.
	Failed []string
	// Unknown lists requested labels absent from the table.
	Unknown []string
	Columns []ColumnConversion
}

// ConvertColumns converts the named columns with a default Converter.
func ConvertColumns(t *Table, labels []string) ConversionResult {
	return Converter{}.Convert(t, labels)
}

// Convert returns a new table in which each named column holds timestamps.
// Unparseable values become missing; missing values stay missing and are
// not counted as failures. Other columns are untouched.
func (c Converter) Convert(t *Table, labels []string) ConversionResult {
	out := t.Clone()
	res := ConversionResult{Table: out}

	done := make(map[string]bool, len(labels))
	for _, label := range labels {
		if done[label] {
			continue
		}
		done[label] = true

		idx := out.ColumnIndex(label)
		if idx < 0 {
			res.Unknown = append(res.Unknown, label)
			continue
		}

		cc := ColumnConversion{Label: label}
		for _, row := range out.Rows {
			v := row[idx]
			if v.IsMissing() {
				continue
			}
			ts, ok := c.valueTime(v)
			if !ok {
				row[idx] = Missing()
				cc.Failed++
				continue
			}
			row[idx] = Timestamp(ts)
			cc.Converted++
		}
		if cc.Failed > 0 {
			res.Failed = append(res.Failed, label)
		}
		res.Columns = append(res.Columns, cc)
	}
	return res
}

func (c Converter) valueTime(v Value) (time.Time, bool) {
	switch v.Kind {
	case KindTime:
		return v.Time, true
	case KindNumber:
		if v.Num != math.Trunc(v.Num) || v.Num < 0 || v.Num > math.MaxInt32 {
			return time.Time{}, false
		}
		return c.Parse(strconv.FormatInt(int64(v.Num), 10))
	case KindText:
		return c.Parse(v.Text)
	default:
		return time.Time{}, false
	}
}

// Parse reads s using the known layouts.
func (c Converter) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}

	numeric, short := monthFirstLayouts, monthFirstShortYear
	if c.DayFirst {
		numeric, short = dayFirstLayouts, dayFirstShortYear
	}

	for _, group := range [][]string{isoLayouts, numeric, namedMonthLayouts} {
		for _, layout := range group {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
	}

	pivot := c.PivotYear
	if pivot == 0 {
		pivot = time.Now().Year() + TwoDigitYearPivot
	}
	for _, layout := range short {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			if t.Year() > pivot {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}
