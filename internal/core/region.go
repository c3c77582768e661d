package core

import (
	"errors"
	"fmt"
)

// Region is an inclusive row-index interval. The empty region is {0, -1}.
type Region struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of rows covered.
func (r Region) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// fullRegion covers every row of t.
func fullRegion(t *Table) Region {
	return Region{Start: 0, End: t.Len() - 1}
}

// Policy selects which rows of a table are kept. It is implemented only by
// Identity, Manual and AutoDetect.
type Policy interface {
	isPolicy()
	// Name returns a short label used in logs and history.
	Name() string
}

// Identity keeps every row.
type Identity struct{}

// Manual keeps rows Start..End inclusive.
type Manual struct {
	Start int
	End   int
}

// AutoDetect locates the data block by inspecting the first column.
type AutoDetect struct {
	SkipWords  []string
	Method     DetectionMethod
	CutAtBlank bool
}

func (Identity) isPolicy()   {}
func (Manual) isPolicy()     {}
func (AutoDetect) isPolicy() {}

func (Identity) Name() string   { return "identity" }
func (Manual) Name() string     { return "manual" }
func (AutoDetect) Name() string { return "auto" }

// Selection is the outcome of SelectRegion.
type Selection struct {
	Table  *Table
	Region Region
}

// ErrDetectionFailed is returned alongside the unchanged table when
// auto-detection finds no data-start row. Callers may treat it as a warning.
var ErrDetectionFailed = errors.New("could not detect data start")

// RangeError reports manual row indices outside the table.
type RangeError struct {
	Start int
	End   int
	Rows  int
}

func (e *RangeError) Error() string {
	switch {
	case e.Start < 0:
		return fmt.Sprintf("row range %d..%d: start must not be negative", e.Start, e.End)
	case e.End < e.Start:
		return fmt.Sprintf("row range %d..%d: end is before start", e.Start, e.End)
	default:
		return fmt.Sprintf("row range %d..%d: table has %d rows", e.Start, e.End, e.Rows)
	}
}

// SelectRegion applies p to t and returns the sliced table with the region
// used. The input table is not modified.
//
// For AutoDetect, a failed detection returns a copy of t covering every row
// together with ErrDetectionFailed.
func SelectRegion(t *Table, p Policy) (Selection, error) {
	switch p := p.(type) {
	case Identity:
		return Selection{Table: t.Clone(), Region: fullRegion(t)}, nil
	case Manual:
		return selectManual(t, p)
	case AutoDetect:
		return selectAuto(t, p)
	case nil:
		return Selection{}, errors.New("no region policy")
	default:
		return Selection{}, fmt.Errorf("unsupported region policy %T", p)
	}
}

func selectManual(t *Table, p Manual) (Selection, error) {
	if p.Start < 0 || p.End < p.Start || p.End > t.Len()-1 {
		return Selection{}, &RangeError{Start: p.Start, End: p.End, Rows: t.Len()}
	}
	return Selection{
		Table:  t.SliceRows(p.Start, p.End),
		Region: Region{Start: p.Start, End: p.End},
	}, nil
}

func selectAuto(t *Table, p AutoDetect) (Selection, error) {
	if t.Len() == 0 || t.Width() == 0 {
		return Selection{Table: t.Clone(), Region: fullRegion(t)}, nil
	}

	first := make([]Value, t.Len())
	for i, r := range t.Rows {
		first[i] = r[0]
	}

	region, ok := DetectRegion(first, p.SkipWords, p.Method, p.CutAtBlank)
	if !ok {
		return Selection{Table: t.Clone(), Region: fullRegion(t)}, ErrDetectionFailed
	}
	return Selection{
		Table:  t.SliceRows(region.Start, region.End),
		Region: region,
	}, nil
}
