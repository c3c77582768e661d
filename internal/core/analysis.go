package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"
)

// ErrNotNumeric is returned when a numeric operation targets a column that
// does not hold numbers.
var ErrNotNumeric = errors.New("column is not numeric")

// FindOp selects rows relative to a column's values.
type FindOp string

const (
	FindMin    FindOp = "min"
	FindMax    FindOp = "max"
	FindCount  FindOp = "count"
	FindEquals FindOp = "equals"
)

// FindResult holds the rows selected by FindRows.
type FindResult struct {
	Table *Table
	// Target is the value matched for min, max and equals.
	Target *float64
}

// FindRows returns rows whose value in column equals the column minimum,
// maximum or value. FindCount returns every row.
func FindRows(t *Table, column string, op FindOp, value float64) (FindResult, error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return FindResult{}, &ColumnError{Column: column}
	}
	if op == FindCount {
		return FindResult{Table: t.Clone()}, nil
	}

	if k := t.ColumnKind(column); k != KindNumber {
		return FindResult{}, fmt.Errorf("%w: %q", ErrNotNumeric, column)
	}
	data := numbers(t, column)

	var target float64
	switch op {
	case FindMin:
		target, _ = stats.Min(data)
	case FindMax:
		target, _ = stats.Max(data)
	case FindEquals:
		target = value
	default:
		return FindResult{}, fmt.Errorf("unknown find operation %q", op)
	}

	var kept [][]Value
	for _, row := range t.Rows {
		if v := row[idx]; v.Kind == KindNumber && v.Num == target {
			kept = append(kept, row)
		}
	}
	return FindResult{Table: t.withRows(kept), Target: &target}, nil
}

// AnalysisFunc names an aggregate over the filtered rows.
type AnalysisFunc string

const (
	FuncCount    AnalysisFunc = "count"
	FuncSum      AnalysisFunc = "sum"
	FuncAverage  AnalysisFunc = "average"
	FuncAdd      AnalysisFunc = "add"
	FuncSubtract AnalysisFunc = "subtract"
	FuncMultiply AnalysisFunc = "multiply"
	FuncDivide   AnalysisFunc = "divide"
)

// Analysis filters rows where FromColumn equals Value (all rows when Value
// is nil), then applies Func to Target. Arithmetic functions first sum
// Target and then combine the sum with Operand.
type Analysis struct {
	FromColumn string
	Value      *string
	Func       AnalysisFunc
	Target     string
	Operand    float64
}

// AnalysisResult is the outcome of Analyze.
type AnalysisResult struct {
	Table  *Table   `json:"-"`
	Rows   int      `json:"rows"`
	Total  *float64 `json:"total,omitempty"`
	Result float64  `json:"result"`
	// Description reads like "Sum of 'Amount' for 'North'".
	Description string `json:"description"`
}

// Analyze runs a single analysis.
func Analyze(t *Table, a Analysis) (AnalysisResult, error) {
	filtered := t
	scope := "all data"
	if a.Value != nil {
		idx := t.ColumnIndex(a.FromColumn)
		if idx < 0 {
			return AnalysisResult{}, &ColumnError{Column: a.FromColumn}
		}
		var kept [][]Value
		for _, row := range t.Rows {
			if v := row[idx]; !v.IsMissing() && v.String() == *a.Value {
				kept = append(kept, row)
			}
		}
		filtered = t.withRows(kept)
		scope = fmt.Sprintf("'%s'", *a.Value)
	} else {
		filtered = t.Clone()
	}

	res := AnalysisResult{Table: filtered, Rows: filtered.Len()}
	if a.Func == FuncCount {
		res.Result = float64(filtered.Len())
		res.Description = "Count of rows for " + scope
		return res, nil
	}

	if t.ColumnIndex(a.Target) < 0 {
		return AnalysisResult{}, &ColumnError{Column: a.Target}
	}
	if k := t.ColumnKind(a.Target); k != KindNumber {
		return AnalysisResult{}, fmt.Errorf("%w: %q", ErrNotNumeric, a.Target)
	}
	data := numbers(filtered, a.Target)
	var sum float64
	if len(data) > 0 {
		sum, _ = stats.Sum(data)
	}

	switch a.Func {
	case FuncSum:
		res.Result = sum
	case FuncAverage:
		mean, err := stats.Mean(data)
		if err != nil {
			return AnalysisResult{}, fmt.Errorf("average of %q: no values for %s", a.Target, scope)
		}
		res.Result = mean
	case FuncAdd:
		res.Result = sum + a.Operand
	case FuncSubtract:
		res.Result = sum - a.Operand
	case FuncMultiply:
		res.Result = sum * a.Operand
	case FuncDivide:
		if a.Operand == 0 {
			return AnalysisResult{}, errors.New("division by zero")
		}
		res.Result = sum / a.Operand
	default:
		return AnalysisResult{}, fmt.Errorf("unknown analysis function %q", a.Func)
	}

	switch a.Func {
	case FuncAdd, FuncSubtract, FuncMultiply, FuncDivide:
		res.Total = &sum
		res.Description = fmt.Sprintf("%s of '%s' total for %s with %g", capitalize(string(a.Func)), a.Target, scope, a.Operand)
	default:
		res.Description = fmt.Sprintf("%s of '%s' for %s", capitalize(string(a.Func)), a.Target, scope)
	}
	return res, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
