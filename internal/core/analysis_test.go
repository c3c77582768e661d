package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestFindRows(t *testing.T) {
	tbl := salesTable(t)

	tests := []struct {
		name   string
		op     FindOp
		value  float64
		rows   int
		target float64
	}{
		{"min", FindMin, 0, 2, 10},
		{"max", FindMax, 0, 1, 40},
		{"equals", FindEquals, 20, 1, 20},
		{"equals none", FindEquals, 99, 0, 99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := FindRows(tbl, "Amount", tt.op, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.rows, res.Table.Len())
			require.NotNil(t, res.Target)
			assert.Equal(t, tt.target, *res.Target)
		})
	}

	res, err := FindRows(tbl, "Region", FindCount, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Table.Len())
	assert.Nil(t, res.Target)
}

func TestFindRows_Errors(t *testing.T) {
	tbl := salesTable(t)

	_, err := FindRows(tbl, "Nope", FindMin, 0)
	var ce *ColumnError
	assert.True(t, errors.As(err, &ce))

	_, err = FindRows(tbl, "Region", FindMax, 0)
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = FindRows(tbl, "Amount", FindOp("median"), 0)
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	tbl := salesTable(t)

	tests := []struct {
		name  string
		a     Analysis
		want  float64
		rows  int
		total *float64
	}{
		{"count all", Analysis{Func: FuncCount}, 5, 5, nil},
		{"count north", Analysis{FromColumn: "Region", Value: strptr("North"), Func: FuncCount}, 3, 3, nil},
		{"sum north", Analysis{FromColumn: "Region", Value: strptr("North"), Func: FuncSum, Target: "Amount"}, 50, 3, nil},
		{"average all", Analysis{Func: FuncAverage, Target: "Amount"}, 22, 5, nil},
		{"add", Analysis{Func: FuncAdd, Target: "Qty", Operand: 4}, 10, 5, ptr(6)},
		{"subtract", Analysis{Func: FuncSubtract, Target: "Qty", Operand: 1}, 5, 5, ptr(6)},
		{"multiply", Analysis{Func: FuncMultiply, Target: "Qty", Operand: 2}, 12, 5, ptr(6)},
		{"divide", Analysis{Func: FuncDivide, Target: "Qty", Operand: 4}, 1.5, 5, ptr(6)},
		{"filter by number text", Analysis{FromColumn: "Qty", Value: strptr("2"), Func: FuncSum, Target: "Amount"}, 50, 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Analyze(tbl, tt.a)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Result)
			assert.Equal(t, tt.rows, res.Rows)
			assert.Equal(t, tt.total, res.Total)
			assert.NotEmpty(t, res.Description)
		})
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tbl := salesTable(t)

	_, err := Analyze(tbl, Analysis{Func: FuncSum, Target: "Region"})
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = Analyze(tbl, Analysis{Func: FuncDivide, Target: "Amount"})
	assert.EqualError(t, err, "division by zero")

	_, err = Analyze(tbl, Analysis{FromColumn: "Nope", Value: strptr("x"), Func: FuncCount})
	var ce *ColumnError
	assert.True(t, errors.As(err, &ce))

	_, err = Analyze(tbl, Analysis{FromColumn: "Region", Value: strptr("East"), Func: FuncAverage, Target: "Amount"})
	assert.Error(t, err)
}

func ptr(f float64) *float64 { return &f }
