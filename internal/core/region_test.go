package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectRegion_Identity(t *testing.T) {
	tbl := numberedTable(t, 4)

	sel, err := SelectRegion(tbl, Identity{})
	require.NoError(t, err)
	assert.Equal(t, Region{Start: 0, End: 3}, sel.Region)
	assert.Equal(t, tbl, sel.Table)

	again, err := SelectRegion(sel.Table, Identity{})
	require.NoError(t, err)
	assert.Equal(t, sel.Table, again.Table, "identity is idempotent")
}

func TestSelectRegion_Manual(t *testing.T) {
	tbl := numberedTable(t, 10)

	for s := 0; s < tbl.Len(); s++ {
		for e := s; e < tbl.Len(); e++ {
			sel, err := SelectRegion(tbl, Manual{Start: s, End: e})
			require.NoError(t, err)
			require.Equal(t, e-s+1, sel.Table.Len())
			assert.Equal(t, tbl.Columns, sel.Table.Columns)
			for i, row := range sel.Table.Rows {
				assert.Equal(t, float64(s+i), row[0].Num)
			}
		}
	}
}

func TestSelectRegion_ManualRejects(t *testing.T) {
	tbl := numberedTable(t, 10)

	tests := []struct {
		name       string
		start, end int
	}{
		{"end before start", 2, 1},
		{"negative start", -1, 3},
		{"end past last row", 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := SelectRegion(tbl, Manual{Start: tt.start, End: tt.end})
			var re *RangeError
			require.True(t, errors.As(err, &re), "got %v", err)
			assert.Equal(t, 10, re.Rows)
			assert.Nil(t, sel.Table)
		})
	}
	assert.Equal(t, 10, tbl.Len(), "input unchanged")
}

func TestSelectRegion_AutoDetectExample(t *testing.T) {
	tbl := firstColumnTable(t, "Statement Period", "", "01-03-2024", "02-03-2024", "")

	policy := AutoDetect{SkipWords: []string{"statement"}, Method: MethodDatePattern, CutAtBlank: true}
	sel, err := SelectRegion(tbl, policy)
	require.NoError(t, err)
	assert.Equal(t, Region{Start: 2, End: 3}, sel.Region)
	require.Equal(t, 2, sel.Table.Len())
	assert.Equal(t, "01-03-2024", sel.Table.Rows[0][0].String())
	assert.Equal(t, "02-03-2024", sel.Table.Rows[1][0].String())
}

func TestSelectRegion_AutoDetectWithoutCut(t *testing.T) {
	tbl := firstColumnTable(t, "Statement Period", "", "01-03-2024", "02-03-2024", "", "Total")

	sel, err := SelectRegion(tbl, AutoDetect{SkipWords: []string{"statement"}, Method: MethodDatePattern})
	require.NoError(t, err)
	assert.Equal(t, Region{Start: 2, End: 5}, sel.Region)
}

func TestSelectRegion_AutoDetectFailure(t *testing.T) {
	tbl := firstColumnTable(t, "Report", "Summary", "")

	sel, err := SelectRegion(tbl, AutoDetect{Method: MethodNumericPattern})
	assert.ErrorIs(t, err, ErrDetectionFailed)
	require.NotNil(t, sel.Table)
	assert.Equal(t, tbl, sel.Table)
	assert.Equal(t, Region{Start: 0, End: 2}, sel.Region)
}

func TestSelectRegion_AutoDetectEmptyTable(t *testing.T) {
	tbl, err := NewTable([]string{"A"}, nil)
	require.NoError(t, err)

	sel, err := SelectRegion(tbl, AutoDetect{Method: MethodAfterBlank})
	require.NoError(t, err)
	assert.Equal(t, 0, sel.Region.Len())
}

func TestSelectRegion_AutoDetectDeterministic(t *testing.T) {
	tbl := firstColumnTable(t, "ACCOUNT SUMMARY", "Date", "", "x", "1,234.5", "7", "")
	policies := []AutoDetect{
		{Method: MethodDatePattern},
		{Method: MethodNumericPattern, CutAtBlank: true},
		{Method: MethodAfterBlank, SkipWords: DefaultSkipWords},
		{Method: MethodNonHeader, CutAtBlank: true},
	}
	for _, p := range policies {
		first, firstErr := SelectRegion(tbl, p)
		for i := 0; i < 5; i++ {
			again, err := SelectRegion(tbl, p)
			assert.Equal(t, firstErr, err)
			assert.Equal(t, first.Region, again.Region)
		}
	}
}

func TestSelectRegion_UnknownPolicy(t *testing.T) {
	_, err := SelectRegion(numberedTable(t, 1), nil)
	assert.Error(t, err)
}

func TestRegion_Len(t *testing.T) {
	assert.Equal(t, 0, Region{Start: 0, End: -1}.Len())
	assert.Equal(t, 3, Region{Start: 2, End: 4}.Len())
}
