package core

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportSheet is the worksheet name used by WriteXLSX.
const ExportSheet = "Data"

// WriteCSV writes t as comma-separated text, header first.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Strings()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes t as a single-sheet workbook.
func WriteXLSX(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}

	for i, label := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ExportSheet, cell, label); err != nil {
			return fmt.Errorf("write xlsx header: %w", err)
		}
	}

	for r, row := range t.Rows {
		for c, v := range row {
			var cellValue any
			switch v.Kind {
			case KindMissing:
				continue
			case KindNumber:
				cellValue = v.Num
			case KindTime:
				cellValue = v.Time
			default:
				cellValue = v.Text
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(ExportSheet, cell, cellValue); err != nil {
				return fmt.Errorf("write xlsx row %d: %w", r+1, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
