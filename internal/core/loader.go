package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Format identifies how raw input bytes are encoded.
type Format int

const (
	FormatCSV Format = iota
	FormatSpreadsheet
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatSpreadsheet:
		return "xlsx"
	default:
		return "unknown"
	}
}

// DefaultHeaderScanRows is how many leading spreadsheet rows are inspected
// when guessing the header row.
const DefaultHeaderScanRows = 5

// ErrEmptyFile is returned when the input holds no rows at all.
var ErrEmptyFile = errors.New("empty file")

// LoadError reports a failure to turn input bytes into a Table.
type LoadError struct {
	Format Format
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Format, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FormatFromFilename picks a Format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatSpreadsheet, nil
	default:
		return 0, fmt.Errorf("unsupported file type %q: use .csv or .xlsx", filepath.Ext(name))
	}
}

// Loader turns raw file bytes into a Table.
type Loader struct {
	// Delimiter separates fields in delimited text. Zero means ','.
	Delimiter rune
	// Sheet names the worksheet to read. Empty means the first sheet.
	Sheet string
	// HeaderScanRows bounds the header guess for spreadsheets.
	// Zero means DefaultHeaderScanRows.
	HeaderScanRows int
}

// Load parses data with a default Loader.
func Load(data []byte, format Format) (*Table, error) {
	return Loader{}.Load(data, format)
}

// Load parses data in the given format. Failures are returned as *LoadError.
func (l Loader) Load(data []byte, format Format) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch format {
	case FormatCSV:
		t, err = l.loadCSV(data)
	case FormatSpreadsheet:
		t, err = l.loadSpreadsheet(data)
	default:
		err = fmt.Errorf("unknown format %d", int(format))
	}
	if err != nil {
		return nil, &LoadError{Format: format, Err: err}
	}
	return t, nil
}

func (l Loader) loadCSV(data []byte) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	r := csv.NewReader(wrapTextInput(bytes.NewReader(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if l.Delimiter != 0 {
		r.Comma = l.Delimiter
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	return buildTable(records[0], records[1:]), nil
}

func (l Loader) loadSpreadsheet(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := l.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyFile
		}
		sheet = sheets[0]
	}

	// Raw values keep numbers and date serials free of display formatting;
	// sheetCells types them from the cell type and number format.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	cells, err := newSheetCells(f, sheet)
	if err != nil {
		return nil, err
	}
	typed := make([][]Value, len(rows))
	for r, row := range rows {
		typed[r] = make([]Value, len(row))
		for c, raw := range row {
			if raw == "" {
				continue
			}
			if typed[r][c], err = cells.value(c+1, r+1, raw); err != nil {
				return nil, err
			}
		}
	}

	scan := l.HeaderScanRows
	if scan <= 0 {
		scan = DefaultHeaderScanRows
	}
	header := GuessHeaderRow(rows, scan)
	labels := make([]string, len(typed[header]))
	for i, v := range typed[header] {
		labels[i] = v.String()
	}
	return buildValueTable(labels, typed[header+1:]), nil
}

// sheetCells types raw worksheet values.
type sheetCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	// dateStyles caches whether a style index carries a date number format.
	dateStyles map[int]bool
}

func newSheetCells(f *excelize.File, sheet string) (*sheetCells, error) {
	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, fmt.Errorf("read workbook properties: %w", err)
	}
	return &sheetCells{
		f:          f,
		sheet:      sheet,
		date1904:   props.Date1904 != nil && *props.Date1904,
		dateStyles: make(map[int]bool),
	}, nil
}

// value types one non-empty cell at 1-based col, row. String cells stay
// text, numbers with a date format become timestamps.
func (s *sheetCells) value(col, row int, raw string) (Value, error) {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Value{}, err
	}
	typ, err := s.f.GetCellType(s.sheet, ref)
	if err != nil {
		return Value{}, fmt.Errorf("read cell %s: %w", ref, err)
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return textCell(raw), nil
	case excelize.CellTypeBool:
		if raw == "1" || strings.EqualFold(raw, "true") {
			return Text("TRUE"), nil
		}
		return Text("FALSE"), nil
	case excelize.CellTypeDate:
		for _, layout := range isoCellLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return Timestamp(ts), nil
			}
		}
		return textCell(raw), nil
	}

	num, ok := parseNumber(strings.TrimSpace(raw))
	if !ok {
		return ParseCell(raw), nil
	}
	isDate, err := s.isDateStyle(ref)
	if err != nil {
		return Value{}, err
	}
	if isDate {
		if ts, err := excelize.ExcelDateToTime(num, s.date1904); err == nil {
			return Timestamp(ts), nil
		}
	}
	return Number(num), nil
}

var isoCellLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func (s *sheetCells) isDateStyle(ref string) (bool, error) {
	idx, err := s.f.GetCellStyle(s.sheet, ref)
	if err != nil {
		return false, fmt.Errorf("read style of %s: %w", ref, err)
	}
	if isDate, ok := s.dateStyles[idx]; ok {
		return isDate, nil
	}
	isDate := false
	if idx != 0 {
		if style, err := s.f.GetStyle(idx); err == nil {
			isDate = isDateNumFmt(style)
		}
	}
	s.dateStyles[idx] = isDate
	return isDate, nil
}

// isDateNumFmt reports whether a style formats numbers as dates or times.
func isDateNumFmt(style *excelize.Style) bool {
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	switch id := style.NumFmt; {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode looks for date or time tokens outside quoted literals,
// escapes and bracketed sections such as colors and locales.
func isDateFormatCode(code string) bool {
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			inQuote = c != '"'
		case inBracket:
			inBracket = c != ']'
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\' || c == '_' || c == '*':
			i++
		default:
			switch c | 0x20 {
			case 'y', 'm', 'd', 'h', 's':
				return true
			}
		}
	}
	return false
}

// textCell keeps a string cell as text unless it is an NA marker.
func textCell(raw string) Value {
	if strings.TrimSpace(raw) == "" {
		return Text(raw)
	}
	if IsNAToken(raw) {
		return Missing()
	}
	return Text(raw)
}

// GuessHeaderRow returns the index among the first n rows holding the most
// non-empty cells. Ties go to the lowest index.
func GuessHeaderRow(rows [][]string, n int) int {
	if n > len(rows) {
		n = len(rows)
	}
	best, bestCount := 0, -1
	for i := 0; i < n; i++ {
		count := 0
		for _, cell := range rows[i] {
			if cell != "" {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	return best
}

// buildTable types raw records and normalizes ragged rows.
func buildTable(header []string, records [][]string) *Table {
	rows := make([][]Value, len(records))
	for r, rec := range records {
		rows[r] = make([]Value, len(rec))
		for i, cell := range rec {
			rows[r][i] = ParseCell(cell)
		}
	}
	return buildValueTable(header, rows)
}

// buildValueTable pads ragged rows to a common width. Rows wider than the
// header widen the table with generated labels.
func buildValueTable(header []string, records [][]Value) *Table {
	width := len(header)
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}

	raw := make([]string, width)
	copy(raw, header)

	t := &Table{
		Columns: columnLabels(raw),
		Rows:    make([][]Value, 0, len(records)),
	}
	for _, rec := range records {
		row := make([]Value, width)
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// columnLabels makes labels unique: blanks become "Unnamed: <i>" and repeats
// get ".1", ".2" suffixes.
func columnLabels(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, label := range raw {
		if strings.TrimSpace(label) == "" {
			label = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[label]; dup {
			candidate := label
			for {
				n++
				candidate = label + "." + strconv.Itoa(n)
				if _, taken := seen[candidate]; !taken {
					break
				}
			}
			seen[label] = n
			label = candidate
		}
		seen[label] = 0
		out[i] = label
	}
	return out
}
