package core

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"testing"
	"time"
)

// ============================================================================
// Cell Parsing Benchmarks
// ============================================================================

// BenchmarkParseCell benchmarks cell typing. This runs once per cell during
// every load.
func BenchmarkParseCell(b *testing.B) {
	testCases := []string{
		"123",
		"-456.78",
		"01/15/2024",
		"Coffee Shop",
		"  999.99  ",
		"",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseCell(tc)
		}
	}
}

// BenchmarkConverterParse benchmarks date parsing across the accepted layouts.
func BenchmarkConverterParse(b *testing.B) {
	testCases := []string{
		"2024-01-15",
		"01/15/2024",
		"1/5/24",
		"2024-01-15 13:45:00",
		"Jan 15, 2024",
		"not a date",
	}
	c := Converter{Location: time.UTC}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			c.Parse(tc)
		}
	}
}

// ============================================================================
// Load Benchmarks
// ============================================================================

func BenchmarkLoadCSV(b *testing.B) {
	data := generateTestCSV(100)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Load(data, FormatCSV); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLoadCSV_Large(b *testing.B) {
	data := generateTestCSV(10000)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Load(data, FormatCSV); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkTextInput_LargeFile benchmarks BOM stripping and UTF-8 repair on
// a large input.
func BenchmarkTextInput_LargeFile(b *testing.B) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, generateTestCSV(10000)...)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := io.Copy(io.Discard, wrapTextInput(bytes.NewReader(data))); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Pipeline Benchmarks
// ============================================================================

func BenchmarkDetectRegion(b *testing.B) {
	values := make([]Value, 0, 1010)
	for _, s := range []string{"Statement", "Account 1234", "Period", "Date"} {
		values = append(values, Text(s))
	}
	for i := 0; i < 1000; i++ {
		values = append(values, Text("01/15/2024"))
	}
	values = append(values, Missing(), Text("Total"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DetectRegion(values, DefaultSkipWords, MethodDatePattern, true)
	}
}

func BenchmarkConvertColumns(b *testing.B) {
	t, err := Load(generateTestCSV(1000), FormatCSV)
	if err != nil {
		b.Fatal(err)
	}
	c := Converter{Location: time.UTC}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Convert(t, []string{"Date"})
	}
}

func BenchmarkFilterByDateRange(b *testing.B) {
	t, err := Load(generateTestCSV(1000), FormatCSV)
	if err != nil {
		b.Fatal(err)
	}
	t = Converter{Location: time.UTC}.Convert(t, []string{"Date"}).Table
	f := DateFilter{
		Column:   "Date",
		Start:    Date{Year: 2024, Month: time.January, Day: 10},
		End:      Date{Year: 2024, Month: time.January, Day: 20},
		Location: time.UTC,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := f.Apply(t); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSummarize(b *testing.B) {
	t, err := Load(generateTestCSV(1000), FormatCSV)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Summarize(t)
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

// generateTestCSV generates CSV data with the specified number of rows.
func generateTestCSV(rows int) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"ID", "Name", "Date", "Amount", "Status"})
	for i := 0; i < rows; i++ {
		w.Write([]string{
			strconv.Itoa(1000 + i),
			"John Doe",
			"2024-01-" + strconv.Itoa(10+i%20),
			"1234.56",
			"active",
		})
	}
	w.Flush()

	return buf.Bytes()
}
