// Package core provides the table processing pipeline.
//
// This package is the heart of sheetprep, containing all domain logic
// independent of any UI or transport layer. It can be used by web handlers,
// CLI tools, or tests without modification. It holds no package-level
// mutable state; every parameter is an explicit input.
//
// # Architecture
//
// Processing is a short linear pipeline. Each stage takes a [Table] and
// returns a new one; inputs are never modified, so callers may keep the
// original around for a reset.
//
//  1. Loader: [Load] turns CSV or .xlsx bytes into a typed [Table].
//     For spreadsheets the header row is guessed with [GuessHeaderRow].
//  2. Region Selector: [SelectRegion] keeps a contiguous row range using a
//     [Policy]: [Identity], [Manual] or [AutoDetect].
//  3. Temporal Converter: [ConvertColumns] turns chosen columns into
//     timestamps; unparseable values become missing.
//  4. Range Filter: [FilterByDateRange] keeps rows inside an inclusive
//     calendar date range.
//
// [Pipeline.Run] chains stages 2 to 4 from a single [Steps] value.
//
// # Auto-detection
//
// [AutoDetect] scans the first column for the first row that is not blank,
// does not contain a skip word, and satisfies the [DetectionMethod]. With
// CutAtBlank the region ends just before the next blank first-column cell.
// When nothing matches, [SelectRegion] returns the whole table together
// with [ErrDetectionFailed].
//
// # Reporting
//
// [Summarize], [FindRows], [Analyze] and [Describe] compute the statistics
// shown next to a table. [WriteCSV] and [WriteXLSX] export it.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference.
package core
