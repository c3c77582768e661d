// Package cli implements the sheetprep command line tool.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetprep/internal/core"
	"github.com/JonMunkholm/sheetprep/internal/logging"
)

// globalOptions are flags shared by every command.
type globalOptions struct {
	logLevel  string
	logFormat string
	sheet     string
	delimiter string
}

// logger writes to the command's error stream so stdout stays clean for
// table output.
func (o *globalOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), o.logLevel, o.logFormat)
}

// load reads a .csv or .xlsx file into a table.
func (o *globalOptions) load(path string) (*core.Table, error) {
	format, err := core.FormatFromFilename(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	loader := core.Loader{Sheet: o.sheet}
	if o.delimiter != "" {
		r, size := utf8.DecodeRuneInString(o.delimiter)
		if size != len(o.delimiter) {
			return nil, fmt.Errorf("--delimiter must be a single character, got %q", o.delimiter)
		}
		loader.Delimiter = r
	}
	return loader.Load(data, format)
}

// NewRootCmd builds the sheetprep command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "sheetprep",
		Short: "Clean up exported spreadsheets",
		Long: `sheetprep loads CSV and Excel exports, finds where the data starts,
converts date columns and filters rows by date range.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	f.StringVar(&opts.sheet, "sheet", "", "worksheet to read from .xlsx files (default: first sheet)")
	f.StringVar(&opts.delimiter, "delimiter", "", "field delimiter for .csv files (default: ,)")

	root.AddCommand(newProcessCmd(opts), newStatsCmd(opts))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", core.FormatUserError(err))
		os.Exit(1)
	}
}
