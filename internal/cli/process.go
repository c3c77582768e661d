package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetprep/internal/core"
	"github.com/JonMunkholm/sheetprep/internal/sink"
)

type processOptions struct {
	*globalOptions

	mode       string
	method     string
	skipWords  string
	cutAtBlank bool
	start      int
	end        int

	convert  []string
	dayFirst bool

	filterColumn string
	from         string
	to           string

	output      string
	pgTable     string
	pgReplace   bool
	databaseURL string
}

func newProcessCmd(g *globalOptions) *cobra.Command {
	o := &processOptions{globalOptions: g}

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Select data rows, convert dates and filter by date range",
		Long: `Runs the cleaning pipeline on one file and writes the result.

Region modes:
  identity  keep every row
  manual    keep rows --start through --end (0-based, inclusive)
  auto      detect where the data starts from the first column`,
		Example: `  sheetprep process statement.csv --mode auto --cut-at-blank --convert Date \
    --filter-column Date --from 2024-01-01 --to 2024-01-31 -o january.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.mode, "mode", "identity", "region mode: identity, manual or auto")
	f.StringVar(&o.method, "method", "date-pattern", "auto detection method: date-pattern, numeric-pattern, after-blank, non-header")
	f.StringVar(&o.skipWords, "skip-words", strings.Join(core.DefaultSkipWords, ","), "comma-separated words marking non-data rows")
	f.BoolVar(&o.cutAtBlank, "cut-at-blank", false, "end the detected region at the first blank row")
	f.IntVar(&o.start, "start", 0, "first row for manual mode")
	f.IntVar(&o.end, "end", -1, "last row for manual mode (default: last row)")
	f.StringSliceVar(&o.convert, "convert", nil, "columns to convert to timestamps")
	f.BoolVar(&o.dayFirst, "day-first", false, "read ambiguous dates as day/month/year")
	f.StringVar(&o.filterColumn, "filter-column", "", "timestamp column to filter on")
	f.StringVar(&o.from, "from", "", "first day to keep, YYYY-MM-DD")
	f.StringVar(&o.to, "to", "", "last day to keep, YYYY-MM-DD")
	f.StringVarP(&o.output, "output", "o", "", "output file (.csv or .xlsx); CSV to stdout when empty")
	f.StringVar(&o.pgTable, "pg-table", "", "also copy the result into this PostgreSQL table")
	f.BoolVar(&o.pgReplace, "pg-replace", false, "drop an existing --pg-table first")
	f.StringVar(&o.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string for --pg-table")

	cmd.MarkFlagsRequiredTogether("filter-column", "from", "to")
	return cmd
}

func (o *processOptions) steps(rows int) (core.Steps, error) {
	var steps core.Steps

	switch o.mode {
	case "identity":
		steps.Region = core.Identity{}
	case "manual":
		end := o.end
		if end < 0 {
			end = rows - 1
		}
		steps.Region = core.Manual{Start: o.start, End: end}
	case "auto":
		method, err := core.ParseDetectionMethod(o.method)
		if err != nil {
			return steps, err
		}
		steps.Region = core.AutoDetect{
			SkipWords:  core.ParseSkipWords(o.skipWords),
			Method:     method,
			CutAtBlank: o.cutAtBlank,
		}
	default:
		return steps, fmt.Errorf("unsupported region policy %q: use identity, manual or auto", o.mode)
	}

	steps.Convert = o.convert

	if o.filterColumn != "" {
		start, err := core.ParseDate(o.from)
		if err != nil {
			return steps, err
		}
		end, err := core.ParseDate(o.to)
		if err != nil {
			return steps, err
		}
		steps.Filter = &core.DateFilter{Column: o.filterColumn, Start: start, End: end}
	}
	return steps, nil
}

func (o *processOptions) run(cmd *cobra.Command, path string) error {
	logger := o.logger(cmd)

	t, err := o.load(path)
	if err != nil {
		return err
	}
	steps, err := o.steps(t.Len())
	if err != nil {
		return err
	}

	p := core.Pipeline{Logger: logger, Converter: core.Converter{DayFirst: o.dayFirst}}
	out, err := p.Run(t, steps)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	for _, w := range out.Warnings {
		fmt.Fprintln(stderr, "Warning:", w)
	}
	if c := out.Conversion; c != nil && len(c.Failed) > 0 {
		fmt.Fprintln(stderr, "Warning: some values could not be converted in:", strings.Join(c.Failed, ", "))
	}
	for _, h := range out.History {
		fmt.Fprintln(stderr, h)
	}

	if err := o.write(cmd.OutOrStdout(), out.Table); err != nil {
		return err
	}

	if o.pgTable != "" {
		return o.exportPostgres(cmd.Context(), cmd, out.Table)
	}
	return nil
}

// write sends t to the output file, or CSV to stdout.
func (o *processOptions) write(stdout io.Writer, t *core.Table) error {
	if o.output == "" || o.output == "-" {
		return core.WriteCSV(stdout, t)
	}

	format, err := core.FormatFromFilename(o.output)
	if err != nil {
		return err
	}
	f, err := os.Create(o.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", o.output, err)
	}
	if format == core.FormatSpreadsheet {
		err = core.WriteXLSX(f, t)
	} else {
		err = core.WriteCSV(f, t)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(o.output), err)
	}
	return nil
}

func (o *processOptions) exportPostgres(ctx context.Context, cmd *cobra.Command, t *core.Table) error {
	if o.databaseURL == "" {
		return errors.New("database export disabled: set --database-url or DATABASE_URL")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := pgxpool.New(ctx, o.databaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	res, err := sink.NewPostgres(pool, o.logger(cmd)).Export(ctx, o.pgTable, t, sink.Options{Replace: o.pgReplace})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d rows to %s\n", res.Rows, res.Table)
	return nil
}
