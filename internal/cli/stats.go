package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetprep/internal/core"
)

type statsOptions struct {
	*globalOptions
	json bool
}

func newStatsCmd(g *globalOptions) *cobra.Command {
	o := &statsOptions{globalOptions: g}

	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Show an overview and per-column statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := o.load(args[0])
			if err != nil {
				return err
			}
			s := core.Summarize(t)
			if o.json {
				data, err := json.MarshalIndent(s, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal stats: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			return writeSummary(cmd.OutOrStdout(), s)
		},
	}
	cmd.Flags().BoolVar(&o.json, "json", false, "output statistics as JSON")
	return cmd
}

func writeSummary(w io.Writer, s core.Summary) error {
	ov := s.Overview
	fmt.Fprintf(w, "Rows: %d  Columns: %d  Missing cells: %d  Duplicate rows: %d  Empty columns: %d\n",
		ov.Rows, ov.Columns, ov.MissingCells, ov.DuplicateRows, ov.EmptyColumns)

	if len(s.Numeric) > 0 {
		fmt.Fprintln(w, "\nNumeric columns:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "COLUMN\tCOUNT\tMIN\tMAX\tMEDIAN\tMODE\tMEAN\tSTD")
		for _, n := range s.Numeric {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				n.Column, n.Count, num(n.Min), num(n.Max), num(n.Median),
				optNum(n.Mode), num(n.Mean), optNum(n.StdDev))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(s.Categorical) > 0 {
		fmt.Fprintln(w, "\nText columns:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "COLUMN\tUNIQUE\tMODE\tMODE COUNT\tMISSING")
		for _, c := range s.Categorical {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\n", c.Column, c.Unique, c.Mode, c.ModeCount, c.Missing)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

func optNum(f *float64) string {
	if f == nil {
		return "-"
	}
	return num(*f)
}
