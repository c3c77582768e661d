package core

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Steps describes one pass through the pipeline. Nil or empty fields skip
// their stage.
type Steps struct {
	Region  Policy
	Convert []string
	Filter  *DateFilter
}

// Outcome is the result of Pipeline.Run.
type Outcome struct {
	Table      *Table
	Region     *Region
	Conversion *ConversionResult
	Filter     *FilterResult
	// Warnings holds soft failures such as a failed auto-detection.
	Warnings []string
	// History describes each applied stage, oldest first.
	History []string
}

// Pipeline runs region selection, conversion and filtering in order.
type Pipeline struct {
	Logger    *slog.Logger
	Converter Converter
}

// Run applies steps to t. The input table is never modified. A failed
// auto-detection is recorded as a warning and the full table flows on;
// any other error stops the run.
func (p Pipeline) Run(t *Table, steps Steps) (Outcome, error) {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}

	out := Outcome{Table: t}

	if steps.Region != nil {
		sel, err := SelectRegion(out.Table, steps.Region)
		switch {
		case errors.Is(err, ErrDetectionFailed):
			log.Warn("region detection failed, keeping all rows",
				"policy", steps.Region.Name(),
				"rows", out.Table.Len(),
			)
			out.Warnings = append(out.Warnings, "Could not detect data start automatically. Using full dataset.")
		case err != nil:
			return out, fmt.Errorf("select region: %w", err)
		default:
			log.Info("region selected",
				"policy", steps.Region.Name(),
				"start", sel.Region.Start,
				"end", sel.Region.End,
				"rows", sel.Table.Len(),
			)
			out.History = append(out.History, fmt.Sprintf("Selected rows %d-%d (%s, %d rows)",
				sel.Region.Start, sel.Region.End, steps.Region.Name(), sel.Region.Len()))
		}
		region := sel.Region
		out.Region = &region
		out.Table = sel.Table
	}

	if len(steps.Convert) > 0 {
		conv := p.Converter.Convert(out.Table, steps.Convert)
		log.Info("columns converted",
			"columns", steps.Convert,
			"failed", conv.Failed,
			"unknown", conv.Unknown,
		)
		if len(conv.Unknown) > 0 {
			out.Warnings = append(out.Warnings, "Unknown columns: "+strings.Join(conv.Unknown, ", "))
		}
		var converted []string
		for _, c := range conv.Columns {
			converted = append(converted, c.Label)
		}
		if len(converted) > 0 {
			out.History = append(out.History, "Converted to timestamp: "+strings.Join(converted, ", "))
		}
		out.Conversion = &conv
		out.Table = conv.Table
	}

	if steps.Filter != nil {
		res, err := steps.Filter.Apply(out.Table)
		if err != nil {
			return out, fmt.Errorf("filter by date: %w", err)
		}
		log.Info("date filter applied",
			"column", steps.Filter.Column,
			"skip", steps.Filter.Skip,
			"original", res.OriginalCount,
			"filtered", res.FilteredCount,
		)
		if !steps.Filter.Skip {
			out.History = append(out.History, fmt.Sprintf("Filtered %s from %s to %s (%d of %d rows)",
				steps.Filter.Column, steps.Filter.Start, steps.Filter.End, res.FilteredCount, res.OriginalCount))
		}
		out.Filter = &res
		out.Table = res.Table
	}

	if out.Table == t {
		out.Table = t.Clone()
	}
	return out, nil
}
