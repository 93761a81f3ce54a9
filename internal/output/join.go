// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output joins lookup results with the input table and writes the
// results table, the graph-builder projection, and the failure list.
package output

import (
	"slices"

	"github.com/pdiddy/paper-enrich/internal/dataset"
	"github.com/pdiddy/paper-enrich/pkg/types"
)

// Table is a header plus rows of string cells, ready for CSV.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// InputSuffix is appended to a passthrough column whose name clashes with
// a result column, so the looked-up value keeps the plain name.
const InputSuffix = "_input"

// Join inner-joins records with the input table on id. Rows keep the
// order of records; records whose id is not in the input are dropped and
// counted. The results table carries types.ResultColumns followed by the
// input's passthrough columns, renamed with InputSuffix where they clash.
// The projection carries types.ProjectionColumns, filling non-result
// columns (title) from the input.
func Join(records []types.PaperMetadata, input *dataset.Table) (results, projection Table, dropped int) {
	passthrough := input.Passthrough()

	results.Header = append(slices.Clone(types.ResultColumns), passthroughHeader(passthrough)...)
	projection.Header = slices.Clone(types.ProjectionColumns)

	for _, rec := range records {
		if !input.Has(rec.ID) {
			dropped++
			continue
		}

		row := make([]string, 0, len(results.Header))
		for _, col := range types.ResultColumns {
			row = append(row, rec.Field(col))
		}
		for _, col := range passthrough {
			row = append(row, input.Get(rec.ID, col))
		}
		results.Rows = append(results.Rows, row)

		proj := make([]string, 0, len(projection.Header))
		for _, col := range types.ProjectionColumns {
			if slices.Contains(types.ResultColumns, col) {
				proj = append(proj, rec.Field(col))
			} else {
				proj = append(proj, input.Get(rec.ID, col))
			}
		}
		projection.Rows = append(projection.Rows, proj)
	}
	return results, projection, dropped
}

// passthroughHeader names the passthrough columns in the results table.
func passthroughHeader(columns []string) []string {
	taken := make(map[string]bool, len(types.ResultColumns)+len(columns))
	for _, c := range types.ResultColumns {
		taken[c] = true
	}
	for _, c := range columns {
		if !slices.Contains(types.ResultColumns, c) {
			taken[c] = true
		}
	}

	out := make([]string, len(columns))
	for i, c := range columns {
		if slices.Contains(types.ResultColumns, c) {
			for taken[c] {
				c += InputSuffix
			}
			taken[c] = true
		}
		out[i] = c
	}
	return out
}
