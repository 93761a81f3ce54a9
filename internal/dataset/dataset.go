// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset loads the table of paper identifiers an enrich run starts
// from. The table has an "id" column plus any number of passthrough columns
// (title, abstract, ...) that are carried into the output unchanged.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// IDColumn is the key column joined against Semantic Scholar results.
const IDColumn = "id"

var (
	// ErrMissingID is returned when the table has no id column or a row
	// has an empty id.
	ErrMissingID = errors.New("missing id")

	// ErrDuplicateID is returned when an id appears on more than one row.
	ErrDuplicateID = errors.New("duplicate id")
)

// Table is an in-memory identifier table keyed by id.
type Table struct {
	columns []string
	rows    [][]string
	idCol   int
	index   map[string]int
}

// New builds a Table from a header and rows. Every row must have one value
// per column, and ids must be non-empty and unique.
func New(columns []string, rows [][]string) (*Table, error) {
	idCol := slices.Index(columns, IDColumn)
	if idCol < 0 {
		return nil, fmt.Errorf("%w: no %q column in %v", ErrMissingID, IDColumn, columns)
	}

	t := &Table{
		columns: slices.Clone(columns),
		rows:    make([][]string, 0, len(rows)),
		idCol:   idCol,
		index:   make(map[string]int, len(rows)),
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d fields, want %d", i+1, len(row), len(columns))
		}
		id := strings.TrimSpace(row[idCol])
		if id == "" {
			return nil, fmt.Errorf("%w: row %d", ErrMissingID, i+1)
		}
		if prev, ok := t.index[id]; ok {
			return nil, fmt.Errorf("%w: %q on rows %d and %d", ErrDuplicateID, id, prev+1, i+1)
		}
		r := slices.Clone(row)
		r[idCol] = id
		t.index[id] = len(t.rows)
		t.rows = append(t.rows, r)
	}
	return t, nil
}

// Columns returns the header in file order.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Passthrough returns every column except id, in file order.
func (t *Table) Passthrough() []string {
	out := make([]string, 0, len(t.columns)-1)
	for i, c := range t.columns {
		if i != t.idCol {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// IDs returns the identifiers in row order.
func (t *Table) IDs() []string {
	ids := make([]string, len(t.rows))
	for i, r := range t.rows {
		ids[i] = r[t.idCol]
	}
	return ids
}

// Has reports whether id is in the table.
func (t *Table) Has(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Get returns the value of column for id. It returns "" when either the
// id or the column is unknown.
func (t *Table) Get(id, column string) string {
	i, ok := t.index[id]
	if !ok {
		return ""
	}
	c := slices.Index(t.columns, column)
	if c < 0 {
		return ""
	}
	return t.rows[i][c]
}

// Load reads a table from path. Files ending in .json are read as a JSON
// array of objects; everything else is read as CSV with a header row.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	var t *Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		t, err = ReadJSON(f)
	default:
		t, err = ReadCSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses a CSV table with a header row. Columns with an empty
// header (a dataframe index written alongside the data) are dropped.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty CSV", ErrMissingID)
	}

	header := records[0]
	keep := make([]int, 0, len(header))
	columns := make([]string, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			continue
		}
		keep = append(keep, i)
		columns = append(columns, h)
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(keep))
		for j, i := range keep {
			row[j] = rec[i]
		}
		rows = append(rows, row)
	}
	return New(columns, rows)
}

// ReadJSON parses a JSON array of flat objects. The id column comes first,
// followed by the remaining keys in sorted order. Numbers keep their
// literal form, null becomes "", and nested values are kept as raw JSON.
func ReadJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var objs []map[string]any
	if err := dec.Decode(&objs); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	seen := map[string]struct{}{IDColumn: {}}
	var extra []string
	for _, o := range objs {
		for k := range o {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				extra = append(extra, k)
			}
		}
	}
	slices.Sort(extra)
	columns := append([]string{IDColumn}, extra...)

	rows := make([][]string, 0, len(objs))
	for _, o := range objs {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = stringify(o[c])
		}
		rows = append(rows, row)
	}
	return New(columns, rows)
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
