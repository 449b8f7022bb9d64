// Package tabular defines the named-column row model the importer consumes,
// with interchangeable sources: delimited text files, xlsx workbooks, Google
// Sheets ranges and in-memory tables for tests.
package tabular

import (
	"context"
	"strings"
)

type (
	// Table is one spreadsheet export: a header row naming the columns and
	// the data rows below it. Blank cells are empty strings; there is no
	// not-a-number sentinel anywhere in this model. Origin identifies the
	// backing file or spreadsheet, shared by every table read from it.
	Table struct {
		Name    string
		Origin  string
		Columns []string
		Rows    [][]string
	}

	// Row is a single data row with access to cells by column name.
	Row struct {
		index map[string]int
		cells []string
	}

	// Source yields tables from some backing spreadsheet store.
	Source interface {
		Tables(ctx context.Context) ([]Table, error)
	}
)

// NumRows returns the number of data rows.
func (t Table) NumRows() int {
	return len(t.Rows)
}

// Row returns the i-th data row bound to the table's columns.
func (t Table) Row(i int) Row {
	return Row{index: t.columnIndex(), cells: t.Rows[i]}
}

func (t Table) columnIndex() map[string]int {
	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		idx[strings.TrimSpace(c)] = i
	}
	return idx
}

// Get returns the trimmed cell under the named column, or "" when the column
// is absent or the row is short.
func (r Row) Get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

// Has reports whether the named column exists and holds a non-blank value.
func (r Row) Has(column string) bool {
	return r.Get(column) != ""
}
