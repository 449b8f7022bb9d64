// Package excel reads xlsx workbooks with excelize, one table per sheet.
package excel

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"vmb/internal/tabular"
)

type Source struct {
	paths []string
}

var _ tabular.Source = (*Source)(nil)

// NewSource reads the given workbook files.
func NewSource(paths ...string) *Source {
	return &Source{paths: paths}
}

func (s *Source) Tables(ctx context.Context) ([]tabular.Table, error) {
	var tables []tabular.Table
	for _, path := range s.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ts, err := readWorkbook(path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, ts...)
	}
	return tables, nil
}

func readWorkbook(path string) ([]tabular.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	var tables []tabular.Table
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s of %s: %w", sheet, path, err)
		}
		t := tabular.Table{Name: sheet, Origin: path}
		if len(rows) > 0 {
			t.Columns = rows[0]
			t.Rows = rows[1:]
		}
		tables = append(tables, t)
	}
	return tables, nil
}
