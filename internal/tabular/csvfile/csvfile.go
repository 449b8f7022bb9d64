// Package csvfile reads delimited spreadsheet exports: the UTF-8
// comma-separated timecard export and the UTF-16 tab-separated expenditure
// export produced by Oracle.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"vmb/internal/tabular"
)

// Options controls how files are decoded.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune
	// UTF16 decodes the file as UTF-16 (BOM-aware, little-endian default)
	// before parsing.
	UTF16 bool
}

// Expenditure exports are UTF-16 tab-separated, timecard exports UTF-8
// comma-separated.
var (
	ExpenditureOptions = Options{Comma: '\t', UTF16: true}
	TimecardOptions    = Options{Comma: ','}
)

// Source reads a fixed set of files.
type Source struct {
	paths []string
	opts  Options
}

var _ tabular.Source = (*Source)(nil)

// NewSource reads the given files, one table per file.
func NewSource(opts Options, paths ...string) *Source {
	return &Source{paths: paths, opts: opts}
}

// NewDirSource reads every regular file in dir, one table per file, in
// lexical order.
func NewDirSource(dir string, opts Options) (*Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return &Source{paths: paths, opts: opts}, nil
}

func (s *Source) Tables(ctx context.Context) ([]tabular.Table, error) {
	tables := make([]tabular.Table, 0, len(s.paths))
	for _, path := range s.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := s.readFile(path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (s *Source) readFile(path string) (tabular.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if s.opts.UTF16 {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		r = transform.NewReader(f, dec)
	}

	cr := csv.NewReader(r)
	cr.Comma = s.opts.Comma
	if cr.Comma == 0 {
		cr.Comma = ','
	}
	cr.FieldsPerRecord = -1 // exports occasionally pad or truncate rows
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return tabular.Table{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return tabular.Table{Name: filepath.Base(path), Origin: path}, nil
	}
	return tabular.Table{
		Name:    filepath.Base(path),
		Origin:  path,
		Columns: records[0],
		Rows:    records[1:],
	}, nil
}
