// Package memory is an in-memory tabular source for tests.
package memory

import (
	"context"

	"vmb/internal/tabular"
)

type Source struct {
	tables []tabular.Table
}

var _ tabular.Source = (*Source)(nil)

func New(tables ...tabular.Table) *Source {
	return &Source{tables: tables}
}

func (s *Source) Tables(_ context.Context) ([]tabular.Table, error) {
	return s.tables, nil
}
