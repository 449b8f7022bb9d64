// Package importer turns raw spreadsheet exports into normalized expenditure
// and timecard records, deduplicating by natural key and creating missing
// parent projects and milestones with placeholder defaults.
package importer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"vmb/internal/core"
	"vmb/internal/tabular"
)

// Storage is the collaborator the importer writes through. Get-or-create and
// insert-if-absent must be atomic in the implementation so concurrent imports
// cannot race a duplicate past the natural-key check.
type Storage interface {
	GetOrCreateProject(ctx context.Context, p core.Project) (core.Project, bool, error)
	GetOrCreateMilestone(ctx context.Context, m core.Milestone) (core.Milestone, bool, error)
	// InsertExpenditureItem inserts the row unless its trans id already
	// exists; created is false for duplicates.
	InsertExpenditureItem(ctx context.Context, item core.ExpenditureItem) (created bool, err error)
	// InsertTimecardItem inserts the row unless its timecard id already
	// exists; created is false for duplicates.
	InsertTimecardItem(ctx context.Context, item core.TimecardItem) (created bool, err error)
}

// Result summarizes one import batch.
type Result struct {
	// FilesSeen counts the distinct backing files behind the batch: every
	// sheet of a workbook and every range of a spreadsheet collapse to one.
	FilesSeen         int
	RecordsCreated    int
	ProjectsCreated   int
	MilestonesCreated int
	// ProjectIDs are the oracle ids touched by the batch, in first-seen
	// order. Consumers use them to refresh per-project reports.
	ProjectIDs []int64
}

type Importer struct {
	store Storage
	now   func() time.Time
}

func New(store Storage) *Importer {
	return &Importer{store: store, now: time.Now}
}

// resolveProject looks the project up by oracle id, creating the permissive
// placeholder when the import references an unknown project.
func (im *Importer) resolveProject(ctx context.Context, oracleID int64, name string) (core.Project, bool, error) {
	return im.store.GetOrCreateProject(ctx, core.PlaceholderProject(oracleID, name, im.now()))
}

// countFiles counts the distinct table origins. Tables without an origin,
// such as in-memory fixtures, count one each.
func countFiles(tables []tabular.Table) int {
	seen := make(map[string]bool, len(tables))
	n := 0
	for _, t := range tables {
		if t.Origin == "" {
			n++
			continue
		}
		if !seen[t.Origin] {
			seen[t.Origin] = true
			n++
		}
	}
	return n
}

func (r *Result) touchProject(oracleID int64) {
	for _, id := range r.ProjectIDs {
		if id == oracleID {
			return
		}
	}
	r.ProjectIDs = append(r.ProjectIDs, oracleID)
}

// parseAmount coerces a cell to a decimal. Blank or unparseable values become
// zero: the source exports leave cost cells empty for non-monetary rows.
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
