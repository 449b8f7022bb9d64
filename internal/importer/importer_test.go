package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vmb/internal/core"
	"vmb/internal/tabular"
	"vmb/internal/tabular/memory"
)

// fakeStore is an in-memory Storage for importer tests.
type fakeStore struct {
	projects     map[int64]core.Project
	milestones   map[string]core.Milestone // key: projectID/task
	expenditures map[int64]core.ExpenditureItem
	timecards    map[string]core.TimecardItem
	nextMsID     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:     make(map[int64]core.Project),
		milestones:   make(map[string]core.Milestone),
		expenditures: make(map[int64]core.ExpenditureItem),
		timecards:    make(map[string]core.TimecardItem),
	}
}

func (f *fakeStore) GetOrCreateProject(_ context.Context, p core.Project) (core.Project, bool, error) {
	if existing, ok := f.projects[p.OracleID]; ok {
		return existing, false, nil
	}
	f.projects[p.OracleID] = p
	return p, true, nil
}

func msKey(projectID int64, task string) string {
	return fmt.Sprintf("%d/%s", projectID, task)
}

func (f *fakeStore) GetOrCreateMilestone(_ context.Context, m core.Milestone) (core.Milestone, bool, error) {
	key := msKey(m.ProjectID, m.Task)
	if existing, ok := f.milestones[key]; ok {
		return existing, false, nil
	}
	f.nextMsID++
	m.ID = f.nextMsID
	f.milestones[key] = m
	return m, true, nil
}

func (f *fakeStore) InsertExpenditureItem(_ context.Context, item core.ExpenditureItem) (bool, error) {
	if _, ok := f.expenditures[item.TransID]; ok {
		return false, nil
	}
	f.expenditures[item.TransID] = item
	return true, nil
}

func (f *fakeStore) InsertTimecardItem(_ context.Context, item core.TimecardItem) (bool, error) {
	if _, ok := f.timecards[item.TimecardID]; ok {
		return false, nil
	}
	f.timecards[item.TimecardID] = item
	return true, nil
}

var expenditureColumns = []string{
	"Trans Id", "Project", "Task", "Expnd Type", "Item Date", "Employee/Supplier",
	"Quantity", "UOM", "Proj Func Burdened Cost", "Project Burdened Cost",
	"Accrued Revenue", "Bill Amount", "Comment",
}

func expenditureTable(rows ...[]string) tabular.Table {
	return tabular.Table{Name: "expenditures.txt", Columns: expenditureColumns, Rows: rows}
}

var timecardColumns = []string{
	"Timecard Split ID", "Project: OPA Project Number", "Milestone: OPA Task Number",
	"Milestone: Milestone Name", "Start Date", "Resource: Full Name", "Total Hours",
	"Delivery Location", "Timecard Notes week", "Friday Notes",
}

func timecardTable(rows ...[]string) tabular.Table {
	return tabular.Table{Name: "timecards.csv", Columns: timecardColumns, Rows: rows}
}

func TestImportTimecardsCountsFilesNotSheets(t *testing.T) {
	store := newFakeStore()
	im := New(store)

	// two sheets of the same workbook count as one file
	jan := timecardTable([]string{"TC-1", "12", "1.1", "Consultant", "1/8/2024", "Doe, Jane", "8", "Remote", "T12 x", ""})
	feb := timecardTable([]string{"TC-2", "12", "1.1", "Consultant", "2/5/2024", "Doe, Jane", "4", "Remote", "T12 y", ""})
	jan.Name, jan.Origin = "January", "timecards.xlsx"
	feb.Name, feb.Origin = "February", "timecards.xlsx"

	res, err := im.ImportTimecards(context.Background(), memory.New(jan, feb))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.FilesSeen != 1 {
		t.Fatalf("files seen = %d, want 1", res.FilesSeen)
	}
	if res.RecordsCreated != 2 {
		t.Fatalf("records created = %d, want 2", res.RecordsCreated)
	}
}

func TestImportExpendituresCoercesBadCosts(t *testing.T) {
	store := newFakeStore()
	im := New(store)

	res, err := im.ImportExpenditures(context.Background(), memory.New(expenditureTable(
		[]string{"500", "12", "1.1", "Labor", "05-Jan-2024", "Doe, Jane", "8", "Hours", "NaN", "", "480", "520", "sprint work"},
	)))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.FilesSeen != 1 || res.RecordsCreated != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	item, ok := store.expenditures[500]
	if !ok {
		t.Fatalf("expected trans id 500 stored")
	}
	if !item.ProjFuncBurdenedCost.IsZero() {
		t.Fatalf("NaN cost must coerce to 0, got %s", item.ProjFuncBurdenedCost)
	}
	if !item.ProjectBurdenedCost.IsZero() {
		t.Fatalf("blank cost must coerce to 0, got %s", item.ProjectBurdenedCost)
	}
	if !item.Quantity.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("unexpected quantity %s", item.Quantity)
	}
	if !item.ItemDate.Equal(time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected item date %v", item.ItemDate)
	}

	// project 12 was auto-created with placeholder defaults
	p, ok := store.projects[12]
	if !ok {
		t.Fatalf("expected project 12 auto-created")
	}
	if res.ProjectsCreated != 1 {
		t.Fatalf("expected 1 project created, got %d", res.ProjectsCreated)
	}
	if !p.SoldHours.Equal(decimal.NewFromInt(1)) || !p.StartDate.Equal(core.PlaceholderStart) {
		t.Fatalf("unexpected placeholder project %+v", p)
	}
}

func TestImportExpendituresIdempotent(t *testing.T) {
	store := newFakeStore()
	im := New(store)
	src := memory.New(expenditureTable(
		[]string{"500", "12", "1.1", "Labor", "05-Jan-2024", "Doe, Jane", "8", "Hours", "100", "100", "0", "0", ""},
		[]string{"501", "12", "1.1", "Labor", "06-Jan-2024", "Doe, Jane", "4", "Hours", "50", "50", "0", "0", ""},
	))

	first, err := im.ImportExpenditures(context.Background(), src)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if first.RecordsCreated != 2 {
		t.Fatalf("expected 2 created on first run, got %d", first.RecordsCreated)
	}

	second, err := im.ImportExpenditures(context.Background(), src)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if second.RecordsCreated != 0 {
		t.Fatalf("re-import must create nothing, got %d", second.RecordsCreated)
	}
	if second.FilesSeen != 1 {
		t.Fatalf("re-import still sees the file, got %d", second.FilesSeen)
	}
	if len(store.expenditures) != 2 {
		t.Fatalf("expected 2 stored rows, got %d", len(store.expenditures))
	}
}

func TestImportExpendituresBadDateAbortsBatch(t *testing.T) {
	store := newFakeStore()
	im := New(store)

	_, err := im.ImportExpenditures(context.Background(), memory.New(expenditureTable(
		[]string{"500", "12", "1.1", "Labor", "2024-01-05", "Doe, Jane", "8", "Hours", "0", "0", "0", "0", ""},
	)))
	if err == nil {
		t.Fatalf("expected date parse failure to abort the batch")
	}
}

func TestImportTimecardsTeamDerivation(t *testing.T) {
	store := newFakeStore()
	im := New(store)

	res, err := im.ImportTimecards(context.Background(), memory.New(timecardTable(
		[]string{"TC-1", "12", "1.1", "Consultant", "1/8/2024", "Doe, Jane", "8", "Remote", "T12 reviewed design", ""},
		[]string{"TC-2", "12", "1.1", "Consultant", "1/9/2024", "Doe, Jane", "4", "Remote", "no prefix", ""},
		[]string{"TC-3", "12", "1.1", "Consultant", "1/10/2024", "Doe, Jane", "2", "Remote", "", "T07 friday recap"},
		[]string{"TC-4", "12", "1.1", "Consultant", "1/11/2024", "Doe, Jane", "2", "Remote", "", ""},
	)))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.RecordsCreated != 4 {
		t.Fatalf("expected 4 created, got %d", res.RecordsCreated)
	}

	cases := []struct {
		id, team, notes string
	}{
		{"TC-1", "T12", "T12 reviewed design"},
		{"TC-2", "T00", "no prefix"},
		{"TC-3", "T07", "T07 friday recap"}, // blank week notes fall back to Friday notes
		{"TC-4", "T00", ""},
	}
	for _, tc := range cases {
		item, ok := store.timecards[tc.id]
		if !ok {
			t.Fatalf("%s not stored", tc.id)
		}
		if item.Team != tc.team {
			t.Fatalf("%s: expected team %q, got %q", tc.id, tc.team, item.Team)
		}
		if item.Notes != tc.notes {
			t.Fatalf("%s: expected notes %q, got %q", tc.id, tc.notes, item.Notes)
		}
	}
}

func TestImportTimecardsCreatesMilestone(t *testing.T) {
	store := newFakeStore()
	im := New(store)

	res, err := im.ImportTimecards(context.Background(), memory.New(timecardTable(
		[]string{"TC-1", "12", "2.3", "Senior Architect", "1/8/2024", "Doe, Jane", "8", "Remote", "T12 x", ""},
		[]string{"TC-2", "12", "2.3", "Senior Architect", "1/9/2024", "Doe, Jane", "4", "Remote", "T12 y", ""},
	)))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.MilestonesCreated != 1 {
		t.Fatalf("expected a single milestone created for the task pair, got %d", res.MilestonesCreated)
	}
	ms := store.milestones[msKey(12, "2.3")]
	if ms.Name != core.TaskSeniorArchitect {
		t.Fatalf("unexpected milestone name %q", ms.Name)
	}
	if !ms.CostPerHour.IsZero() || !ms.SoldHours.IsZero() {
		t.Fatalf("auto-created milestone must have zero cost and hours: %+v", ms)
	}
}

func TestImportTimecardsUnknownMilestoneNameAborts(t *testing.T) {
	store := newFakeStore()
	im := New(store)

	_, err := im.ImportTimecards(context.Background(), memory.New(timecardTable(
		[]string{"TC-1", "12", "2.3", "Space Wizard", "1/8/2024", "Doe, Jane", "8", "Remote", "T12 x", ""},
	)))
	if !errors.Is(err, core.ErrUnknownTaskType) {
		t.Fatalf("expected ErrUnknownTaskType, got %v", err)
	}
	if len(store.timecards) != 0 {
		t.Fatalf("aborted import must not store rows")
	}
}

func TestImportTimecardsIdempotent(t *testing.T) {
	store := newFakeStore()
	im := New(store)
	src := memory.New(timecardTable(
		[]string{"TC-1", "12", "1.1", "Consultant", "1/8/2024", "Doe, Jane", "8", "Remote", "T12 x", ""},
	))

	if _, err := im.ImportTimecards(context.Background(), src); err != nil {
		t.Fatalf("first import: %v", err)
	}
	second, err := im.ImportTimecards(context.Background(), src)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if second.RecordsCreated != 0 || second.ProjectsCreated != 0 || second.MilestonesCreated != 0 {
		t.Fatalf("re-import must create nothing, got %+v", second)
	}
}
