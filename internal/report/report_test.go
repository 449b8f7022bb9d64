package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vmb/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleMilestones() map[int64]core.Milestone {
	return map[int64]core.Milestone{
		1: {ID: 1, ProjectID: 12045, Task: "3.1", Name: core.TaskConsultant},
		2: {ID: 2, ProjectID: 12045, Task: "4.2", Name: core.TaskSeniorArchitect},
	}
}

func sampleItems() []core.TimecardItem {
	return []core.TimecardItem{
		{
			TimecardID:  "TC-1",
			ProjectID:   12045,
			MilestoneID: 1,
			StartDate:   date(2024, time.October, 7),
			Name:        "Ada Lovelace",
			TotalHours:  decimal.NewFromInt(8),
			Team:        "T07",
			Notes:       "workshop prep",
		},
		{
			TimecardID:  "TC-2",
			ProjectID:   12045,
			MilestoneID: 2,
			StartDate:   date(2024, time.October, 14),
			Name:        "Grace Hopper",
			TotalHours:  decimal.RequireFromString("7.5"),
			Team:        "T03",
			Notes:       "review",
		},
	}
}

func TestTimecardSummary(t *testing.T) {
	rows := TimecardSummary(sampleItems(), sampleMilestones())

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "Oracle ID" || rows[0][8] != "Note" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	first := rows[1]
	want := []string{"12045", "2024-10-07", "10(October)", "41", "Ada Lovelace", "Consultant", "8", "T07", "workshop prep"}
	for i, cell := range want {
		if first[i] != cell {
			t.Errorf("row[1][%d] = %q, want %q", i, first[i], cell)
		}
	}
	if rows[2][5] != "Senior Architect" {
		t.Errorf("milestone label = %q, want Senior Architect", rows[2][5])
	}
}

func TestTimecardSummary_UnknownMilestone(t *testing.T) {
	items := sampleItems()
	items[0].MilestoneID = 999

	rows := TimecardSummary(items, sampleMilestones())
	if rows[1][5] != "" {
		t.Errorf("milestone label = %q, want empty for unknown id", rows[1][5])
	}
}

func TestCustomerReport(t *testing.T) {
	rows := CustomerReport(sampleItems(), sampleMilestones())

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	want := []string{"10/7/2024", "12045", "8", "Consultant", "Ada Lovelace", "workshop prep"}
	for i, cell := range want {
		if rows[1][i] != cell {
			t.Errorf("row[1][%d] = %q, want %q", i, rows[1][i], cell)
		}
	}
}

func TestOverview(t *testing.T) {
	projects := []core.Project{
		{
			OracleID:  12045,
			Name:      "Alpha",
			SoldHours: decimal.NewFromInt(750),
			StartDate: date(2024, time.October, 10),
			EndDate:   date(2025, time.October, 10),
			Type:      core.TimeAndMaterials,
		},
		{
			OracleID:  99001,
			Name:      "Beta",
			SoldHours: decimal.NewFromInt(100),
			StartDate: date(2023, time.January, 1),
			EndDate:   date(2023, time.December, 31),
			Type:      core.Prepaid,
		},
	}
	sums := map[int64]decimal.Decimal{
		99001: decimal.NewFromInt(20),
		12045: decimal.NewFromInt(150),
	}
	today := date(2024, time.November, 1)

	lines := Overview(projects, sums, today)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	// ordered by oracle id
	if lines[0].Project.OracleID != 12045 || lines[1].Project.OracleID != 99001 {
		t.Errorf("unexpected order: %d, %d", lines[0].Project.OracleID, lines[1].Project.OracleID)
	}

	alpha := lines[0]
	if alpha.Ratio == nil || !alpha.Ratio.Equal(decimal.NewFromInt(20)) {
		t.Errorf("ratio = %v, want 20", alpha.Ratio)
	}
	if !alpha.HoursLeft.Equal(decimal.NewFromInt(600)) {
		t.Errorf("hours left = %s, want 600", alpha.HoursLeft)
	}
	if alpha.DaysLeft != "343" {
		t.Errorf("days left = %q, want 343", alpha.DaysLeft)
	}

	// Beta ended in 2023: no countdown
	if lines[1].DaysLeft != "-" {
		t.Errorf("days left = %q, want -", lines[1].DaysLeft)
	}
}

func TestOverview_ZeroSoldHours(t *testing.T) {
	projects := []core.Project{
		{
			OracleID:  77001,
			Name:      "Gamma",
			SoldHours: decimal.Zero,
			StartDate: date(2024, time.January, 1),
			EndDate:   date(2025, time.January, 1),
			Type:      core.TimeAndMaterials,
		},
	}
	sums := map[int64]decimal.Decimal{77001: decimal.NewFromInt(8)}

	lines := Overview(projects, sums, date(2024, time.June, 1))
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0].Ratio != nil {
		t.Errorf("ratio = %s, want nil", lines[0].Ratio)
	}
	if !lines[0].HoursLeft.Equal(decimal.NewFromInt(-8)) {
		t.Errorf("hours left = %s, want -8", lines[0].HoursLeft)
	}

	rows := OverviewRows(lines)
	if rows[1][3] != "-" {
		t.Errorf("ratio cell = %q, want -", rows[1][3])
	}
}

func TestOverview_SkipsProjectsWithoutHours(t *testing.T) {
	projects := []core.Project{
		{OracleID: 1, Name: "A", SoldHours: decimal.NewFromInt(10), EndDate: date(2030, 1, 1), Type: core.TimeAndMaterials},
	}
	lines := Overview(projects, map[int64]decimal.Decimal{}, date(2024, 1, 1))
	if len(lines) != 0 {
		t.Errorf("got %d lines, want 0", len(lines))
	}
}

func TestOverviewRows(t *testing.T) {
	ratio := decimal.RequireFromString("20.1234")
	lines := []OverviewLine{
		{
			Project:   core.Project{OracleID: 12045, Name: "Alpha"},
			HoursSum:  decimal.NewFromInt(150),
			Ratio:     &ratio,
			HoursLeft: decimal.NewFromInt(600),
			DaysLeft:  "343",
		},
	}

	rows := OverviewRows(lines)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	want := []string{"12045", "Alpha", "150", "20.12", "600", "343"}
	for i, cell := range want {
		if rows[1][i] != cell {
			t.Errorf("row[1][%d] = %q, want %q", i, rows[1][i], cell)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]string{
		{"a", "b"},
		{"1", "note, with comma"},
	}
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, `"note, with comma"`) {
		t.Errorf("comma cell not quoted: %q", got)
	}
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "summary.csv")
	rows := TimecardSummary(sampleItems(), sampleMilestones())

	if err := WriteCSVFile(path, rows); err != nil {
		t.Fatalf("WriteCSVFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasPrefix(string(data), "Oracle ID,Date,Month,Week") {
		t.Errorf("unexpected file start: %q", string(data)[:40])
	}

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the report file, found %d entries", len(entries))
	}
}
