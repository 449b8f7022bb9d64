package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vmb/internal/amqp"
	"vmb/internal/core"
	"vmb/internal/services"
	"vmb/internal/storage"
)

type stubStorage struct {
	project    core.Project
	milestones []core.Milestone
	timecards  []core.TimecardItem
	expItems   []core.ExpenditureItem
}

func (s *stubStorage) GetProject(context.Context, int64) (core.Project, error) {
	return s.project, nil
}

func (s *stubStorage) ListProjects(context.Context) ([]core.Project, error) {
	return []core.Project{s.project}, nil
}

func (s *stubStorage) ListProjectsByGroup(context.Context, int64) ([]core.Project, error) {
	return []core.Project{s.project}, nil
}

func (s *stubStorage) ListMilestones(context.Context, int64) ([]core.Milestone, error) {
	return s.milestones, nil
}

func (s *stubStorage) ListExpenditureItems(context.Context, storage.ExpenditureFilter) ([]core.ExpenditureItem, error) {
	return s.expItems, nil
}

func (s *stubStorage) ListTimecardItems(context.Context, storage.TimecardFilter) ([]core.TimecardItem, error) {
	return s.timecards, nil
}

func TestReportWorker_HandleImportCompleted(t *testing.T) {
	st := &stubStorage{
		project: core.Project{
			OracleID:  12045,
			Name:      "Alpha",
			SoldHours: decimal.NewFromInt(120),
			StartDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			Type:      core.TimeAndMaterials,
		},
		milestones: []core.Milestone{
			{ID: 1, ProjectID: 12045, Task: "3.1", Name: core.TaskConsultant, SoldHours: decimal.NewFromInt(100)},
		},
		timecards: []core.TimecardItem{
			{
				TimecardID:  "TC-1",
				ProjectID:   12045,
				MilestoneID: 1,
				StartDate:   time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC),
				Name:        "Ada",
				TotalHours:  decimal.NewFromInt(8),
				Team:        "T07",
			},
		},
		expItems: []core.ExpenditureItem{
			{TransID: 1, ProjectID: 12045, ItemDate: time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC), Quantity: decimal.NewFromInt(8), UOM: core.UOMHours},
		},
	}

	dir := t.TempDir()
	reports := services.NewReportService(st, 16, time.Minute)
	w := NewReportWorker(reports, dir)

	msg := amqp.NewImportCompletedMessage(amqp.KindTimecards, 1, 1, []int64{12045})
	if err := w.HandleImportCompleted(context.Background(), msg); err != nil {
		t.Fatalf("HandleImportCompleted: %v", err)
	}

	summary, err := os.ReadFile(filepath.Join(dir, "summary_report_12045.csv"))
	if err != nil {
		t.Fatalf("read summary snapshot: %v", err)
	}
	if !strings.Contains(string(summary), "Ada") {
		t.Errorf("summary snapshot missing timecard row: %q", string(summary))
	}

	overview, err := os.ReadFile(filepath.Join(dir, "overview.csv"))
	if err != nil {
		t.Fatalf("read overview snapshot: %v", err)
	}
	if !strings.Contains(string(overview), "12045,Alpha,8") {
		t.Errorf("overview snapshot missing project line: %q", string(overview))
	}
}
