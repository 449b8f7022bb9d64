// Package worker regenerates CSV report snapshots when imports complete.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"vmb/internal/amqp"
	"vmb/internal/report"
	"vmb/internal/services"
)

// ReportWorker keeps the on-disk report snapshots in sync with the database.
type ReportWorker struct {
	reports   *services.ReportService
	reportDir string
}

func NewReportWorker(reports *services.ReportService, reportDir string) *ReportWorker {
	return &ReportWorker{
		reports:   reports,
		reportDir: reportDir,
	}
}

// HandleImportCompleted processes one import-completed message: cached
// results for the touched projects are dropped and their snapshots rebuilt.
func (w *ReportWorker) HandleImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error {
	slog.InfoContext(ctx, "Rebuilding report snapshots",
		"kind", msg.Kind,
		"projects", len(msg.ProjectIDs))

	for _, id := range msg.ProjectIDs {
		w.reports.InvalidateProject(id)
	}
	if err := w.WriteProjectSnapshots(ctx, msg.ProjectIDs); err != nil {
		return err
	}
	return w.WriteOverviewSnapshot(ctx)
}

// WriteProjectSnapshots writes the timecard summary for each project.
func (w *ReportWorker) WriteProjectSnapshots(ctx context.Context, projectIDs []int64) error {
	for _, id := range projectIDs {
		rows, err := w.reports.TimecardSummaryCSV(ctx, id)
		if err != nil {
			return fmt.Errorf("summary for project %d: %w", id, err)
		}

		path := filepath.Join(w.reportDir, fmt.Sprintf("summary_report_%d.csv", id))
		if err := report.WriteCSVFile(path, rows); err != nil {
			return fmt.Errorf("write summary for project %d: %w", id, err)
		}
		slog.InfoContext(ctx, "Wrote timecard summary snapshot",
			"project_id", id, "rows", len(rows)-1, "path", path)
	}
	return nil
}

// WriteOverviewSnapshot writes the cross-project budget overview.
func (w *ReportWorker) WriteOverviewSnapshot(ctx context.Context) error {
	lines, err := w.reports.Overview(ctx)
	if err != nil {
		return fmt.Errorf("compute overview: %w", err)
	}

	path := filepath.Join(w.reportDir, "overview.csv")
	if err := report.WriteCSVFile(path, report.OverviewRows(lines)); err != nil {
		return fmt.Errorf("write overview: %w", err)
	}
	slog.InfoContext(ctx, "Wrote overview snapshot", "projects", len(lines), "path", path)
	return nil
}
