package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"vmb/internal/core"
	"vmb/internal/tabular"
)

// timecardDateFormat matches the timecard export, e.g. "1/5/2024".
const timecardDateFormat = "1/2/2006"

// defaultTeam is assigned when the notes carry no recognizable team prefix.
const defaultTeam = "T00"

// ImportTimecards imports every table of the source. Rows whose timecard id
// already exists are skipped silently; a date parse failure or an unknown
// milestone display name aborts the whole batch.
func (im *Importer) ImportTimecards(ctx context.Context, src tabular.Source) (Result, error) {
	tables, err := src.Tables(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read tables: %w", err)
	}

	res := Result{FilesSeen: countFiles(tables)}
	slog.DebugContext(ctx, "found files for timecard import", "files", len(tables))

	for _, table := range tables {
		for i := 0; i < table.NumRows(); i++ {
			if err := im.importTimecardRow(ctx, table.Row(i), &res); err != nil {
				return res, fmt.Errorf("%s row %d: %w", table.Name, i+1, err)
			}
		}
	}
	return res, nil
}

func (im *Importer) importTimecardRow(ctx context.Context, row tabular.Row, res *Result) error {
	timecardID := row.Get("Timecard Split ID")
	if timecardID == "" {
		return fmt.Errorf("missing timecard split id")
	}

	oracleID, err := strconv.ParseInt(row.Get("Project: OPA Project Number"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid project number %q: %w", row.Get("Project: OPA Project Number"), err)
	}
	project, created, err := im.resolveProject(ctx, oracleID, row.Get("Project: OPA Project Number"))
	if err != nil {
		return fmt.Errorf("resolve project %d: %w", oracleID, err)
	}
	if created {
		res.ProjectsCreated++
		slog.InfoContext(ctx, "created placeholder project", "oracle_id", oracleID)
	}
	res.touchProject(project.OracleID)

	taskCode := row.Get("Milestone: OPA Task Number")
	taskType, err := core.TaskTypeByLabel(row.Get("Milestone: Milestone Name"))
	if err != nil {
		return fmt.Errorf("milestone name for task %q: %w", taskCode, err)
	}
	milestone, created, err := im.store.GetOrCreateMilestone(ctx, core.Milestone{
		ProjectID: project.OracleID,
		Task:      taskCode,
		Name:      taskType,
	})
	if err != nil {
		return fmt.Errorf("resolve milestone %q: %w", taskCode, err)
	}
	if created {
		res.MilestonesCreated++
		slog.InfoContext(ctx, "created milestone",
			"oracle_id", project.OracleID, "task", taskCode, "name", taskType.Label())
	}

	startDate, err := time.Parse(timecardDateFormat, row.Get("Start Date"))
	if err != nil {
		return fmt.Errorf("parse start date %q: %w", row.Get("Start Date"), err)
	}

	notes := resolveNotes(row)
	item := core.TimecardItem{
		TimecardID:      timecardID,
		ProjectID:       project.OracleID,
		MilestoneID:     milestone.ID,
		StartDate:       startDate,
		Name:            row.Get("Resource: Full Name"),
		TotalHours:      parseAmount(row.Get("Total Hours")),
		DeliverLocation: row.Get("Delivery Location"),
		Team:            teamFromNotes(notes),
		Notes:           notes,
	}

	inserted, err := im.store.InsertTimecardItem(ctx, item)
	if err != nil {
		return fmt.Errorf("insert timecard id %s: %w", timecardID, err)
	}
	if !inserted {
		slog.DebugContext(ctx, "timecard id already existing, skipping", "timecard_id", timecardID)
		return nil
	}
	res.RecordsCreated++
	return nil
}

// resolveNotes prefers the week notes and falls back to the Friday notes when
// the week cell is blank.
func resolveNotes(row tabular.Row) string {
	if row.Has("Timecard Notes week") {
		return row.Get("Timecard Notes week")
	}
	return row.Get("Friday Notes")
}

// teamFromNotes derives the team code from the first three characters of the
// notes; anything not T-prefixed falls back to the default team.
func teamFromNotes(notes string) string {
	team := notes
	if len(team) > 3 {
		team = team[:3]
	}
	if strings.HasPrefix(team, "T") {
		return team
	}
	return defaultTeam
}
