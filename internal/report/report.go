// Package report builds the tabular reports derived from imported records:
// the timecard summary, the customer-facing monthly timecard report, and the
// budget overview lines.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"vmb/internal/core"
)

// TimecardSummaryHeader is the first row of the timecard summary report.
var TimecardSummaryHeader = []string{
	"Oracle ID", "Date", "Month", "Week", "Name", "Milestone", "Total Hours", "Team", "Note",
}

// CustomerReportHeader is the first row of the customer monthly report.
var CustomerReportHeader = []string{
	"Start Date", "OPA Project Number", "Total Hours", "Milestone", "Resource", "Timecard Notes",
}

const customerDateFormat = "1/2/2006"

// TimecardSummary renders one row per timecard item, header included. The
// milestone column carries the task-type label, looked up by milestone id.
func TimecardSummary(items []core.TimecardItem, milestones map[int64]core.Milestone) [][]string {
	rows := [][]string{TimecardSummaryHeader}
	for _, item := range items {
		label := ""
		if m, ok := milestones[item.MilestoneID]; ok {
			label = m.Name.Label()
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ProjectID),
			item.StartDate.Format("2006-01-02"),
			monthColumn(item.StartDate),
			weekColumn(item.StartDate),
			item.Name,
			label,
			item.TotalHours.String(),
			item.Team,
			item.Notes,
		})
	}
	return rows
}

// CustomerReport renders the monthly report handed to the customer, header
// included. Callers filter items to the target month before rendering.
func CustomerReport(items []core.TimecardItem, milestones map[int64]core.Milestone) [][]string {
	rows := [][]string{CustomerReportHeader}
	for _, item := range items {
		label := ""
		if m, ok := milestones[item.MilestoneID]; ok {
			label = m.Name.Label()
		}
		rows = append(rows, []string{
			item.StartDate.Format(customerDateFormat),
			fmt.Sprintf("%d", item.ProjectID),
			item.TotalHours.String(),
			label,
			item.Name,
			item.Notes,
		})
	}
	return rows
}

// OverviewLine is one project's budget position. Ratio is nil when the
// project has no positive sold-hours budget, so a zeroed budget never
// surfaces as a division by zero.
type OverviewLine struct {
	Project   core.Project
	HoursSum  decimal.Decimal
	Ratio     *decimal.Decimal // percentage of sold hours consumed
	HoursLeft decimal.Decimal
	DaysLeft  string // remaining days, or "-" once past the end date
}

// Overview computes one line per project with recorded hours, ordered by
// oracle id. Projects without any hours are omitted.
func Overview(projects []core.Project, hoursByProject map[int64]decimal.Decimal, today time.Time) []OverviewLine {
	byID := make(map[int64]core.Project, len(projects))
	for _, p := range projects {
		byID[p.OracleID] = p
	}

	ids := make([]int64, 0, len(hoursByProject))
	for id := range hoursByProject {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var lines []OverviewLine
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		sum := hoursByProject[id]
		line := OverviewLine{
			Project:   p,
			HoursSum:  sum,
			HoursLeft: p.SoldHours.Sub(sum),
			DaysLeft:  "-",
		}
		if p.SoldHours.IsPositive() {
			ratio := sum.Mul(decimal.NewFromInt(100)).Div(p.SoldHours)
			line.Ratio = &ratio
		}
		day := today.Truncate(24 * time.Hour)
		if days := int(p.EndDate.Sub(day).Hours() / 24); days >= 0 {
			line.DaysLeft = fmt.Sprintf("%d", days)
		}
		lines = append(lines, line)
	}
	return lines
}

// OverviewHeader is the first row of the rendered overview report.
var OverviewHeader = []string{
	"Oracle ID", "Project", "Hours", "Ratio", "Hours Left", "Days Left",
}

// OverviewRows renders overview lines as CSV rows, header included. The ratio
// is rounded to two decimals for display, or "-" when the project carries no
// positive budget.
func OverviewRows(lines []OverviewLine) [][]string {
	rows := [][]string{OverviewHeader}
	for _, l := range lines {
		ratio := "-"
		if l.Ratio != nil {
			ratio = l.Ratio.Round(2).String()
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", l.Project.OracleID),
			l.Project.Name,
			l.HoursSum.String(),
			ratio,
			l.HoursLeft.String(),
			l.DaysLeft,
		})
	}
	return rows
}

func monthColumn(d time.Time) string {
	return fmt.Sprintf("%02d(%s)", int(d.Month()), d.Month().String())
}

func weekColumn(d time.Time) string {
	_, week := d.ISOWeek()
	return fmt.Sprintf("%02d", week)
}
