package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vmb/internal/cache"
	"vmb/internal/core"
	"vmb/internal/report"
	"vmb/internal/storage"
)

// ReportStorage is the read side of the repository the report service needs.
type ReportStorage interface {
	GetProject(ctx context.Context, oracleID int64) (core.Project, error)
	ListProjects(ctx context.Context) ([]core.Project, error)
	ListProjectsByGroup(ctx context.Context, groupID int64) ([]core.Project, error)
	ListMilestones(ctx context.Context, projectID int64) ([]core.Milestone, error)
	ListExpenditureItems(ctx context.Context, f storage.ExpenditureFilter) ([]core.ExpenditureItem, error)
	ListTimecardItems(ctx context.Context, f storage.TimecardFilter) ([]core.TimecardItem, error)
}

// ProjectDetail is the timecard-based view of one project: consumption by
// month, by milestone and by team, plus the running total.
type ProjectDetail struct {
	Project      core.Project
	HoursByMonth []core.PeriodSum
	HoursSum     decimal.Decimal
	AvgBurned    decimal.Decimal
	ByMilestone  []core.MilestoneSum
	TeamLines    []core.TeamLine
}

// BurndownSeries pairs the ideal line with the recorded consumption.
type BurndownSeries struct {
	Ideal  []core.BurndownPoint
	Actual []core.BurndownPoint
}

// ReportService combines storage queries, aggregation and burndown math.
// Computed results are cached; an import invalidates the touched projects.
type ReportService struct {
	storage  ReportStorage
	csv      *cache.LRUCache[[][]string]
	detail   *cache.LRUCache[ProjectDetail]
	burndown *cache.LRUCache[BurndownSeries]
	now      func() time.Time
}

func NewReportService(st ReportStorage, cacheSize int, cacheTTL time.Duration) *ReportService {
	return &ReportService{
		storage:  st,
		csv:      cache.NewLRUCache[[][]string](cacheSize, cacheTTL),
		detail:   cache.NewLRUCache[ProjectDetail](cacheSize, cacheTTL),
		burndown: cache.NewLRUCache[BurndownSeries](cacheSize, cacheTTL),
		now:      time.Now,
	}
}

// Overview computes one budget line per project with recorded hours, based on
// the hours-denominated expenditure records.
func (s *ReportService) Overview(ctx context.Context) ([]report.OverviewLine, error) {
	projects, err := s.storage.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.storage.ListExpenditureItems(ctx, storage.ExpenditureFilter{OnlyHours: true})
	if err != nil {
		return nil, err
	}

	sums := make(map[int64]decimal.Decimal)
	for _, it := range items {
		sums[it.ProjectID] = sums[it.ProjectID].Add(it.Quantity)
	}

	return report.Overview(projects, sums, s.now()), nil
}

// ProjectDetail builds the timecard-based detail for one project.
func (s *ReportService) ProjectDetail(ctx context.Context, projectID int64) (ProjectDetail, error) {
	key := fmt.Sprintf("detail/%d", projectID)
	if d, ok := s.detail.Get(key); ok {
		return d, nil
	}

	project, err := s.storage.GetProject(ctx, projectID)
	if err != nil {
		return ProjectDetail{}, err
	}
	entries, _, err := s.timecardEntries(ctx, projectID)
	if err != nil {
		return ProjectDetail{}, err
	}

	byMonth, err := core.AggregateByPeriod(entries, core.PeriodMonth)
	if err != nil {
		return ProjectDetail{}, err
	}
	total, _ := core.AggregateTotal(entries)

	d := ProjectDetail{
		Project:      project,
		HoursByMonth: byMonth,
		HoursSum:     total,
		AvgBurned:    avgPeriodSum(byMonth),
		ByMilestone:  core.AggregateByMilestone(entries),
		TeamLines:    core.AggregateByTeamAndMilestone(entries),
	}
	s.detail.Set(key, d)
	return d, nil
}

// Burndown builds the ideal and actual series for one project at the given
// resolution.
func (s *ReportService) Burndown(ctx context.Context, projectID int64, period core.Period) (BurndownSeries, error) {
	key := fmt.Sprintf("burndown/%d/%s", projectID, period)
	if b, ok := s.burndown.Get(key); ok {
		return b, nil
	}

	project, err := s.storage.GetProject(ctx, projectID)
	if err != nil {
		return BurndownSeries{}, err
	}
	entries, _, err := s.timecardEntries(ctx, projectID)
	if err != nil {
		return BurndownSeries{}, err
	}

	ideal, err := core.IdealBurndown(project, period)
	if err != nil {
		return BurndownSeries{}, fmt.Errorf("ideal burndown for project %d: %w", projectID, err)
	}
	consumption, err := core.AggregateByPeriod(entries, period)
	if err != nil {
		return BurndownSeries{}, err
	}

	b := BurndownSeries{
		Ideal:  ideal,
		Actual: core.ActualBurndown(project.SoldHours, consumption),
	}
	s.burndown.Set(key, b)
	return b, nil
}

// TimecardSummaryCSV renders the timecard summary for one project.
func (s *ReportService) TimecardSummaryCSV(ctx context.Context, projectID int64) ([][]string, error) {
	key := fmt.Sprintf("summary/%d", projectID)
	if rows, ok := s.csv.Get(key); ok {
		return rows, nil
	}

	items, err := s.storage.ListTimecardItems(ctx, storage.TimecardFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	milestones, err := s.milestonesByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	rows := report.TimecardSummary(items, milestones)
	s.csv.Set(key, rows)
	return rows, nil
}

// TimecardSummaryByGroupCSV renders the timecard summary across every project
// in a group.
func (s *ReportService) TimecardSummaryByGroupCSV(ctx context.Context, groupID int64) ([][]string, error) {
	key := fmt.Sprintf("group-summary/%d", groupID)
	if rows, ok := s.csv.Get(key); ok {
		return rows, nil
	}

	items, err := s.storage.ListTimecardItems(ctx, storage.TimecardFilter{GroupID: groupID})
	if err != nil {
		return nil, err
	}
	milestones, err := s.groupMilestonesByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	rows := report.TimecardSummary(items, milestones)
	s.csv.Set(key, rows)
	return rows, nil
}

// CustomerReportCSV renders the customer-facing monthly report for a group.
func (s *ReportService) CustomerReportCSV(ctx context.Context, groupID int64, year int, month time.Month) ([][]string, error) {
	key := fmt.Sprintf("customer/%d/%04d-%02d", groupID, year, month)
	if rows, ok := s.csv.Get(key); ok {
		return rows, nil
	}

	items, err := s.storage.ListTimecardItems(ctx, storage.TimecardFilter{
		GroupID: groupID,
		Year:    year,
		Month:   month,
	})
	if err != nil {
		return nil, err
	}
	milestones, err := s.groupMilestonesByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	rows := report.CustomerReport(items, milestones)
	s.csv.Set(key, rows)
	return rows, nil
}

// InvalidateProject drops every cached result derived from one project.
// Group-level reports are left to expire by TTL.
func (s *ReportService) InvalidateProject(projectID int64) {
	s.csv.Delete(fmt.Sprintf("summary/%d", projectID))
	s.detail.Delete(fmt.Sprintf("detail/%d", projectID))
	// burndown keys carry a period suffix; the trailing slash keeps the
	// prefix from also matching longer ids (1 vs 12).
	s.burndown.DeletePrefix(fmt.Sprintf("burndown/%d/", projectID))
}

func (s *ReportService) timecardEntries(ctx context.Context, projectID int64) ([]core.HoursEntry, map[int64]core.Milestone, error) {
	items, err := s.storage.ListTimecardItems(ctx, storage.TimecardFilter{ProjectID: projectID})
	if err != nil {
		return nil, nil, err
	}
	milestones, err := s.milestonesByID(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[int64]*core.Milestone, len(milestones))
	for id := range milestones {
		m := milestones[id]
		byID[id] = &m
	}
	return core.TimecardHours(items, byID), milestones, nil
}

func (s *ReportService) milestonesByID(ctx context.Context, projectID int64) (map[int64]core.Milestone, error) {
	milestones, err := s.storage.ListMilestones(ctx, projectID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]core.Milestone, len(milestones))
	for _, m := range milestones {
		byID[m.ID] = m
	}
	return byID, nil
}

func (s *ReportService) groupMilestonesByID(ctx context.Context, groupID int64) (map[int64]core.Milestone, error) {
	projects, err := s.storage.ListProjectsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]core.Milestone)
	for _, p := range projects {
		milestones, err := s.storage.ListMilestones(ctx, p.OracleID)
		if err != nil {
			return nil, err
		}
		for _, m := range milestones {
			byID[m.ID] = m
		}
	}
	return byID, nil
}

func avgPeriodSum(sums []core.PeriodSum) decimal.Decimal {
	if len(sums) == 0 {
		return decimal.Zero
	}
	var total decimal.Decimal
	for _, s := range sums {
		total = total.Add(s.Sum)
	}
	return total.Div(decimal.NewFromInt(int64(len(sums))))
}
