package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

type (
	// Period selects the truncation applied to record dates when grouping.
	Period string

	// HoursEntry is the common shape the aggregation engine works on. Both
	// expenditure rows (quantity in hours) and timecard rows (total hours)
	// reduce to it; Milestone is nil when the record has none.
	HoursEntry struct {
		Date      time.Time
		Hours     decimal.Decimal
		Team      string
		Milestone *Milestone
	}

	// PeriodSum is a grouped sum for one truncated week or month.
	PeriodSum struct {
		Start time.Time
		Sum   decimal.Decimal
	}

	// MilestoneSum is the consumed hours for one distinct milestone. Delta is
	// sold hours minus consumed and is nil when the entries carried no
	// milestone, so missing budgets never surface as NaN in reports.
	MilestoneSum struct {
		Milestone *Milestone
		Task      string
		Sum       decimal.Decimal
		Delta     *decimal.Decimal
	}

	// MilestoneCell is one cell of the team-by-milestone cross product.
	MilestoneCell struct {
		Milestone *Milestone
		Hours     decimal.Decimal
	}

	// TeamLine is one row of the team-by-milestone cross product.
	TeamLine struct {
		Team string
		Sums []MilestoneCell
	}
)

// TimecardHours converts timecard rows to aggregation entries. The milestones
// map is keyed by milestone id; entries for unknown ids carry a nil milestone.
func TimecardHours(items []TimecardItem, milestones map[int64]*Milestone) []HoursEntry {
	entries := make([]HoursEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, HoursEntry{
			Date:      it.StartDate,
			Hours:     it.TotalHours,
			Team:      it.Team,
			Milestone: milestones[it.MilestoneID],
		})
	}
	return entries
}

// ExpenditureHours converts hours-denominated expenditure rows to aggregation
// entries, resolving milestones by task code. Rows whose unit of measure is
// not hours are dropped.
func ExpenditureHours(items []ExpenditureItem, byTask map[string]*Milestone) []HoursEntry {
	entries := make([]HoursEntry, 0, len(items))
	for _, it := range items {
		if !it.IsHours() {
			continue
		}
		entries = append(entries, HoursEntry{
			Date:      it.ItemDate,
			Hours:     it.Quantity,
			Milestone: byTask[it.Task],
		})
	}
	return entries
}

// AggregateByPeriod groups entries by truncated week or month and sums the
// hours per group. The result is ordered chronologically and contains one
// element per period that has at least one entry; empty periods are not
// zero-filled.
func AggregateByPeriod(entries []HoursEntry, period Period) ([]PeriodSum, error) {
	var trunc func(time.Time) time.Time
	switch period {
	case PeriodMonth:
		trunc = TruncMonth
	case PeriodWeek:
		trunc = TruncWeek
	default:
		return nil, fmt.Errorf("unsupported period %q", period)
	}

	sums := make(map[time.Time]decimal.Decimal)
	for _, e := range entries {
		start := trunc(e.Date)
		sums[start] = sums[start].Add(e.Hours)
	}

	out := make([]PeriodSum, 0, len(sums))
	for start, sum := range sums {
		out = append(out, PeriodSum{Start: start, Sum: sum})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// AggregateTotal sums the hours across all entries. ok is false when there are
// no entries, letting callers distinguish "no records" from a genuine zero
// instead of propagating a missing value.
func AggregateTotal(entries []HoursEntry) (total decimal.Decimal, ok bool) {
	for _, e := range entries {
		total = total.Add(e.Hours)
	}
	return total, len(entries) > 0
}

// AggregateByMilestone returns one row per distinct milestone present in the
// entries, in order of first appearance. Entries without a milestone form
// their own row with a nil delta.
func AggregateByMilestone(entries []HoursEntry) []MilestoneSum {
	index := make(map[int64]int)
	var out []MilestoneSum
	for _, e := range entries {
		key := milestoneKey(e.Milestone)
		i, seen := index[key]
		if !seen {
			i = len(out)
			index[key] = i
			task := ""
			if e.Milestone != nil {
				task = e.Milestone.Name.Label()
			}
			out = append(out, MilestoneSum{Milestone: e.Milestone, Task: task})
		}
		out[i].Sum = out[i].Sum.Add(e.Hours)
	}
	for i := range out {
		if out[i].Milestone == nil {
			continue
		}
		delta := out[i].Milestone.SoldHours.Sub(out[i].Sum)
		out[i].Delta = &delta
	}
	return out
}

// AggregateByTeamAndMilestone builds the full cross product of distinct teams
// and distinct milestones present in the entries. Pairs without matching
// records get a zero sum; the cross product is deliberately exhaustive even
// though the per-dimension distinct sets are not. Rows are ordered by team
// name ascending.
func AggregateByTeamAndMilestone(entries []HoursEntry) []TeamLine {
	var (
		teams      []string
		teamSeen   = make(map[string]bool)
		milestones []*Milestone
		msSeen     = make(map[int64]bool)
		sums       = make(map[string]map[int64]decimal.Decimal)
	)
	for _, e := range entries {
		if !teamSeen[e.Team] {
			teamSeen[e.Team] = true
			teams = append(teams, e.Team)
			sums[e.Team] = make(map[int64]decimal.Decimal)
		}
		key := milestoneKey(e.Milestone)
		if !msSeen[key] {
			msSeen[key] = true
			milestones = append(milestones, e.Milestone)
		}
		sums[e.Team][key] = sums[e.Team][key].Add(e.Hours)
	}
	sort.Strings(teams)

	lines := make([]TeamLine, 0, len(teams))
	for _, team := range teams {
		cells := make([]MilestoneCell, 0, len(milestones))
		for _, ms := range milestones {
			cells = append(cells, MilestoneCell{
				Milestone: ms,
				Hours:     sums[team][milestoneKey(ms)],
			})
		}
		lines = append(lines, TeamLine{Team: team, Sums: cells})
	}
	return lines
}

func milestoneKey(m *Milestone) int64 {
	if m == nil {
		return 0
	}
	return m.ID
}
