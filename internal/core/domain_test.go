package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRuntimeInMonths(t *testing.T) {
	p := Project{
		SoldHours: decimal.NewFromInt(750),
		StartDate: date(2024, time.October, 10),
		EndDate:   date(2025, time.October, 10),
	}
	if got := p.RuntimeInMonths(); got != 12 {
		t.Fatalf("expected 12 months, got %d", got)
	}
}

func TestRuntimeInWeeks(t *testing.T) {
	cases := []struct {
		start, end time.Time
		want       int
	}{
		// 2025-01-06 is a Monday
		{date(2025, time.January, 6), date(2025, time.January, 13), 1},
		{date(2025, time.January, 6), date(2025, time.February, 3), 4},
		// mid-week dates snap to the Monday of their week
		{date(2025, time.January, 8), date(2025, time.January, 16), 1},
		{date(2025, time.January, 6), date(2025, time.January, 10), 0},
	}
	for i, tc := range cases {
		p := Project{StartDate: tc.start, EndDate: tc.end}
		if got := p.RuntimeInWeeks(); got != tc.want {
			t.Fatalf("case %d: expected %d weeks, got %d", i, tc.want, got)
		}
	}
}

func TestTruncWeek(t *testing.T) {
	// 2025-01-08 is a Wednesday; its week starts Monday 2025-01-06.
	if got := TruncWeek(date(2025, time.January, 8)); !got.Equal(date(2025, time.January, 6)) {
		t.Fatalf("expected Monday 2025-01-06, got %v", got)
	}
	// A Monday truncates to itself.
	if got := TruncWeek(date(2025, time.January, 6)); !got.Equal(date(2025, time.January, 6)) {
		t.Fatalf("Monday should truncate to itself, got %v", got)
	}
	// Sunday belongs to the week starting the previous Monday.
	if got := TruncWeek(date(2025, time.January, 12)); !got.Equal(date(2025, time.January, 6)) {
		t.Fatalf("Sunday should truncate to previous Monday, got %v", got)
	}
}

func TestProjectValidate(t *testing.T) {
	good := Project{
		Name:      "Migration",
		SoldHours: decimal.NewFromInt(100),
		StartDate: date(2025, time.January, 1),
		EndDate:   date(2025, time.June, 1),
		Type:      TimeAndMaterials,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := good
	bad.EndDate = date(2024, time.December, 31)
	if err := bad.Validate(); err != ErrEndBeforeStart {
		t.Fatalf("expected ErrEndBeforeStart, got %v", err)
	}

	bad = good
	bad.Type = "weird"
	if err := bad.Validate(); err != ErrInvalidProjectType {
		t.Fatalf("expected ErrInvalidProjectType, got %v", err)
	}

	bad = good
	bad.Name = "  "
	if err := bad.Validate(); err != ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestPlaceholderProject(t *testing.T) {
	now := date(2025, time.March, 1)
	p := PlaceholderProject(42, "42", now)
	if err := p.Validate(); err != nil {
		t.Fatalf("placeholder must validate, got %v", err)
	}
	if !p.SoldHours.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected sold hours 1, got %s", p.SoldHours)
	}
	if !p.StartDate.Equal(PlaceholderStart) {
		t.Fatalf("expected sentinel start date, got %v", p.StartDate)
	}
	if !p.EndDate.Equal(now) {
		t.Fatalf("expected end date = import time, got %v", p.EndDate)
	}
}

func TestMilestoneValidate(t *testing.T) {
	good := Milestone{Task: "1.1", Name: TaskConsultant}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Milestone{Task: "123456", Name: TaskConsultant}).Validate(); err != ErrTaskCodeTooLong {
		t.Fatalf("expected ErrTaskCodeTooLong, got %v", err)
	}
	if err := (Milestone{Task: "1.1", Name: "nope"}).Validate(); err != ErrUnknownTaskType {
		t.Fatalf("expected ErrUnknownTaskType, got %v", err)
	}
}
