package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TimeAndMaterials ProjectType = "tandm"
	ContractedUnits  ProjectType = "cu"
	Prepaid          ProjectType = "pp"
)

// PlaceholderStart is the sentinel start date given to projects that are
// auto-created during import and awaiting manual correction.
var PlaceholderStart = time.Date(1976, time.January, 1, 0, 0, 0, 0, time.UTC)

type (
	ProjectType string

	Project struct {
		OracleID  int64
		Name      string
		SoldHours decimal.Decimal
		StartDate time.Time
		EndDate   time.Time
		Type      ProjectType
		GroupID   *int64
	}

	ProjectGroup struct {
		ID   int64
		Name string
	}

	Milestone struct {
		ID          int64
		ProjectID   int64
		Task        string // short task code, at most 5 chars
		Name        TaskType
		CostPerHour decimal.Decimal
		SoldHours   decimal.Decimal
	}
)

var (
	ErrEndBeforeStart     = errors.New("end date before start date")
	ErrInvalidProjectType = errors.New("invalid project type")
	ErrEmptyName          = errors.New("empty name")
	ErrTaskCodeTooLong    = errors.New("task code too long (max 5 characters)")
)

// PlaceholderProject returns the permissive default Project created when an
// import row references an unknown oracle id. Sold hours start at 1 so ratio
// computations never divide by zero before the budget is corrected by hand.
func PlaceholderProject(oracleID int64, name string, importedAt time.Time) Project {
	return Project{
		OracleID:  oracleID,
		Name:      name,
		SoldHours: decimal.NewFromInt(1),
		StartDate: PlaceholderStart,
		EndDate:   importedAt,
		Type:      TimeAndMaterials,
	}
}

func (t ProjectType) Valid() bool {
	switch t {
	case TimeAndMaterials, ContractedUnits, Prepaid:
		return true
	}
	return false
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.EndDate.Before(p.StartDate) {
		return ErrEndBeforeStart
	}
	if !p.Type.Valid() {
		return ErrInvalidProjectType
	}
	return nil
}

// RuntimeInMonths is the calendar-month difference between end and start.
func (p Project) RuntimeInMonths() int {
	return diffMonths(p.EndDate, p.StartDate)
}

// RuntimeInWeeks counts whole Monday-to-Monday boundaries between the Monday
// of the start week and the Monday of the end week.
func (p Project) RuntimeInWeeks() int {
	return diffWeeks(p.StartDate, p.EndDate)
}

func (m Milestone) Validate() error {
	if len(m.Task) > 5 {
		return ErrTaskCodeTooLong
	}
	if !m.Name.Valid() {
		return ErrUnknownTaskType
	}
	return nil
}

func diffMonths(d1, d2 time.Time) int {
	return (d1.Year()-d2.Year())*12 + int(d1.Month()) - int(d2.Month())
}

func diffWeeks(d1, d2 time.Time) int {
	m1 := TruncWeek(d1)
	m2 := TruncWeek(d2)
	return int(m2.Sub(m1).Hours()) / (24 * 7)
}

// TruncMonth truncates a date to the first day of its month.
func TruncMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// TruncWeek truncates a date to the Monday of its week.
func TruncWeek(d time.Time) time.Time {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return day.AddDate(0, 0, -offset)
}
