package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrZeroRuntime is returned when a project's runtime resolves to zero
// periods, which would make the per-period ideal burn a division by zero.
var ErrZeroRuntime = errors.New("project runtime resolves to zero periods")

// BurndownPoint is one point of a remaining-hours series.
type BurndownPoint struct {
	Date      time.Time
	Remaining decimal.Decimal
}

// IdealBurndown computes the linearly decreasing remaining-hours curve over
// the project's date range. The series has exactly runtime points: point i is
// stamped start+i periods and holds sold_hours minus (i+1) shares of the
// per-period burn, so the curve ends near zero at the last period.
func IdealBurndown(p Project, resolution Period) ([]BurndownPoint, error) {
	var runtime int
	switch resolution {
	case PeriodMonth:
		runtime = p.RuntimeInMonths()
	case PeriodWeek:
		runtime = p.RuntimeInWeeks()
	default:
		return nil, errors.New("unsupported resolution " + string(resolution))
	}
	if runtime <= 0 {
		return nil, ErrZeroRuntime
	}

	burn := p.SoldHours.Div(decimal.NewFromInt(int64(runtime)))
	remaining := p.SoldHours
	points := make([]BurndownPoint, 0, runtime)
	for i := 0; i < runtime; i++ {
		var date time.Time
		if resolution == PeriodMonth {
			date = p.StartDate.AddDate(0, i, 0)
		} else {
			date = p.StartDate.AddDate(0, 0, 7*i)
		}
		remaining = remaining.Sub(burn)
		points = append(points, BurndownPoint{Date: date, Remaining: remaining})
	}
	return points, nil
}

// ActualBurndown derives the actual remaining-hours curve from per-period
// consumption sums: sold hours minus the running cumulative burn, one point
// per period that has recorded consumption. Periods without consumption are
// absent, giving the series step semantics.
func ActualBurndown(soldHours decimal.Decimal, consumption []PeriodSum) []BurndownPoint {
	remaining := soldHours
	points := make([]BurndownPoint, 0, len(consumption))
	for _, c := range consumption {
		remaining = remaining.Sub(c.Sum)
		points = append(points, BurndownPoint{Date: c.Start, Remaining: remaining})
	}
	return points
}
