package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// UOMHours is the unit-of-measure marking expenditure rows that represent
// worked hours rather than expenses or fees.
const UOMHours = "Hours"

type (
	// ExpenditureItem is one imported expenditure transaction. Immutable once
	// imported; re-running an import skips rows whose TransID already exists.
	ExpenditureItem struct {
		TransID              int64
		ProjectID            int64
		Task                 string
		ExpndType            string
		ItemDate             time.Time
		EmployeeSupplier     string
		Quantity             decimal.Decimal
		UOM                  string
		ProjFuncBurdenedCost decimal.Decimal
		ProjectBurdenedCost  decimal.Decimal
		AccruedRevenue       decimal.Decimal
		BillAmount           decimal.Decimal
		Comment              string
	}

	// TimecardItem is one imported timecard split. Immutable once imported;
	// re-running an import skips rows whose TimecardID already exists.
	TimecardItem struct {
		TimecardID      string
		ProjectID       int64
		MilestoneID     int64
		StartDate       time.Time
		Name            string
		TotalHours      decimal.Decimal
		DeliverLocation string
		Team            string
		Notes           string
	}
)

// IsHours reports whether the expenditure row counts against the hours budget.
func (e ExpenditureItem) IsHours() bool {
	return e.UOM == UOMHours
}
