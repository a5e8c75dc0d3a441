package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACTIVITY SUMMARY - Admin overview of attendance over a period
// =============================================================================

// ActivitySummary aggregates one employee's records over a period.
type ActivitySummary struct {
	Employee     Employee
	DaysWorked   int             // records in the period
	CheckIns     int             // records with a check-in
	LateDays     int             // records classified late
	CompleteDays int             // records with both timestamps
	AverageHours decimal.Decimal // mean hours over complete days, 2dp
}

// Summarize builds the activity summary for an employee's records.
// Records with a non-positive duration are left out of the average.
func Summarize(emp Employee, records []Record) ActivitySummary {
	summary := ActivitySummary{Employee: emp, AverageHours: decimal.Zero}

	total := decimal.Zero
	for _, rec := range records {
		summary.DaysWorked++
		if rec.CheckIn != nil {
			summary.CheckIns++
		}
		if rec.Status == StatusLate {
			summary.LateDays++
		}
		if worked := rec.Worked(); worked > 0 {
			summary.CompleteDays++
			total = total.Add(Hours(worked))
		}
	}

	if summary.CompleteDays > 0 {
		summary.AverageHours = total.Div(decimal.NewFromInt(int64(summary.CompleteDays))).Round(2)
	}
	return summary
}

// Hours converts a duration to fractional hours without intermediate
// rounding.
func Hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(nanosPerHour)
}

var nanosPerHour = decimal.NewFromInt(int64(time.Hour))
