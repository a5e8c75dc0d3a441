/*
report.go - Billing aggregation over a date range

ALGORITHM:
  1. List the employee's attendance records in [start, end]
  2. Keep qualifying days (both check-in and check-out). Days with only a
     check-in, or no record, are absent from the report: neither errors
     nor zero lines.
  3. Resolve the rate per line as of the line's date
  4. hours = (check-out - check-in) / 1h, exact
     cost  = hours * rate, exact
  5. Lines show hours and cost rounded to 2dp; totals are the sums of the
     exact values, rounded once at the end

ROUNDING:
  Summing rounded lines drifts: 2.3333 + 2.3333 + 2.3340 rounds per line to
  2.33 + 2.33 + 2.33 = 6.99, but the true total rounds to 7.00. Totals are
  always computed from the exact per-line values.

INTEGRITY:
  A record whose check-out is not after its check-in (or that has a
  check-out without a check-in) stops the report with
  ErrCorruptAttendanceRecord. A day with no applicable rate and no default
  stops it with ErrRateNotConfigured. Zero is never substituted.
*/
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
)

// DisplayPlaces is the number of decimal places shown for hours and money.
const DisplayPlaces = 2

// =============================================================================
// REPORT TYPES
// =============================================================================

// Line is one qualifying day.
type Line struct {
	Date       calendar.Date
	CheckIn    time.Time
	CheckOut   time.Time
	Status     attendance.Status
	Hours      decimal.Decimal // rounded for display
	Rate       decimal.Decimal
	RateSource RateSource
	Cost       decimal.Decimal // rounded for display

	// Exact values feed the totals.
	ExactHours decimal.Decimal
	ExactCost  decimal.Decimal
}

// Report is the billing report for one employee over a period.
type Report struct {
	EmployeeID attendance.EmployeeID
	Period     calendar.Period
	Lines      []Line
	TotalHours decimal.Decimal // rounded once from exact sum
	TotalCost  decimal.Decimal // rounded once from exact sum
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator computes billing reports. It only reads from its stores.
type Aggregator struct {
	records attendance.RecordStore
	rates   RateStore

	// defaultRate is the system-wide fallback; nil means none configured.
	defaultRate *decimal.Decimal
}

// NewAggregator creates an aggregator. Pass a nil defaultRate when the
// system has no default rate.
func NewAggregator(records attendance.RecordStore, rates RateStore, defaultRate *decimal.Decimal) *Aggregator {
	return &Aggregator{records: records, rates: rates, defaultRate: defaultRate}
}

// DefaultRate returns the configured system default rate, if any.
func (a *Aggregator) DefaultRate() (decimal.Decimal, bool) {
	if a.defaultRate == nil {
		return decimal.Zero, false
	}
	return *a.defaultRate, true
}

// CurrentRate resolves the rate applicable on date, for display.
func (a *Aggregator) CurrentRate(ctx context.Context, employeeID attendance.EmployeeID, date calendar.Date) (AppliedRate, error) {
	rec, err := a.rates.GetApplicableRate(ctx, employeeID, date)
	if err != nil {
		return AppliedRate{}, fmt.Errorf("failed to load applicable rate: %w", err)
	}
	if rec != nil {
		return AppliedRate{Rate: rec.Rate, Source: SourceHistory, Record: rec}, nil
	}
	if a.defaultRate != nil {
		return AppliedRate{Rate: *a.defaultRate, Source: SourceDefault}, nil
	}
	return AppliedRate{}, &RateNotConfiguredError{EmployeeID: employeeID, Date: date}
}

// ComputeBillingReport builds the report for [start, end].
func (a *Aggregator) ComputeBillingReport(ctx context.Context, employeeID attendance.EmployeeID, start, end calendar.Date) (Report, error) {
	period, err := calendar.NewPeriod(start, end)
	if err != nil {
		return Report{}, err
	}

	records, err := a.records.ListRecords(ctx, employeeID, start, end)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list attendance records: %w", err)
	}

	history, err := a.rates.ListRateHistory(ctx, employeeID)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load rate history: %w", err)
	}
	rates := NewRateHistory(employeeID, history)

	report := Report{
		EmployeeID: employeeID,
		Period:     period,
		Lines:      []Line{},
		TotalHours: decimal.Zero,
		TotalCost:  decimal.Zero,
	}

	exactHours := decimal.Zero
	exactCost := decimal.Zero

	for _, rec := range records {
		if !period.Contains(rec.Date) {
			continue
		}
		if err := checkIntegrity(rec); err != nil {
			return Report{}, err
		}
		if !rec.IsComplete() {
			continue
		}

		applied, err := rates.Resolve(rec.Date, a.defaultRate)
		if err != nil {
			return Report{}, err
		}

		hours := attendance.Hours(rec.Worked())
		cost := hours.Mul(applied.Rate)

		report.Lines = append(report.Lines, Line{
			Date:       rec.Date,
			CheckIn:    *rec.CheckIn,
			CheckOut:   *rec.CheckOut,
			Status:     rec.Status,
			Hours:      hours.Round(DisplayPlaces),
			Rate:       applied.Rate,
			RateSource: applied.Source,
			Cost:       cost.Round(DisplayPlaces),
			ExactHours: hours,
			ExactCost:  cost,
		})

		exactHours = exactHours.Add(hours)
		exactCost = exactCost.Add(cost)
	}

	report.TotalHours = exactHours.Round(DisplayPlaces)
	report.TotalCost = exactCost.Round(DisplayPlaces)
	return report, nil
}

// checkIntegrity rejects records that break the ordering invariant.
// A check-in without a check-out is a normal open day.
func checkIntegrity(rec attendance.Record) error {
	switch {
	case rec.CheckOut == nil:
		return nil
	case rec.CheckIn == nil, !rec.CheckOut.After(*rec.CheckIn):
		return &CorruptRecordError{
			EmployeeID: rec.EmployeeID,
			Date:       rec.Date,
			CheckIn:    rec.CheckIn,
			CheckOut:   rec.CheckOut,
		}
	}
	return nil
}
