package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/billing"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const emp = attendance.EmployeeID(7)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func date(s string) calendar.Date {
	return calendar.MustParseDate(s)
}

// workDay plants a completed day starting at 09:00 lasting d.
func workDay(store *memory.Store, day string, d time.Duration) {
	in := date(day).At(9*time.Hour, time.UTC)
	out := in.Add(d)
	store.PutRecord(attendance.Record{
		EmployeeID: emp,
		Date:       date(day),
		CheckIn:    &in,
		CheckOut:   &out,
		Status:     attendance.StatusOnTime,
	})
}

func openDay(store *memory.Store, day string) {
	in := date(day).At(9*time.Hour, time.UTC)
	store.PutRecord(attendance.Record{EmployeeID: emp, Date: date(day), CheckIn: &in, Status: attendance.StatusOnTime})
}

func addRate(t *testing.T, store *memory.Store, rate, effective string) billing.RateRecord {
	t.Helper()
	rec, err := store.AppendRate(context.Background(), billing.RateRecord{
		EmployeeID:    emp,
		Rate:          dec(rate),
		EffectiveDate: date(effective),
		Active:        true,
	})
	require.NoError(t, err)
	return rec
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

// =============================================================================
// AGGREGATION TESTS
// =============================================================================

func TestReport_MidPeriodRateChange(t *testing.T) {
	// GIVEN: $20 from 2024-01-01 and $25 from 2024-01-15
	// AND: 8h worked on Jan 10 and 8h on Jan 20
	// WHEN: Reporting January
	// THEN: 8x20 + 8x25 = 360.00
	store := memory.New()
	addRate(t, store, "20", "2024-01-01")
	addRate(t, store, "25", "2024-01-15")
	workDay(store, "2024-01-10", 8*time.Hour)
	workDay(store, "2024-01-20", 8*time.Hour)

	agg := billing.NewAggregator(store, store, decPtr("25"))
	report, err := agg.ComputeBillingReport(context.Background(), emp, date("2024-01-01"), date("2024-01-31"))

	require.NoError(t, err)
	require.Len(t, report.Lines, 2)
	assertDecimal(t, "20", report.Lines[0].Rate)
	assertDecimal(t, "160", report.Lines[0].Cost)
	assertDecimal(t, "25", report.Lines[1].Rate)
	assertDecimal(t, "200", report.Lines[1].Cost)
	assertDecimal(t, "16", report.TotalHours)
	assertDecimal(t, "360.00", report.TotalCost)
	assert.Equal(t, "2024-01-01", report.Period.Start.String())
	assert.Equal(t, "2024-01-31", report.Period.End.String())
}

func TestReport_RateEffectiveOnTheDayApplies(t *testing.T) {
	store := memory.New()
	addRate(t, store, "20", "2024-01-01")
	addRate(t, store, "25", "2024-01-15")
	workDay(store, "2024-01-14", time.Hour)
	workDay(store, "2024-01-15", time.Hour)

	agg := billing.NewAggregator(store, store, nil)
	report, err := agg.ComputeBillingReport(context.Background(), emp, date("2024-01-01"), date("2024-01-31"))

	require.NoError(t, err)
	assertDecimal(t, "20", report.Lines[0].Rate)
	assertDecimal(t, "25", report.Lines[1].Rate)
}

func TestReport_ExcludesOpenAndAbsentDays(t *testing.T) {
	// GIVEN: One complete day, one day with only a check-in, and absent days
	// THEN: Only the complete day appears
	store := memory.New()
	addRate(t, store, "10", "2024-01-01")
	workDay(store, "2024-01-02", 4*time.Hour)
	openDay(store, "2024-01-03")

	agg := billing.NewAggregator(store, store, nil)
	report, err := agg.ComputeBillingReport(context.Background(), emp, date("2024-01-01"), date("2024-01-31"))

	require.NoError(t, err)
	require.Len(t, report.Lines, 1)
	assert.Equal(t, "2024-01-02", report.Lines[0].Date.String())
	assertDecimal(t, "4", report.TotalHours)
	assertDecimal(t, "40", report.TotalCost)
}

func TestReport_RoundsTotalsOnce(t *testing.T) {
	// GIVEN: Three days of 2.3333h, 2.3333h and 2.334h at $10
	// THEN: Per-line display rounds each to 2.33, but the total is the
	// exact sum 7.0006... rounded once to 7.00, not 6.99
	store := memory.New()
	addRate(t, store, "10", "2024-01-01")
	workDay(store, "2024-01-02", 2*time.Hour+20*time.Minute)                       // 2.3333...
	workDay(store, "2024-01-03", 2*time.Hour+20*time.Minute)                       // 2.3333...
	workDay(store, "2024-01-04", 2*time.Hour+20*time.Minute+2400*time.Millisecond) // 2.334

	agg := billing.NewAggregator(store, store, nil)
	report, err := agg.ComputeBillingReport(context.Background(), emp, date("2024-01-01"), date("2024-01-31"))

	require.NoError(t, err)
	require.Len(t, report.Lines, 3)

	lineSum := decimal.Zero
	for _, line := range report.Lines {
		assertDecimal(t, "2.33", line.Hours)
		lineSum = lineSum.Add(line.Hours)
	}
	assertDecimal(t, "6.99", lineSum)

	assertDecimal(t, "7.00", report.TotalHours)
	assertDecimal(t, "70.01", report.TotalCost)
}

func TestReport_EmptyRange(t *testing.T) {
	store := memory.New()
	addRate(t, store, "10", "2024-01-01")

	agg := billing.NewAggregator(store, store, nil)
	report, err := agg.ComputeBillingReport(context.Background(), emp, date("2024-02-01"), date("2024-02-29"))

	require.NoError(t, err)
	assert.NotNil(t, report.Lines)
	assert.Empty(t, report.Lines)
	assert.True(t, report.TotalHours.IsZero())
	assert.True(t, report.TotalCost.IsZero())
	assert.Equal(t, "0.00", report.TotalCost.StringFixed(2))
}

func TestReport_EmptyRange_NoRateNeeded(t *testing.T) {
	// A report with no qualifying days never resolves a rate
	store := memory.New()
	agg := billing.NewAggregator(store, store, nil)

	report, err := agg.ComputeBillingReport(context.Background(), emp, date("2024-02-01"), date("2024-02-29"))

	require.NoError(t, err)
	assert.Empty(t, report.Lines)
}

func TestReport_InvalidRange(t *testing.T) {
	store := memory.New()
	agg := billing.NewAggregator(store, store, decPtr("25"))

	_, err := agg.ComputeBillingReport(context.Background(), emp, date("2024-02-01"), date("2024-01-01"))

	assert.ErrorIs(t, err, calendar.ErrInvalidRange)
}

func TestReport_FallsBackToDefaultRate(t *testing.T) {
	// GIVEN: First rate takes effect Jan 15, default is $25
	// THEN: Jan 10 is billed at the default, Jan 20 at the employee rate
	store := memory.New()
	addRate(t, store, "30", "2024-01-15")
	workDay(store, "2024-01-10", 2*time.Hour)
	workDay(store, "2024-01-20", 2*time.Hour)

	agg := billing.NewAggregator(store, store, decPtr("25"))
	report, err := agg.ComputeBillingReport(context.Background(), emp, date("2024-01-01"), date("2024-01-31"))

	require.NoError(t, err)
	assert.Equal(t, billing.SourceDefault, report.Lines[0].RateSource)
	assertDecimal(t, "25", report.Lines[0].Rate)
	assert.Equal(t, billing.SourceHistory, report.Lines[1].RateSource)
	assertDecimal(t, "110", report.TotalCost)
}

func TestReport_RateNotConfigured(t *testing.T) {
	// GIVEN: No rate history and no system default
	// THEN: The report fails; zero is never substituted
	store := memory.New()
	workDay(store, "2024-01-10", 8*time.Hour)

	agg := billing.NewAggregator(store, store, nil)
	_, err := agg.ComputeBillingReport(context.Background(), emp, date("2024-01-01"), date("2024-01-31"))

	require.ErrorIs(t, err, billing.ErrRateNotConfigured)
	assert.True(t, billing.IsIntegrityError(err))
	var rnc *billing.RateNotConfiguredError
	require.ErrorAs(t, err, &rnc)
	assert.Equal(t, emp, rnc.EmployeeID)
	assert.Equal(t, "2024-01-10", rnc.Date.String())
}

func TestReport_CorruptRecord(t *testing.T) {
	cases := []struct {
		name    string
		checkIn bool
		offset  time.Duration
	}{
		{"checkout before checkin", true, -time.Hour},
		{"zero duration", true, 0},
		{"checkout without checkin", false, time.Hour},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.New()
			addRate(t, store, "10", "2024-01-01")

			in := date("2024-01-10").At(9*time.Hour, time.UTC)
			out := in.Add(tc.offset)
			rec := attendance.Record{EmployeeID: emp, Date: date("2024-01-10"), CheckOut: &out}
			if tc.checkIn {
				rec.CheckIn = &in
			}
			store.PutRecord(rec)

			agg := billing.NewAggregator(store, store, nil)
			_, err := agg.ComputeBillingReport(context.Background(), emp, date("2024-01-01"), date("2024-01-31"))

			require.ErrorIs(t, err, billing.ErrCorruptAttendanceRecord)
			assert.False(t, attendance.IsOrderingError(err), "integrity errors must be distinguishable from ordering errors")
			var cre *billing.CorruptRecordError
			require.ErrorAs(t, err, &cre)
			assert.Equal(t, "2024-01-10", cre.Date.String())
		})
	}
}

func TestReport_OnlyOwnRecords(t *testing.T) {
	store := memory.New()
	addRate(t, store, "10", "2024-01-01")
	workDay(store, "2024-01-10", time.Hour)

	in := date("2024-01-10").At(9*time.Hour, time.UTC)
	out := in.Add(5 * time.Hour)
	store.PutRecord(attendance.Record{EmployeeID: emp + 1, Date: date("2024-01-10"), CheckIn: &in, CheckOut: &out})

	agg := billing.NewAggregator(store, store, decPtr("99"))
	report, err := agg.ComputeBillingReport(context.Background(), emp, date("2024-01-01"), date("2024-01-31"))

	require.NoError(t, err)
	require.Len(t, report.Lines, 1)
	assertDecimal(t, "1", report.TotalHours)
}

// =============================================================================
// RATE RESOLUTION TESTS
// =============================================================================

func TestResolveRate_LatestEffectiveActive(t *testing.T) {
	history := []billing.RateRecord{
		{ID: 1, EmployeeID: emp, Rate: dec("20"), EffectiveDate: date("2024-01-01"), Active: true},
		{ID: 3, EmployeeID: emp, Rate: dec("30"), EffectiveDate: date("2024-03-01"), Active: true},
		{ID: 2, EmployeeID: emp, Rate: dec("25"), EffectiveDate: date("2024-02-01"), Active: false},
	}

	cases := map[string]string{
		"2024-01-01": "20",
		"2024-02-15": "20", // the Feb record is inactive
		"2024-02-29": "20",
		"2024-03-01": "30",
		"2025-01-01": "30",
	}
	for day, want := range cases {
		applied, err := billing.ResolveRate(emp, history, date(day), nil)
		require.NoError(t, err, day)
		assertDecimal(t, want, applied.Rate)
		assert.Equal(t, billing.SourceHistory, applied.Source)
	}
}

func TestResolveRate_BeforeFirstRecordUsesDefault(t *testing.T) {
	history := []billing.RateRecord{
		{ID: 1, Rate: dec("20"), EffectiveDate: date("2024-01-01"), Active: true},
	}

	applied, err := billing.ResolveRate(emp, history, date("2023-12-31"), decPtr("25"))
	require.NoError(t, err)
	assert.Equal(t, billing.SourceDefault, applied.Source)
	assertDecimal(t, "25", applied.Rate)
	assert.Nil(t, applied.Record)

	_, err = billing.ResolveRate(emp, history, date("2023-12-31"), nil)
	assert.ErrorIs(t, err, billing.ErrRateNotConfigured)
}

func TestResolveRate_DuplicateEffectiveDate_HighestIDWins(t *testing.T) {
	history := []billing.RateRecord{
		{ID: 5, Rate: dec("22"), EffectiveDate: date("2024-01-01"), Active: true},
		{ID: 9, Rate: dec("24"), EffectiveDate: date("2024-01-01"), Active: true},
		{ID: 7, Rate: dec("23"), EffectiveDate: date("2024-01-01"), Active: true},
	}

	applied, err := billing.ResolveRate(emp, history, date("2024-06-01"), nil)
	require.NoError(t, err)
	assert.Equal(t, billing.RateID(9), applied.Record.ID)

	best := billing.SelectApplicable(history, date("2024-06-01"))
	require.NotNil(t, best)
	assert.Equal(t, billing.RateID(9), best.ID)
}

func TestSelectApplicable_None(t *testing.T) {
	assert.Nil(t, billing.SelectApplicable(nil, date("2024-01-01")))
}

func TestCurrentRate(t *testing.T) {
	store := memory.New()
	addRate(t, store, "20", "2024-01-01")

	agg := billing.NewAggregator(store, store, decPtr("25"))

	applied, err := agg.CurrentRate(context.Background(), emp, date("2024-05-01"))
	require.NoError(t, err)
	assertDecimal(t, "20", applied.Rate)

	applied, err = agg.CurrentRate(context.Background(), emp+1, date("2024-05-01"))
	require.NoError(t, err)
	assert.Equal(t, billing.SourceDefault, applied.Source)
}

func TestAppendRate_RejectsNegative(t *testing.T) {
	store := memory.New()
	_, err := store.AppendRate(context.Background(), billing.RateRecord{EmployeeID: emp, Rate: dec("-1"), EffectiveDate: date("2024-01-01"), Active: true})
	assert.ErrorIs(t, err, billing.ErrNegativeRate)
}
