package attendance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const emp = attendance.EmployeeID(1)

func newTestTracker(t *testing.T) (*attendance.Tracker, *memory.Store) {
	t.Helper()
	store := memory.New()
	return attendance.NewTracker(store, attendance.DefaultSchedule()), store
}

var jan10 = calendar.NewDate(2024, time.January, 10)

func at(hour, minute, second int) time.Time {
	return time.Date(2024, time.January, 10, hour, minute, second, 0, time.UTC)
}

// =============================================================================
// CLASSIFICATION TESTS
// =============================================================================

func TestCheckIn_LateBoundary(t *testing.T) {
	// 09:00 start, 15 minute threshold, strict comparison
	cases := []struct {
		name   string
		at     time.Time
		status attendance.Status
	}{
		{"early", at(8, 45, 0), attendance.StatusOnTime},
		{"exactly at start", at(9, 0, 0), attendance.StatusOnTime},
		{"exactly at threshold", at(9, 15, 0), attendance.StatusOnTime},
		{"one second past threshold", at(9, 15, 1), attendance.StatusLate},
		{"one minute past threshold", at(9, 16, 0), attendance.StatusLate},
		{"afternoon", at(14, 0, 0), attendance.StatusLate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tracker, _ := newTestTracker(t)

			rec, err := tracker.CheckIn(context.Background(), emp, jan10, tc.at)

			require.NoError(t, err)
			assert.Equal(t, tc.status, rec.Status)
		})
	}
}

func TestSchedule_CustomThreshold(t *testing.T) {
	schedule := attendance.Schedule{Start: attendance.NewTimeOfDay(8, 30), LateThreshold: 0}

	assert.Equal(t, attendance.StatusOnTime, schedule.Classify(time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)))
	assert.Equal(t, attendance.StatusLate, schedule.Classify(time.Date(2024, 1, 1, 8, 30, 0, 1, time.UTC)))
}

// =============================================================================
// STATE MACHINE TESTS
// =============================================================================

func TestCheckIn_Twice_Rejected(t *testing.T) {
	// GIVEN: Employee checked in at 08:55
	// WHEN: Checking in again at 10:00
	// THEN: AlreadyCheckedIn, and the original check-in is untouched
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.CheckIn(ctx, emp, jan10, at(8, 55, 0))
	require.NoError(t, err)

	_, err = tracker.CheckIn(ctx, emp, jan10, at(10, 0, 0))

	require.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)
	var te *attendance.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, attendance.KindAlreadyCheckedIn, te.Kind)
	assert.Equal(t, emp, te.EmployeeID)
	require.NotNil(t, te.Existing)
	assert.True(t, te.Existing.Equal(at(8, 55, 0)))

	rec, err := store.GetRecord(ctx, emp, jan10)
	require.NoError(t, err)
	assert.True(t, rec.CheckIn.Equal(at(8, 55, 0)))
	assert.Equal(t, attendance.StatusOnTime, rec.Status)
}

func TestCheckIn_CompletesPartialRecord(t *testing.T) {
	// GIVEN: A record exists without a check-in (left by a partial write)
	tracker, store := newTestTracker(t)
	ctx := context.Background()
	planted := store.PutRecord(attendance.Record{EmployeeID: emp, Date: jan10})

	rec, err := tracker.CheckIn(ctx, emp, jan10, at(9, 30, 0))

	require.NoError(t, err)
	assert.Equal(t, planted.ID, rec.ID, "should update in place, not create")
	assert.Equal(t, attendance.StatusLate, rec.Status)
}

func TestCheckOut_WithoutCheckIn_Rejected(t *testing.T) {
	tracker, _ := newTestTracker(t)

	_, err := tracker.CheckOut(context.Background(), emp, jan10, at(17, 0, 0))

	assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)
	assert.True(t, attendance.IsOrderingError(err))
}

func TestCheckOut_CheckInOnOtherDay_Rejected(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.CheckIn(ctx, emp, jan10.AddDays(-1), at(9, 0, 0).AddDate(0, 0, -1))
	require.NoError(t, err)

	_, err = tracker.CheckOut(ctx, emp, jan10, at(17, 0, 0))
	assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)
}

func TestCheckOut_Twice_Rejected(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.CheckIn(ctx, emp, jan10, at(9, 0, 0))
	require.NoError(t, err)
	_, err = tracker.CheckOut(ctx, emp, jan10, at(17, 0, 0))
	require.NoError(t, err)

	_, err = tracker.CheckOut(ctx, emp, jan10, at(18, 0, 0))

	require.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)
	var te *attendance.TransitionError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Existing.Equal(at(17, 0, 0)))
}

func TestCheckIn_AfterCheckOut_Rejected(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.CheckIn(ctx, emp, jan10, at(9, 0, 0))
	require.NoError(t, err)
	_, err = tracker.CheckOut(ctx, emp, jan10, at(12, 0, 0))
	require.NoError(t, err)

	_, err = tracker.CheckIn(ctx, emp, jan10, at(13, 0, 0))
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)
}

func TestCheckOut_NotAfterCheckIn_Rejected(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.CheckIn(ctx, emp, jan10, at(9, 0, 0))
	require.NoError(t, err)

	_, err = tracker.CheckOut(ctx, emp, jan10, at(9, 0, 0))
	assert.ErrorIs(t, err, attendance.ErrCheckOutBeforeCheckIn)

	_, err = tracker.CheckOut(ctx, emp, jan10, at(8, 0, 0))
	assert.ErrorIs(t, err, attendance.ErrCheckOutBeforeCheckIn)

	rec, err := store.GetRecord(ctx, emp, jan10)
	require.NoError(t, err)
	assert.Nil(t, rec.CheckOut, "failed check-out must leave the check-in untouched")
}

func TestCheckOut_KeepsStatus(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.CheckIn(ctx, emp, jan10, at(9, 45, 0))
	require.NoError(t, err)

	rec, err := tracker.CheckOut(ctx, emp, jan10, at(19, 0, 0))

	require.NoError(t, err)
	assert.Equal(t, attendance.StatusLate, rec.Status)
	assert.Equal(t, attendance.StateCheckedOut, rec.State())
	assert.Equal(t, 9*time.Hour+15*time.Minute, rec.Worked())
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestCheckIn_Concurrent_ExactlyOneSucceeds(t *testing.T) {
	// GIVEN: Many concurrent check-ins for the same employee and day
	// THEN: Exactly one succeeds, the rest get AlreadyCheckedIn
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		rejected int
	)
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := tracker.CheckIn(ctx, emp, jan10, at(9, 0, i))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
			} else if assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn) {
				rejected++
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, n-1, rejected)

	records, err := store.ListRecords(ctx, emp, jan10, jan10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCheckOut_Concurrent_ExactlyOneSucceeds(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.CheckIn(ctx, emp, jan10, at(9, 0, 0))
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := tracker.CheckOut(ctx, emp, jan10, at(17, 0, i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)
	}
	assert.Equal(t, 1, success)
}

// =============================================================================
// CURRENT STATUS TESTS
// =============================================================================

func TestCurrentStatus_Transitions(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	status, err := tracker.CurrentStatus(ctx, emp, jan10)
	require.NoError(t, err)
	assert.Equal(t, attendance.StateAbsent, status.State)
	assert.False(t, status.CheckedIn)
	assert.Nil(t, status.CheckIn)
	assert.Empty(t, status.Status)

	_, err = tracker.CheckIn(ctx, emp, jan10, at(9, 20, 0))
	require.NoError(t, err)

	status, err = tracker.CurrentStatus(ctx, emp, jan10)
	require.NoError(t, err)
	assert.Equal(t, attendance.StateCheckedIn, status.State)
	assert.True(t, status.CheckedIn)
	assert.False(t, status.CheckedOut)
	assert.Equal(t, attendance.StatusLate, status.Status)

	_, err = tracker.CheckOut(ctx, emp, jan10, at(16, 0, 0))
	require.NoError(t, err)

	status, err = tracker.CurrentStatus(ctx, emp, jan10)
	require.NoError(t, err)
	assert.Equal(t, attendance.StateCheckedOut, status.State)
	assert.True(t, status.CheckedOut)
	assert.True(t, status.LeftEarly, "16:00 is more than 30 minutes before 17:00")
}

func TestCurrentStatus_HasNoSideEffects(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.CurrentStatus(ctx, emp, jan10)
	require.NoError(t, err)

	rec, err := store.GetRecord(ctx, emp, jan10)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSchedule_LeftEarly(t *testing.T) {
	s := attendance.DefaultSchedule()

	assert.False(t, s.LeftEarly(at(16, 30, 0)), "exactly at the threshold is not early")
	assert.True(t, s.LeftEarly(at(16, 29, 59)))
	assert.False(t, s.LeftEarly(at(18, 0, 0)))
}

func TestHistory_NewestFirst(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		day := jan10.AddDays(-i)
		_, err := tracker.CheckIn(ctx, emp, day, day.At(9*time.Hour, time.UTC))
		require.NoError(t, err)
	}

	records, err := tracker.History(ctx, emp, jan10, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Date.Equal(jan10))
	assert.True(t, records[1].Date.Equal(jan10.AddDays(-1)))
}

// =============================================================================
// ACTIVITY SUMMARY TESTS
// =============================================================================

func TestSummarize(t *testing.T) {
	in1, out1 := at(9, 0, 0), at(17, 0, 0)
	in2, out2 := at(9, 30, 0).AddDate(0, 0, 1), at(13, 30, 0).AddDate(0, 0, 1)
	in3 := at(8, 0, 0).AddDate(0, 0, 2)

	records := []attendance.Record{
		{Date: jan10, CheckIn: &in1, CheckOut: &out1, Status: attendance.StatusOnTime},
		{Date: jan10.AddDays(1), CheckIn: &in2, CheckOut: &out2, Status: attendance.StatusLate},
		{Date: jan10.AddDays(2), CheckIn: &in3, Status: attendance.StatusOnTime},
	}

	summary := attendance.Summarize(attendance.Employee{ID: emp, Code: "EMP001"}, records)

	assert.Equal(t, 3, summary.DaysWorked)
	assert.Equal(t, 3, summary.CheckIns)
	assert.Equal(t, 1, summary.LateDays)
	assert.Equal(t, 2, summary.CompleteDays)
	assert.True(t, summary.AverageHours.Equal(decimal.NewFromInt(6)), "got %s", summary.AverageHours)
}
