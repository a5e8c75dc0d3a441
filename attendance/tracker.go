package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// TRACKER - Attendance state machine
// =============================================================================

// Tracker applies check-in/check-out transitions for a single day's record.
// It is stateless between calls: the schedule is configuration, and every
// record lives in the store.
type Tracker struct {
	store    RecordStore
	schedule Schedule
}

// NewTracker creates a tracker over the given store and schedule.
func NewTracker(store RecordStore, schedule Schedule) *Tracker {
	return &Tracker{store: store, schedule: schedule}
}

// Schedule returns the schedule the tracker classifies against.
func (t *Tracker) Schedule() Schedule {
	return t.schedule
}

// CheckIn records the first arrival of the day and classifies it.
//
// Rejects with ErrAlreadyCheckedIn if the day already has a check-in. A
// record that exists without a check-in (left by a partial operation) is
// completed in place. Exactly one store write.
func (t *Tracker) CheckIn(ctx context.Context, employeeID EmployeeID, date calendar.Date, at time.Time) (Record, error) {
	existing, err := t.store.GetRecord(ctx, employeeID, date)
	if err != nil {
		return Record{}, fmt.Errorf("failed to load attendance record: %w", err)
	}
	if existing != nil && existing.CheckIn != nil {
		return Record{}, alreadyCheckedIn(existing)
	}

	rec := Record{EmployeeID: employeeID, Date: date}
	if existing != nil {
		rec = *existing
	}
	checkIn := at
	rec.CheckIn = &checkIn
	rec.Status = t.schedule.Classify(at)

	saved, err := t.store.UpsertRecord(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrRecordExists) || errors.Is(err, ErrConcurrentModification) {
			// Lost the race to another check-in for the same day.
			return Record{}, t.resolveConflict(ctx, employeeID, date, err, KindAlreadyCheckedIn)
		}
		return Record{}, fmt.Errorf("failed to save check-in: %w", err)
	}
	return saved, nil
}

// CheckOut records the departure for the day.
//
// Rejects with ErrNotCheckedIn if there is no check-in, ErrAlreadyCheckedOut
// if a check-out exists, and ErrCheckOutBeforeCheckIn if at is not after the
// check-in. The status set at check-in is left untouched. Exactly one store
// write.
func (t *Tracker) CheckOut(ctx context.Context, employeeID EmployeeID, date calendar.Date, at time.Time) (Record, error) {
	existing, err := t.store.GetRecord(ctx, employeeID, date)
	if err != nil {
		return Record{}, fmt.Errorf("failed to load attendance record: %w", err)
	}

	switch existing.State() {
	case StateAbsent:
		return Record{}, &TransitionError{Kind: KindNotCheckedIn, EmployeeID: employeeID, Date: date}
	case StateCheckedOut:
		return Record{}, alreadyCheckedOut(existing)
	}

	if !at.After(*existing.CheckIn) {
		return Record{}, &TransitionError{
			Kind:       KindCheckOutBeforeCheckIn,
			EmployeeID: employeeID,
			Date:       date,
			Existing:   existing.CheckIn,
		}
	}

	rec := *existing
	checkOut := at
	rec.CheckOut = &checkOut

	saved, err := t.store.UpsertRecord(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			return Record{}, t.resolveConflict(ctx, employeeID, date, err, KindAlreadyCheckedOut)
		}
		return Record{}, fmt.Errorf("failed to save check-out: %w", err)
	}
	return saved, nil
}

// resolveConflict re-reads a record after a lost write race so the caller
// gets the ordering error describing what the winner did.
func (t *Tracker) resolveConflict(ctx context.Context, employeeID EmployeeID, date calendar.Date, cause error, kind TransitionKind) error {
	current, err := t.store.GetRecord(ctx, employeeID, date)
	if err != nil || current == nil {
		return fmt.Errorf("attendance record for employee %d on %s changed concurrently: %w", employeeID, date, cause)
	}
	if kind == KindAlreadyCheckedOut && current.CheckOut != nil {
		return alreadyCheckedOut(current)
	}
	if kind == KindAlreadyCheckedIn && current.CheckIn != nil {
		return alreadyCheckedIn(current)
	}
	return fmt.Errorf("attendance record for employee %d on %s changed concurrently: %w", employeeID, date, cause)
}

func alreadyCheckedIn(rec *Record) error {
	return &TransitionError{Kind: KindAlreadyCheckedIn, EmployeeID: rec.EmployeeID, Date: rec.Date, Existing: rec.CheckIn}
}

func alreadyCheckedOut(rec *Record) error {
	return &TransitionError{Kind: KindAlreadyCheckedOut, EmployeeID: rec.EmployeeID, Date: rec.Date, Existing: rec.CheckOut}
}

// =============================================================================
// CURRENT STATUS - Read-only projection for dashboards
// =============================================================================

// DayStatus is the dashboard view of one employee's day.
type DayStatus struct {
	EmployeeID EmployeeID
	Date       calendar.Date
	State      State
	CheckedIn  bool
	CheckedOut bool
	CheckIn    *time.Time
	CheckOut   *time.Time
	Status     Status // empty when absent

	// LeftEarly is a display hint derived from the schedule's end time.
	LeftEarly bool
}

// CurrentStatus projects the day's record. No side effects.
func (t *Tracker) CurrentStatus(ctx context.Context, employeeID EmployeeID, date calendar.Date) (DayStatus, error) {
	rec, err := t.store.GetRecord(ctx, employeeID, date)
	if err != nil {
		return DayStatus{}, fmt.Errorf("failed to load attendance record: %w", err)
	}

	status := DayStatus{EmployeeID: employeeID, Date: date, State: rec.State()}
	if rec == nil {
		return status, nil
	}

	status.CheckedIn = rec.CheckIn != nil
	status.CheckedOut = rec.CheckOut != nil
	status.CheckIn = rec.CheckIn
	status.CheckOut = rec.CheckOut
	status.Status = rec.Status
	if rec.CheckOut != nil {
		status.LeftEarly = t.schedule.LeftEarly(*rec.CheckOut)
	}
	return status, nil
}

// History returns the employee's records for the last n days ending at
// today, newest first.
func (t *Tracker) History(ctx context.Context, employeeID EmployeeID, today calendar.Date, days int) ([]Record, error) {
	if days < 1 {
		days = 1
	}
	records, err := t.store.ListRecords(ctx, employeeID, today.AddDays(-(days - 1)), today)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}
