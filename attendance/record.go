/*
Package attendance implements daily attendance tracking.

PURPOSE:
  Records when employees arrive and leave, one record per employee per
  calendar day, and classifies each arrival as on time or late against the
  organization's fixed daily schedule.

KEY CONCEPTS:
  - Record:   The single attendance row for (employee, date)
  - Status:   on_time / late, decided once at check-in
  - Schedule: Start time, late threshold, end time (schedule.go)
  - Tracker:  The state machine ABSENT -> CHECKED_IN -> CHECKED_OUT (tracker.go)

STATE MACHINE:
  ABSENT       no record exists for the day
  CHECKED_IN   record has a check-in time only
  CHECKED_OUT  record has both times; terminal for the day

  Only administrative deletion leaves CHECKED_OUT, and that is a store
  operation, not a transition.

INVARIANTS:
  1. At most one record per (employee, date), enforced by the store
  2. CheckOut set implies CheckIn set and CheckOut after CheckIn
  3. Status is decided at check-in and never revised

SEE ALSO:
  - store.go: Persistence contract
  - billing/report.go: Consumes completed records
*/
package attendance

import (
	"time"

	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EmployeeID is the stable numeric identity of an employee.
type EmployeeID int64

// RecordID is the store-assigned identity of an attendance record.
type RecordID int64

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is a member of the organizational roster. Employees are
// deactivated on offboarding, never hard-deleted while referenced.
type Employee struct {
	ID         EmployeeID
	Code       string // human-facing code, e.g. "EMP001"
	Name       string
	Email      string
	Department string
	Position   string
	Active     bool
	CreatedAt  time.Time
}

// =============================================================================
// RECORD
// =============================================================================

// Status is the arrival classification of a day.
type Status string

const (
	StatusOnTime Status = "on_time"
	StatusLate   Status = "late"
)

// State is the position of a day's record in the state machine.
type State string

const (
	StateAbsent     State = "absent"
	StateCheckedIn  State = "checked_in"
	StateCheckedOut State = "checked_out"
)

// Record is the attendance row for one employee on one day.
type Record struct {
	ID         RecordID
	EmployeeID EmployeeID
	Date       calendar.Date
	CheckIn    *time.Time
	CheckOut   *time.Time
	Status     Status

	// Version is the store's optimistic-concurrency counter. Zero means
	// the record has not been persisted.
	Version int64
}

// State derives the state machine position from the timestamps.
func (r *Record) State() State {
	switch {
	case r == nil || r.CheckIn == nil:
		return StateAbsent
	case r.CheckOut == nil:
		return StateCheckedIn
	default:
		return StateCheckedOut
	}
}

// IsComplete reports whether both timestamps are present.
func (r Record) IsComplete() bool {
	return r.CheckIn != nil && r.CheckOut != nil
}

// Worked returns the check-in to check-out duration of a complete record.
// Returns zero for an incomplete record.
func (r Record) Worked() time.Duration {
	if !r.IsComplete() {
		return 0
	}
	return r.CheckOut.Sub(*r.CheckIn)
}
