/*
errors.go - Error types for attendance tracking

ERROR CATEGORIES:
  1. Ordering errors - The caller performed actions out of order
     (already checked in, already checked out, not checked in).
     These are user mistakes: surface them directly, never retry.
  2. Store errors - Uniqueness and optimistic-concurrency violations
     raised by RecordStore implementations.

USAGE:
  if errors.Is(err, attendance.ErrAlreadyCheckedIn) { ... }

  var te *attendance.TransitionError
  if errors.As(err, &te) {
      log.Printf("employee %d, %s: %s", te.EmployeeID, te.Date, te.Kind)
  }
*/
package attendance

import (
	"errors"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAlreadyCheckedIn is returned by CheckIn when the day already has
	// a check-in time. CheckIn rejects rather than overwrites.
	ErrAlreadyCheckedIn = errors.New("already checked in")

	// ErrAlreadyCheckedOut is returned by CheckOut when the day already has
	// a check-out time.
	ErrAlreadyCheckedOut = errors.New("already checked out")

	// ErrNotCheckedIn is returned by CheckOut when the day has no check-in.
	ErrNotCheckedIn = errors.New("not checked in")

	// ErrCheckOutBeforeCheckIn is returned by CheckOut when the check-out
	// instant is not after the recorded check-in.
	ErrCheckOutBeforeCheckIn = errors.New("check-out must be after check-in")

	// ErrRecordExists is returned by a store when creating a record for an
	// (employee, date) key that already has one.
	ErrRecordExists = errors.New("attendance record already exists")

	// ErrConcurrentModification is returned by a store when a record was
	// changed after it was read.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrRecordNotFound is returned when deleting a record that doesn't exist.
	ErrRecordNotFound = errors.New("attendance record not found")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrDuplicateEmployeeCode is returned when creating an employee whose
	// code is already taken.
	ErrDuplicateEmployeeCode = errors.New("employee code already exists")

	// ErrEmployeeInactive is returned when an inactive employee tries to
	// record attendance.
	ErrEmployeeInactive = errors.New("employee is inactive")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the offending identifiers
// =============================================================================

// TransitionKind names the rejected transition.
type TransitionKind string

const (
	KindAlreadyCheckedIn      TransitionKind = "already_checked_in"
	KindAlreadyCheckedOut     TransitionKind = "already_checked_out"
	KindNotCheckedIn          TransitionKind = "not_checked_in"
	KindCheckOutBeforeCheckIn TransitionKind = "check_out_before_check_in"
)

// TransitionError is a rejected state machine transition.
type TransitionError struct {
	Kind       TransitionKind
	EmployeeID EmployeeID
	Date       calendar.Date

	// Existing is the timestamp of the already-performed action, when
	// there is one (the earlier check-in or check-out).
	Existing *time.Time
}

func (e *TransitionError) Error() string {
	if e.Existing != nil {
		return fmt.Sprintf("%s: employee %d on %s (at %s)",
			e.Unwrap(), e.EmployeeID, e.Date, e.Existing.Format("15:04:05"))
	}
	return fmt.Sprintf("%s: employee %d on %s", e.Unwrap(), e.EmployeeID, e.Date)
}

func (e *TransitionError) Unwrap() error {
	switch e.Kind {
	case KindAlreadyCheckedIn:
		return ErrAlreadyCheckedIn
	case KindAlreadyCheckedOut:
		return ErrAlreadyCheckedOut
	case KindNotCheckedIn:
		return ErrNotCheckedIn
	default:
		return ErrCheckOutBeforeCheckIn
	}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsOrderingError returns true if the error is a user action ordering
// mistake rather than a system or data fault.
func IsOrderingError(err error) bool {
	return errors.Is(err, ErrAlreadyCheckedIn) ||
		errors.Is(err, ErrAlreadyCheckedOut) ||
		errors.Is(err, ErrNotCheckedIn) ||
		errors.Is(err, ErrCheckOutBeforeCheckIn)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}
