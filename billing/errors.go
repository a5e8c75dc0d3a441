package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrCorruptAttendanceRecord is returned when a stored record violates
	// the check-in-before-check-out invariant. Report generation stops.
	ErrCorruptAttendanceRecord = errors.New("corrupt attendance record")

	// ErrRateNotConfigured is returned when no rate applies to a day and
	// no system default is configured. Report generation stops.
	ErrRateNotConfigured = errors.New("hourly rate not configured")

	// ErrNegativeRate is returned when appending a rate below zero.
	ErrNegativeRate = errors.New("hourly rate must not be negative")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// CorruptRecordError identifies the offending attendance record.
type CorruptRecordError struct {
	EmployeeID attendance.EmployeeID
	Date       calendar.Date
	CheckIn    *time.Time
	CheckOut   *time.Time
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt attendance record: employee %d on %s (check-in %s, check-out %s)",
		e.EmployeeID, e.Date, formatStamp(e.CheckIn), formatStamp(e.CheckOut))
}

func (e *CorruptRecordError) Unwrap() error {
	return ErrCorruptAttendanceRecord
}

// RateNotConfiguredError identifies the employee and day with no rate.
type RateNotConfiguredError struct {
	EmployeeID attendance.EmployeeID
	Date       calendar.Date
}

func (e *RateNotConfiguredError) Error() string {
	return fmt.Sprintf("hourly rate not configured: employee %d on %s and no system default", e.EmployeeID, e.Date)
}

func (e *RateNotConfiguredError) Unwrap() error {
	return ErrRateNotConfigured
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsIntegrityError returns true for data or configuration faults that an
// operator must investigate, as opposed to user ordering mistakes.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrCorruptAttendanceRecord) ||
		errors.Is(err, ErrRateNotConfigured)
}

func formatStamp(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return t.Format(time.RFC3339)
}
