/*
Package calendar provides the civil-date primitives shared by attendance
tracking and billing.

PURPOSE:
  Attendance is keyed by calendar day, and rates take effect on calendar
  days. Both need a day-granular value that compares, sorts and prints the
  same way everywhere, independent of the wall-clock time of an event.

KEY CONCEPTS:
  - Date:   A calendar day (year, month, day), normalized to midnight UTC
  - Period: An inclusive [Start, End] range of dates (period.go)

SINGLE CLOCK:
  The organization runs on one clock. DateOf takes the calendar day of a
  timestamp in that timestamp's own location; no zone conversion happens.

SEE ALSO:
  - period.go: Period and ResolvePeriod
  - attendance/record.go: Records keyed by (employee, Date)
*/
package calendar

import (
	"time"
)

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// =============================================================================
// DATE - Day-granular calendar value
// =============================================================================

// Date is a calendar day. The zero value is not a valid day; check IsZero.
type Date struct {
	t time.Time
}

// NewDate returns the given calendar day. Out-of-range values are
// normalized the way time.Date normalizes them (Jan 32 is Feb 1).
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day on the local clock.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for literals in tests and fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) IsWeekend() bool       { wd := d.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (d Date) String() string        { return d.t.Format(DateLayout) }

// At returns the instant on this day at the given wall-clock offset from
// midnight, in loc.
func (d Date) At(offset time.Duration, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).Add(offset)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// CALENDAR UTILITIES
// =============================================================================

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfMonth returns the first day of the month.
func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

// EndOfMonth returns the last day of the month.
func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, DaysIn(year, month))
}

// StartOfWeek returns the Monday on or before d.
func StartOfWeek(d Date) Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// DaysBetween returns the number of days from one date to another.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}
