package attendance

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME OF DAY
// =============================================================================

// TimeOfDay is a wall-clock offset from midnight.
type TimeOfDay time.Duration

// NewTimeOfDay returns hour:minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q (use HH:MM): %w", s, err)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

// TimeOfDayOf returns the wall-clock position of t, to the nanosecond.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond()))
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// UnmarshalText parses "HH:MM" so TimeOfDay can be read from env vars and JSON.
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// =============================================================================
// SCHEDULE - The organization's fixed working day
// =============================================================================

// Schedule is the organization-wide daily schedule. It is configuration
// handed to the Tracker at construction, not state the Tracker owns.
type Schedule struct {
	Start         TimeOfDay     // scheduled start, e.g. 09:00
	LateThreshold time.Duration // grace period after Start

	// End and EarlyLeaveThreshold only drive the LeftEarly hint in
	// CurrentStatus; they never change a record's status.
	End                 TimeOfDay
	EarlyLeaveThreshold time.Duration
}

// DefaultSchedule is 09:00-17:00 with 15 minutes of lateness grace and 30
// minutes of early-leave grace.
func DefaultSchedule() Schedule {
	return Schedule{
		Start:               NewTimeOfDay(9, 0),
		LateThreshold:       15 * time.Minute,
		End:                 NewTimeOfDay(17, 0),
		EarlyLeaveThreshold: 30 * time.Minute,
	}
}

// Validate checks the schedule is usable.
func (s Schedule) Validate() error {
	if s.LateThreshold < 0 {
		return fmt.Errorf("late threshold must not be negative: %v", s.LateThreshold)
	}
	if s.EarlyLeaveThreshold < 0 {
		return fmt.Errorf("early leave threshold must not be negative: %v", s.EarlyLeaveThreshold)
	}
	if s.End != 0 && s.End <= s.Start {
		return fmt.Errorf("work end %s must be after work start %s", s.End, s.Start)
	}
	return nil
}

// Lateness returns how far past the scheduled start the arrival was.
// Zero or negative means at or before the start.
func (s Schedule) Lateness(at time.Time) time.Duration {
	return time.Duration(TimeOfDayOf(at) - s.Start)
}

// Classify decides on-time vs late. The comparison is strict: arriving
// exactly at Start+LateThreshold is on time.
func (s Schedule) Classify(at time.Time) Status {
	if s.Lateness(at) > s.LateThreshold {
		return StatusLate
	}
	return StatusOnTime
}

// LeftEarly reports whether a check-out precedes End by more than the
// early-leave threshold. False when no End is configured.
func (s Schedule) LeftEarly(checkOut time.Time) bool {
	if s.End == 0 {
		return false
	}
	early := time.Duration(s.End - TimeOfDayOf(checkOut))
	return early > s.EarlyLeaveThreshold
}
