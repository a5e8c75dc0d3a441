package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// PERIOD - Inclusive date range used for reports
// =============================================================================

// Period is the inclusive range [Start, End].
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewPeriod validates and returns the range [start, end].
// Returns a *RangeError when start is after end.
func NewPeriod(start, end Date) (Period, error) {
	if start.After(end) {
		return Period{}, &RangeError{Start: start, End: end}
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns every day in the period.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// PERIOD SELECTORS
// =============================================================================

// Selector names a reporting period relative to today.
type Selector string

const (
	SelectorThisMonth Selector = "this_month"
	SelectorLastMonth Selector = "last_month"
	SelectorCustom    Selector = "custom"
	SelectorThisWeek  Selector = "this_week"
	SelectorToday     Selector = "today"
)

// ParseSelector normalizes a user-supplied selector. Empty means this_month.
func ParseSelector(s string) (Selector, error) {
	sel := Selector(strings.ToLower(strings.TrimSpace(s)))
	switch sel {
	case "":
		return SelectorThisMonth, nil
	case SelectorThisMonth, SelectorLastMonth, SelectorCustom, SelectorThisWeek, SelectorToday:
		return sel, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
}

// PeriodRequest is the input to ResolvePeriod. Start and End are only read
// for the custom selector.
type PeriodRequest struct {
	Selector Selector
	Start    Date
	End      Date
}

// =============================================================================
// PERIOD RESOLVER
// =============================================================================

// ResolvePeriod maps a selector to concrete dates, relative to today.
//
//	this_month  first..last day of today's month
//	last_month  previous calendar month (January wraps to December, year-1)
//	custom      Start..End verbatim; *RangeError if Start > End
//	this_week   Monday..Sunday containing today
//	today       today..today
//
// An empty selector resolves as this_month.
func ResolvePeriod(req PeriodRequest, today Date) (Period, error) {
	switch req.Selector {
	case "", SelectorThisMonth:
		return monthPeriod(today.Year(), today.Month()), nil

	case SelectorLastMonth:
		year, month := today.Year(), today.Month()-1
		if month < 1 {
			month = 12
			year--
		}
		return monthPeriod(year, month), nil

	case SelectorCustom:
		if req.Start.IsZero() || req.End.IsZero() {
			return Period{}, fmt.Errorf("%w: custom period requires start and end dates", ErrUnknownPeriod)
		}
		return NewPeriod(req.Start, req.End)

	case SelectorThisWeek:
		start := StartOfWeek(today)
		return Period{Start: start, End: start.AddDays(6)}, nil

	case SelectorToday:
		return Period{Start: today, End: today}, nil

	default:
		return Period{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, req.Selector)
	}
}

func monthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidRange is returned when a range starts after it ends.
	ErrInvalidRange = errors.New("invalid range: start after end")

	// ErrUnknownPeriod is returned for unrecognized or incomplete selectors.
	ErrUnknownPeriod = errors.New("unknown period")
)

// RangeError carries the offending bounds of an invalid range.
type RangeError struct {
	Start Date
	End   Date
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range: start %s is after end %s", e.Start, e.End)
}

func (e *RangeError) Unwrap() error {
	return ErrInvalidRange
}
