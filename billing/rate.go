/*
Package billing turns completed attendance days into billing reports.

PURPOSE:
  Prices each worked day at the hourly rate that applied on that day and
  totals the result over a period. Rates change over time, so the rate is
  resolved per line, never once per report.

KEY CONCEPTS IN THIS FILE (rate.go):
  - RateRecord:  An effective-dated hourly rate for one employee
  - RateHistory: Sorted index over an employee's rate records
  - ResolveRate: The applicable-rate rule

RATE RESOLUTION RULE:
  For employee E and date D, the applicable rate is the active record with
  the greatest EffectiveDate <= D. If two such records share that date, the
  one with the highest ID (insertion sequence) wins. If no record applies,
  the system default rate applies. If there is no default either, the
  result is ErrRateNotConfigured.

APPEND-ONLY:
  Rate history is never edited. A raise is a new record with a later
  effective date; earlier days keep the earlier rate.

SEE ALSO:
  - report.go: Aggregator using per-line resolution
  - store/sqlite/sqlite.go: GetApplicableRate in SQL
*/
package billing

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// RATE RECORD
// =============================================================================

// RateID is the store-assigned insertion sequence of a rate record.
type RateID int64

// RateRecord assigns an hourly rate to an employee from EffectiveDate on.
type RateRecord struct {
	ID            RateID
	EmployeeID    attendance.EmployeeID
	Rate          decimal.Decimal // per hour, non-negative
	EffectiveDate calendar.Date   // inclusive
	Active        bool
	CreatedAt     time.Time
}

// RateStore persists rate history. Append-only.
type RateStore interface {
	// GetApplicableRate returns the record selected by the resolution rule
	// for (employee, date), ignoring the default. Nil if none applies.
	GetApplicableRate(ctx context.Context, employeeID attendance.EmployeeID, date calendar.Date) (*RateRecord, error)

	// ListRateHistory returns all of an employee's rate records.
	ListRateHistory(ctx context.Context, employeeID attendance.EmployeeID) ([]RateRecord, error)

	// AppendRate adds a rate record and returns it with its assigned ID.
	AppendRate(ctx context.Context, rec RateRecord) (RateRecord, error)
}

// =============================================================================
// APPLIED RATE - Result of resolution
// =============================================================================

// RateSource says where an applied rate came from.
type RateSource string

const (
	SourceHistory RateSource = "history"
	SourceDefault RateSource = "default"
)

// AppliedRate is the rate used for a date.
type AppliedRate struct {
	Rate   decimal.Decimal
	Source RateSource
	Record *RateRecord // nil when Source is SourceDefault
}

// =============================================================================
// RATE HISTORY - Sorted temporal index
// =============================================================================

// RateHistory is an employee's active rate records sorted by
// (EffectiveDate, ID). Build it once per report and resolve many dates.
type RateHistory struct {
	employeeID attendance.EmployeeID
	records    []RateRecord
}

// NewRateHistory indexes the active records. Inactive records are dropped.
func NewRateHistory(employeeID attendance.EmployeeID, records []RateRecord) *RateHistory {
	active := make([]RateRecord, 0, len(records))
	for _, r := range records {
		if r.Active {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if !active[i].EffectiveDate.Equal(active[j].EffectiveDate) {
			return active[i].EffectiveDate.Before(active[j].EffectiveDate)
		}
		return active[i].ID < active[j].ID
	})
	return &RateHistory{employeeID: employeeID, records: active}
}

// At returns the record in effect on date, or nil.
func (h *RateHistory) At(date calendar.Date) *RateRecord {
	// First index whose effective date is after date; the one before it
	// is the latest (highest ID on ties) record in effect.
	i := sort.Search(len(h.records), func(i int) bool {
		return h.records[i].EffectiveDate.After(date)
	})
	if i == 0 {
		return nil
	}
	rec := h.records[i-1]
	return &rec
}

// Resolve applies the resolution rule, falling back to defaultRate.
// A nil defaultRate means no system default is configured.
func (h *RateHistory) Resolve(date calendar.Date, defaultRate *decimal.Decimal) (AppliedRate, error) {
	if rec := h.At(date); rec != nil {
		return AppliedRate{Rate: rec.Rate, Source: SourceHistory, Record: rec}, nil
	}
	if defaultRate != nil {
		return AppliedRate{Rate: *defaultRate, Source: SourceDefault}, nil
	}
	return AppliedRate{}, &RateNotConfiguredError{EmployeeID: h.employeeID, Date: date}
}

// Records returns the indexed active records in effective order.
func (h *RateHistory) Records() []RateRecord {
	out := make([]RateRecord, len(h.records))
	copy(out, h.records)
	return out
}

// ResolveRate is the one-shot form of the resolution rule.
func ResolveRate(employeeID attendance.EmployeeID, history []RateRecord, date calendar.Date, defaultRate *decimal.Decimal) (AppliedRate, error) {
	return NewRateHistory(employeeID, history).Resolve(date, defaultRate)
}

// SelectApplicable applies the rule to an unsorted slice without the
// default. Stores without an ordered query use it for GetApplicableRate.
func SelectApplicable(records []RateRecord, date calendar.Date) *RateRecord {
	var best *RateRecord
	for i := range records {
		r := records[i]
		if !r.Active || r.EffectiveDate.After(date) {
			continue
		}
		if best == nil ||
			r.EffectiveDate.After(best.EffectiveDate) ||
			(r.EffectiveDate.Equal(best.EffectiveDate) && r.ID > best.ID) {
			best = &r
		}
	}
	return best
}
