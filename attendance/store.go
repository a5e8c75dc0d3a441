/*
store.go - Persistence contract for attendance records

PURPOSE:
  Defines what the Tracker needs from its persistence collaborator. The
  Tracker itself holds no state between calls; every guarantee about
  concurrent access comes from the store.

LINEARIZATION CONTRACT:
  UpsertRecord must make CheckIn/CheckOut for the same (employee, date)
  linearizable:

  - Creating (rec.Version == 0) when the key already has a record fails
    with ErrRecordExists. Two concurrent CheckIns cannot both create.
  - Updating (rec.Version > 0) succeeds only if the stored version still
    equals rec.Version; otherwise ErrConcurrentModification. A CheckOut
    cannot overwrite a record it did not observe.

  SQLite enforces the first with UNIQUE(employee_id, date), the second
  with a conditional UPDATE. The memory store checks both under a mutex.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - store/memory/memory.go: In-memory for testing/dev
*/
package attendance

import (
	"context"

	"github.com/warp/attendance-engine/calendar"
)

// RecordStore persists attendance records.
type RecordStore interface {
	// GetRecord returns the record for (employee, date), or nil if absent.
	GetRecord(ctx context.Context, employeeID EmployeeID, date calendar.Date) (*Record, error)

	// UpsertRecord atomically creates or updates the record keyed by
	// (rec.EmployeeID, rec.Date) and returns it as stored (with its new
	// ID and Version).
	UpsertRecord(ctx context.Context, rec Record) (Record, error)

	// ListRecords returns records with date in [from, to], ordered by date.
	ListRecords(ctx context.Context, employeeID EmployeeID, from, to calendar.Date) ([]Record, error)
}

// AdminRecordStore adds administrative overrides that are outside the
// state machine.
type AdminRecordStore interface {
	RecordStore

	// DeleteRecord removes the record for (employee, date).
	// Returns ErrRecordNotFound if there is none.
	DeleteRecord(ctx context.Context, employeeID EmployeeID, date calendar.Date) error

	// ListRecordsByDate returns every employee's record for a date.
	ListRecordsByDate(ctx context.Context, date calendar.Date) ([]Record, error)

	// PurgeRecords deletes all records and returns the count.
	PurgeRecords(ctx context.Context) (int64, error)
}

// EmployeeStore persists the organizational roster.
type EmployeeStore interface {
	// CreateEmployee inserts an employee and returns it with its new ID.
	// Employee codes are unique.
	CreateEmployee(ctx context.Context, emp Employee) (Employee, error)

	// GetEmployee returns the employee, or nil if there is none.
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)

	// ListEmployees returns the roster ordered by code.
	ListEmployees(ctx context.Context, activeOnly bool) ([]Employee, error)

	// UpdateEmployee overwrites name, email, department, position and the
	// active flag of an existing employee and returns the stored result.
	// Code and CreatedAt are immutable. Returns ErrEmployeeNotFound if
	// there is none.
	UpdateEmployee(ctx context.Context, emp Employee) (Employee, error)

	// SetEmployeeActive activates or deactivates an employee.
	// Returns ErrEmployeeNotFound if there is none.
	SetEmployeeActive(ctx context.Context, id EmployeeID, active bool) error
}
