// Package memory provides an in-memory implementation of the attendance,
// roster and rate stores (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/billing"
	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store holds all data in maps guarded by one RWMutex. Safe for
// concurrent use; versions are checked exactly as the SQLite store does.
type Store struct {
	mu        sync.RWMutex
	records   map[key]attendance.Record
	employees map[attendance.EmployeeID]attendance.Employee
	rates     map[attendance.EmployeeID][]billing.RateRecord

	nextRecordID   attendance.RecordID
	nextEmployeeID attendance.EmployeeID
	nextRateID     billing.RateID
}

type key struct {
	EmployeeID attendance.EmployeeID
	Date       string
}

func recordKey(employeeID attendance.EmployeeID, date calendar.Date) key {
	return key{EmployeeID: employeeID, Date: date.String()}
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records:   make(map[key]attendance.Record),
		employees: make(map[attendance.EmployeeID]attendance.Employee),
		rates:     make(map[attendance.EmployeeID][]billing.RateRecord),
	}
}

var (
	_ attendance.AdminRecordStore = (*Store)(nil)
	_ attendance.EmployeeStore    = (*Store)(nil)
	_ billing.RateStore           = (*Store)(nil)
)

// =============================================================================
// ATTENDANCE RECORDS
// =============================================================================

func (m *Store) GetRecord(_ context.Context, employeeID attendance.EmployeeID, date calendar.Date) (*attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[recordKey(employeeID, date)]
	if !ok {
		return nil, nil
	}
	out := copyRecord(rec)
	return &out, nil
}

// UpsertRecord creates (Version 0) or updates (Version matches) a record.
// The check and the write happen under one lock.
func (m *Store) UpsertRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := recordKey(rec.EmployeeID, rec.Date)
	current, exists := m.records[k]

	if rec.Version == 0 {
		if exists {
			return attendance.Record{}, attendance.ErrRecordExists
		}
		m.nextRecordID++
		rec.ID = m.nextRecordID
	} else {
		if !exists || current.Version != rec.Version {
			return attendance.Record{}, attendance.ErrConcurrentModification
		}
		rec.ID = current.ID
	}

	rec.Version++
	m.records[k] = copyRecord(rec)
	return copyRecord(rec), nil
}

func (m *Store) ListRecords(_ context.Context, employeeID attendance.EmployeeID, from, to calendar.Date) ([]attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []attendance.Record
	for k, rec := range m.records {
		if k.EmployeeID != employeeID {
			continue
		}
		if from.BeforeOrEqual(rec.Date) && rec.Date.BeforeOrEqual(to) {
			result = append(result, copyRecord(rec))
		}
	}
	sortByDate(result)
	return result, nil
}

func (m *Store) ListRecordsByDate(_ context.Context, date calendar.Date) ([]attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []attendance.Record
	for _, rec := range m.records {
		if rec.Date.Equal(date) {
			result = append(result, copyRecord(rec))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeID < result[j].EmployeeID })
	return result, nil
}

func (m *Store) DeleteRecord(_ context.Context, employeeID attendance.EmployeeID, date calendar.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := recordKey(employeeID, date)
	if _, ok := m.records[k]; !ok {
		return attendance.ErrRecordNotFound
	}
	delete(m.records, k)
	return nil
}

// PurgeRecords deletes every attendance record and returns how many.
func (m *Store) PurgeRecords(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.records))
	m.records = make(map[key]attendance.Record)
	return n, nil
}

// PutRecord stores a record verbatim, bypassing the state machine. Tests
// use it to plant legacy or corrupt rows.
func (m *Store) PutRecord(rec attendance.Record) attendance.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := recordKey(rec.EmployeeID, rec.Date)
	if current, ok := m.records[k]; ok {
		rec.ID = current.ID
		rec.Version = current.Version + 1
	} else {
		m.nextRecordID++
		rec.ID = m.nextRecordID
		rec.Version = 1
	}
	m.records[k] = copyRecord(rec)
	return copyRecord(rec)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Store) CreateEmployee(_ context.Context, emp attendance.Employee) (attendance.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.employees {
		if e.Code == emp.Code {
			return attendance.Employee{}, attendance.ErrDuplicateEmployeeCode
		}
	}
	m.nextEmployeeID++
	emp.ID = m.nextEmployeeID
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = time.Now().UTC()
	}
	m.employees[emp.ID] = emp
	return emp, nil
}

func (m *Store) GetEmployee(_ context.Context, id attendance.EmployeeID) (*attendance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emp, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &emp, nil
}

func (m *Store) ListEmployees(_ context.Context, activeOnly bool) ([]attendance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []attendance.Employee
	for _, emp := range m.employees {
		if activeOnly && !emp.Active {
			continue
		}
		result = append(result, emp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (m *Store) SetEmployeeActive(_ context.Context, id attendance.EmployeeID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	emp, ok := m.employees[id]
	if !ok {
		return attendance.ErrEmployeeNotFound
	}
	emp.Active = active
	m.employees[id] = emp
	return nil
}

func (m *Store) UpdateEmployee(_ context.Context, emp attendance.Employee) (attendance.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.employees[emp.ID]
	if !ok {
		return attendance.Employee{}, attendance.ErrEmployeeNotFound
	}
	stored.Name = emp.Name
	stored.Email = emp.Email
	stored.Department = emp.Department
	stored.Position = emp.Position
	stored.Active = emp.Active
	m.employees[emp.ID] = stored
	return stored, nil
}

// =============================================================================
// RATE HISTORY (append-only)
// =============================================================================

func (m *Store) AppendRate(_ context.Context, rec billing.RateRecord) (billing.RateRecord, error) {
	if rec.Rate.IsNegative() {
		return billing.RateRecord{}, billing.ErrNegativeRate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRateID++
	rec.ID = m.nextRateID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.rates[rec.EmployeeID] = append(m.rates[rec.EmployeeID], rec)
	return rec, nil
}

func (m *Store) ListRateHistory(_ context.Context, employeeID attendance.EmployeeID) ([]billing.RateRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]billing.RateRecord, len(m.rates[employeeID]))
	copy(result, m.rates[employeeID])
	return result, nil
}

func (m *Store) GetApplicableRate(_ context.Context, employeeID attendance.EmployeeID, date calendar.Date) (*billing.RateRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return billing.SelectApplicable(m.rates[employeeID], date), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// Reset clears all data (for testing/demo).
func (m *Store) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = make(map[key]attendance.Record)
	m.employees = make(map[attendance.EmployeeID]attendance.Employee)
	m.rates = make(map[attendance.EmployeeID][]billing.RateRecord)
	return nil
}

// copyRecord detaches the timestamp pointers from the stored value.
func copyRecord(rec attendance.Record) attendance.Record {
	if rec.CheckIn != nil {
		t := *rec.CheckIn
		rec.CheckIn = &t
	}
	if rec.CheckOut != nil {
		t := *rec.CheckOut
		rec.CheckOut = &t
	}
	return rec
}

func sortByDate(records []attendance.Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
}
