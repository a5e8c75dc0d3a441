/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface (attendance.AdminRecordStore,
  attendance.EmployeeStore, billing.RateStore) on one SQLite database. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  employees:          Organizational roster (deactivated, never deleted)
  attendance_records: One row per (employee, date), versioned
  hourly_rates:       Append-only, effective-dated rate history

LINEARIZATION:
  - UNIQUE(employee_id, date) makes concurrent creation fail for all but
    one writer (ErrRecordExists)
  - Updates are conditional: UPDATE ... WHERE version = ?. Zero rows
    affected means someone else wrote first (ErrConcurrentModification)

RATE RESOLUTION:
  GetApplicableRate applies the rule in SQL:
    WHERE active AND effective_date <= ?
    ORDER BY effective_date DESC, id DESC LIMIT 1
  Dates are stored as YYYY-MM-DD text, so lexical order is date order.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  tracker := attendance.NewTracker(store, schedule)

SEE ALSO:
  - attendance/store.go: Record and roster interfaces
  - billing/rate.go: Rate interface and resolution rule
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/billing"
	"github.com/warp/attendance-engine/calendar"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ attendance.AdminRecordStore = (*Store)(nil)
	_ attendance.EmployeeStore    = (*Store)(nil)
	_ billing.RateStore           = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection (health endpoint).
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	-- One record per employee per day. This constraint is what makes two
	-- concurrent check-ins resolve to exactly one success.
	CREATE TABLE IF NOT EXISTS attendance_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL REFERENCES employees(id),
		date TEXT NOT NULL,
		check_in TEXT,
		check_out TEXT,
		status TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		UNIQUE(employee_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_date
		ON attendance_records(date);

	-- Append-only: rows are inserted, never updated
	CREATE TABLE IF NOT EXISTS hourly_rates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL REFERENCES employees(id),
		rate TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	-- Hot path: applicable rate lookup
	CREATE INDEX IF NOT EXISTS idx_rates_employee_effective
		ON hourly_rates(employee_id, effective_date DESC, id DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ATTENDANCE RECORDS (attendance.RecordStore interface)
// =============================================================================

const recordColumns = "id, employee_id, date, check_in, check_out, status, version"

// GetRecord returns the record for (employee, date), or nil.
func (s *Store) GetRecord(ctx context.Context, employeeID attendance.EmployeeID, date calendar.Date) (*attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM attendance_records WHERE employee_id = ? AND date = ?",
		employeeID, date.String(),
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return &rec, nil
}

// UpsertRecord creates (Version 0) or conditionally updates a record.
func (s *Store) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Version == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO attendance_records (employee_id, date, check_in, check_out, status, version)
			VALUES (?, ?, ?, ?, ?, 1)`,
			rec.EmployeeID, rec.Date.String(),
			nullTime(rec.CheckIn), nullTime(rec.CheckOut), string(rec.Status),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return attendance.Record{}, attendance.ErrRecordExists
			}
			if isForeignKeyError(err) {
				return attendance.Record{}, attendance.ErrEmployeeNotFound
			}
			return attendance.Record{}, fmt.Errorf("failed to insert attendance record: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return attendance.Record{}, err
		}
		rec.ID = attendance.RecordID(id)
		rec.Version = 1
		return rec, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET check_in = ?, check_out = ?, status = ?, version = version + 1
		WHERE employee_id = ? AND date = ? AND version = ?`,
		nullTime(rec.CheckIn), nullTime(rec.CheckOut), string(rec.Status),
		rec.EmployeeID, rec.Date.String(), rec.Version,
	)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to update attendance record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return attendance.Record{}, err
	}
	if n == 0 {
		return attendance.Record{}, attendance.ErrConcurrentModification
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM attendance_records WHERE employee_id = ? AND date = ?",
		rec.EmployeeID, rec.Date.String(),
	).Scan(&id)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to read back attendance record: %w", err)
	}
	rec.ID = attendance.RecordID(id)
	rec.Version++
	return rec, nil
}

// ListRecords returns records with date in [from, to], ordered by date.
func (s *Store) ListRecords(ctx context.Context, employeeID attendance.EmployeeID, from, to calendar.Date) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		employeeID, from.String(), to.String(),
	)
}

// ListRecordsByDate returns every employee's record for one date.
func (s *Store) ListRecordsByDate(ctx context.Context, date calendar.Date) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM attendance_records WHERE date = ? ORDER BY employee_id",
		date.String(),
	)
}

// DeleteRecord removes the record for (employee, date). Admin override.
func (s *Store) DeleteRecord(ctx context.Context, employeeID attendance.EmployeeID, date calendar.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM attendance_records WHERE employee_id = ? AND date = ?",
		employeeID, date.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete attendance record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return attendance.ErrRecordNotFound
	}
	return nil
}

// PurgeRecords deletes every attendance record and returns how many.
// Employees and rates are kept.
func (s *Store) PurgeRecords(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM attendance_records")
	if err != nil {
		return 0, fmt.Errorf("failed to purge attendance records: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]attendance.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (attendance.Record, error) {
	var rec attendance.Record
	var date, status string
	var checkIn, checkOut sql.NullString

	if err := row.Scan(&rec.ID, &rec.EmployeeID, &date, &checkIn, &checkOut, &status, &rec.Version); err != nil {
		return attendance.Record{}, err
	}

	var err error
	if rec.Date, err = calendar.ParseDate(date); err != nil {
		return attendance.Record{}, fmt.Errorf("invalid stored date %q: %w", date, err)
	}
	if rec.CheckIn, err = parseNullTime(checkIn); err != nil {
		return attendance.Record{}, err
	}
	if rec.CheckOut, err = parseNullTime(checkOut); err != nil {
		return attendance.Record{}, err
	}
	rec.Status = attendance.Status(status)
	return rec, nil
}

// =============================================================================
// EMPLOYEES (attendance.EmployeeStore interface)
// =============================================================================

const employeeColumns = "id, code, name, email, department, position, active, created_at"

// CreateEmployee inserts an employee and returns it with its new ID.
func (s *Store) CreateEmployee(ctx context.Context, emp attendance.Employee) (attendance.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (code, name, email, department, position, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		emp.Code, emp.Name, emp.Email, emp.Department, emp.Position,
		emp.Active, emp.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return attendance.Employee{}, attendance.ErrDuplicateEmployeeCode
		}
		return attendance.Employee{}, fmt.Errorf("failed to create employee: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return attendance.Employee{}, err
	}
	emp.ID = attendance.EmployeeID(id)
	return emp, nil
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id attendance.EmployeeID) (*attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id = ?", id,
	)
	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &emp, nil
}

// ListEmployees returns the roster ordered by code.
func (s *Store) ListEmployees(ctx context.Context, activeOnly bool) ([]attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + employeeColumns + " FROM employees"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY code"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []attendance.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// SetEmployeeActive activates or deactivates an employee.
func (s *Store) SetEmployeeActive(ctx context.Context, id attendance.EmployeeID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE employees SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return attendance.ErrEmployeeNotFound
	}
	return nil
}

// UpdateEmployee overwrites the profile fields and active flag. The code
// and creation time never change.
func (s *Store) UpdateEmployee(ctx context.Context, emp attendance.Employee) (attendance.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE employees
		SET name = ?, email = ?, department = ?, position = ?, active = ?
		WHERE id = ?`,
		emp.Name, emp.Email, emp.Department, emp.Position, emp.Active, emp.ID,
	)
	if err != nil {
		return attendance.Employee{}, fmt.Errorf("failed to update employee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return attendance.Employee{}, err
	}
	if n == 0 {
		return attendance.Employee{}, attendance.ErrEmployeeNotFound
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id = ?", emp.ID,
	)
	updated, err := scanEmployee(row)
	if err != nil {
		return attendance.Employee{}, fmt.Errorf("failed to reload employee: %w", err)
	}
	return updated, nil
}

func scanEmployee(row scanner) (attendance.Employee, error) {
	var emp attendance.Employee
	var createdAt string
	err := row.Scan(&emp.ID, &emp.Code, &emp.Name, &emp.Email,
		&emp.Department, &emp.Position, &emp.Active, &createdAt)
	if err != nil {
		return attendance.Employee{}, err
	}
	if emp.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return attendance.Employee{}, fmt.Errorf("invalid stored created_at %q: %w", createdAt, err)
	}
	return emp, nil
}

// =============================================================================
// RATE HISTORY (billing.RateStore interface)
// =============================================================================

const rateColumns = "id, employee_id, rate, effective_date, active, created_at"

// AppendRate adds a rate record. Rate rows are never updated.
func (s *Store) AppendRate(ctx context.Context, rec billing.RateRecord) (billing.RateRecord, error) {
	if rec.Rate.IsNegative() {
		return billing.RateRecord{}, billing.ErrNegativeRate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO hourly_rates (employee_id, rate, effective_date, active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.EmployeeID, rec.Rate.String(), rec.EffectiveDate.String(),
		rec.Active, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return billing.RateRecord{}, attendance.ErrEmployeeNotFound
		}
		return billing.RateRecord{}, fmt.Errorf("failed to append rate: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return billing.RateRecord{}, err
	}
	rec.ID = billing.RateID(id)
	return rec, nil
}

// ListRateHistory returns all of an employee's rate records, oldest first.
func (s *Store) ListRateHistory(ctx context.Context, employeeID attendance.EmployeeID) ([]billing.RateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+rateColumns+` FROM hourly_rates
		WHERE employee_id = ?
		ORDER BY effective_date, id`,
		employeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rates: %w", err)
	}
	defer rows.Close()

	var rates []billing.RateRecord
	for rows.Next() {
		rec, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		rates = append(rates, rec)
	}
	return rates, rows.Err()
}

// GetApplicableRate returns the active rate with the latest effective date
// on or before date, highest ID first on ties. Nil if none applies.
func (s *Store) GetApplicableRate(ctx context.Context, employeeID attendance.EmployeeID, date calendar.Date) (*billing.RateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+rateColumns+` FROM hourly_rates
		WHERE employee_id = ? AND active = 1 AND effective_date <= ?
		ORDER BY effective_date DESC, id DESC
		LIMIT 1`,
		employeeID, date.String(),
	)
	rec, err := scanRate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get applicable rate: %w", err)
	}
	return &rec, nil
}

func scanRate(row scanner) (billing.RateRecord, error) {
	var rec billing.RateRecord
	var rate, effective, createdAt string
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rate, &effective, &rec.Active, &createdAt)
	if err != nil {
		return billing.RateRecord{}, err
	}
	if rec.Rate, err = decimal.NewFromString(rate); err != nil {
		return billing.RateRecord{}, fmt.Errorf("invalid stored rate %q: %w", rate, err)
	}
	if rec.EffectiveDate, err = calendar.ParseDate(effective); err != nil {
		return billing.RateRecord{}, fmt.Errorf("invalid stored effective date %q: %w", effective, err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return billing.RateRecord{}, fmt.Errorf("invalid stored created_at %q: %w", createdAt, err)
	}
	return rec, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"attendance_records", "hourly_rates", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid stored timestamp %q: %w", s.String, err)
	}
	return &t, nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
