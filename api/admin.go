/*
admin.go - Admin-only handlers

ENDPOINTS:
  Roster:
    GET    /api/admin/employees                 List employees (?active=true)
    POST   /api/admin/employees                 Create employee (+ first rate)
    GET    /api/admin/employees/{id}            Get employee
    PUT    /api/admin/employees/{id}            Edit profile / active flag
    POST   /api/admin/employees/{id}/deactivate Deactivate employee
    POST   /api/admin/employees/{id}/activate   Reactivate employee

  Rates (append-only):
    GET    /api/admin/employees/{id}/rates      Rate history
    POST   /api/admin/employees/{id}/rates      Append rate record
    GET    /api/admin/employees/{id}/billing    Billing report for employee

  Attendance overrides:
    GET    /api/admin/attendance                Records for ?date= (default today)
    DELETE /api/admin/attendance                Purge all records
    DELETE /api/admin/attendance/{employeeID}/{date}  Delete one record
    GET    /api/admin/attendance/open           Past days missing a check-out

  Reports:
    GET    /api/admin/reports                   Activity (?period=today|this_week|this_month)

Deletion is the only way a record leaves CHECKED_OUT. It is an override
outside the state machine, so it goes straight to the store.
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/billing"
	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// ROSTER
// =============================================================================

// ListEmployees returns the roster.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	employees, err := h.Store.ListEmployees(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.employeeFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates an employee and, if given, their first rate.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "code and name are required", nil)
		return
	}

	// Validate the rate before anything is written.
	var rate *billing.RateRecord
	if req.HourlyRate != "" {
		parsed, err := parseRate(req.HourlyRate)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		effective := h.today()
		if req.RateEffectiveDate != "" {
			if effective, err = calendar.ParseDate(req.RateEffectiveDate); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid rate_effective_date format (use YYYY-MM-DD)", err)
				return
			}
		}
		rate = &billing.RateRecord{Rate: parsed, EffectiveDate: effective, Active: true}
	}

	emp, err := h.Store.CreateEmployee(r.Context(), attendance.Employee{
		Code:       req.Code,
		Name:       req.Name,
		Email:      strings.TrimSpace(req.Email),
		Department: req.Department,
		Position:   req.Position,
		Active:     true,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if rate != nil {
		rate.EmployeeID = emp.ID
		if _, err := h.Store.AppendRate(r.Context(), *rate); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}

	log.Printf("[Admin] Created employee %s (%d)", emp.Code, emp.ID)
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// UpdateEmployee edits an employee's profile. Omitted fields keep their
// current value; the code cannot change. Rates are not edited here, they
// are appended through the rates endpoint.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.employeeFromPath(w, r)
	if !ok {
		return
	}

	var req UpdateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Name != nil {
		emp.Name = strings.TrimSpace(*req.Name)
		if emp.Name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty", nil)
			return
		}
	}
	if req.Email != nil {
		emp.Email = strings.TrimSpace(*req.Email)
	}
	if req.Department != nil {
		emp.Department = *req.Department
	}
	if req.Position != nil {
		emp.Position = *req.Position
	}
	if req.Active != nil {
		emp.Active = *req.Active
	}

	updated, err := h.Store.UpdateEmployee(r.Context(), *emp)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	log.Printf("[Admin] Updated employee %s (%d)", updated.Code, updated.ID)
	writeJSON(w, http.StatusOK, toEmployeeDTO(updated))
}

// DeactivateEmployee stops an employee from recording attendance. Their
// history and rates are kept.
func (h *Handler) DeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	h.setEmployeeActive(w, r, false)
}

// ActivateEmployee lets a deactivated employee record attendance again.
func (h *Handler) ActivateEmployee(w http.ResponseWriter, r *http.Request) {
	h.setEmployeeActive(w, r, true)
}

func (h *Handler) setEmployeeActive(w http.ResponseWriter, r *http.Request, active bool) {
	emp, ok := h.employeeFromPath(w, r)
	if !ok {
		return
	}

	if err := h.Store.SetEmployeeActive(r.Context(), emp.ID, active); err != nil {
		writeDomainError(w, r, err)
		return
	}
	emp.Active = active
	log.Printf("[Admin] Set employee %s (%d) active=%v", emp.Code, emp.ID, active)
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// =============================================================================
// RATES
// =============================================================================

// ListRates returns an employee's full rate history, inactive records
// included.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.employeeFromPath(w, r)
	if !ok {
		return
	}

	history, err := h.Store.ListRateHistory(r.Context(), emp.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rates", err)
		return
	}

	dtos := make([]RateDTO, len(history))
	for i, rec := range history {
		dtos[i] = toRateRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AppendRate adds a rate record. Earlier days keep their earlier rate.
func (h *Handler) AppendRate(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.employeeFromPath(w, r)
	if !ok {
		return
	}

	var req AppendRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rate, err := parseRate(req.HourlyRate)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	effective, err := calendar.ParseDate(req.EffectiveDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective_date format (use YYYY-MM-DD)", err)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rec, err := h.Store.AppendRate(r.Context(), billing.RateRecord{
		EmployeeID:    emp.ID,
		Rate:          rate,
		EffectiveDate: effective,
		Active:        active,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRateRecordDTO(rec))
}

// GetEmployeeBilling returns the billing report for any employee.
func (h *Handler) GetEmployeeBilling(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.employeeFromPath(w, r)
	if !ok {
		return
	}
	h.writeBillingReport(w, r, emp.ID)
}

// =============================================================================
// ATTENDANCE OVERRIDES
// =============================================================================

// ListAttendanceByDate returns every record for ?date= (default today).
func (h *Handler) ListAttendanceByDate(w http.ResponseWriter, r *http.Request) {
	date := h.today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		var err error
		if date, err = calendar.ParseDate(raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
	}

	records, err := h.Store.ListRecordsByDate(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, h.recordDTOsWithNames(r, records))
}

// DeleteAttendance removes one record.
func (h *Handler) DeleteAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "employeeID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return
	}
	date, err := calendar.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	if err := h.Store.DeleteRecord(r.Context(), attendance.EmployeeID(id), date); err != nil {
		writeDomainError(w, r, err)
		return
	}

	log.Printf("[Admin] Deleted attendance record for employee %d on %s", id, date)
	w.WriteHeader(http.StatusNoContent)
}

// PurgeAttendance deletes every attendance record. Roster and rates stay.
func (h *Handler) PurgeAttendance(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.PurgeRecords(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to purge attendance", err)
		return
	}

	log.Printf("[Admin] Purged %d attendance records", n)
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// =============================================================================
// REPORTS
// =============================================================================

// GetActivityReport summarizes every active employee over the period.
func (h *Handler) GetActivityReport(w http.ResponseWriter, r *http.Request) {
	selector, period, err := h.periodFromQuery(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	employees, err := h.Store.ListEmployees(r.Context(), true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	report := ActivityReportDTO{
		Period:    string(selector),
		StartDate: period.Start.String(),
		EndDate:   period.End.String(),
		Employees: make([]ActivityDTO, 0, len(employees)),
	}
	for _, emp := range employees {
		records, err := h.Store.ListRecords(r.Context(), emp.ID, period.Start, period.End)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list attendance", err)
			return
		}
		report.Employees = append(report.Employees, toActivityDTO(attendance.Summarize(emp, records)))
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// HELPERS
// =============================================================================

// employeeFromPath loads the {id} employee or writes 400/404.
func (h *Handler) employeeFromPath(w http.ResponseWriter, r *http.Request) (*attendance.Employee, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return nil, false
	}

	emp, err := h.Store.GetEmployee(r.Context(), attendance.EmployeeID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return nil, false
	}
	if emp == nil {
		writeDomainError(w, r, attendance.ErrEmployeeNotFound)
		return nil, false
	}
	return emp, true
}

func (h *Handler) recordDTOsWithNames(r *http.Request, records []attendance.Record) []AttendanceRecordDTO {
	names := make(map[attendance.EmployeeID]string)
	dtos := make([]AttendanceRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
		name, ok := names[rec.EmployeeID]
		if !ok {
			if emp, err := h.Store.GetEmployee(r.Context(), rec.EmployeeID); err == nil && emp != nil {
				name = emp.Name
			}
			names[rec.EmployeeID] = name
		}
		dtos[i].EmployeeName = name
	}
	return dtos
}

func parseRate(s string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, &badRequestError{message: "Invalid hourly_rate", err: err}
	}
	if rate.IsNegative() {
		return decimal.Decimal{}, billing.ErrNegativeRate
	}
	return rate, nil
}
