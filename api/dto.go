/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY AND HOURS:
  Decimal values cross the wire as fixed 2dp strings ("360.00") so no
  client ever parses them into a binary float by accident.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/billing"
	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
	Active     bool   `json:"active"`
	CreatedAt  string `json:"created_at"`
}

// CreateEmployeeRequest is the request body for creating an employee.
// HourlyRate, when set, becomes the employee's first rate record.
type CreateEmployeeRequest struct {
	Code              string `json:"code"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Department        string `json:"department"`
	Position          string `json:"position"`
	HourlyRate        string `json:"hourly_rate,omitempty"`
	RateEffectiveDate string `json:"rate_effective_date,omitempty"` // YYYY-MM-DD, default today
}

// UpdateEmployeeRequest is the request body for editing an employee.
// Nil fields are left unchanged.
type UpdateEmployeeRequest struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceRecordDTO is one day's attendance.
type AttendanceRecordDTO struct {
	ID           int64   `json:"id"`
	EmployeeID   int64   `json:"employee_id"`
	EmployeeName string  `json:"employee_name,omitempty"`
	Date         string  `json:"date"`
	CheckIn      *string `json:"check_in"`
	CheckOut     *string `json:"check_out"`
	Status       string  `json:"status"`
	HoursWorked  *string `json:"hours_worked,omitempty"`
}

// AttendanceActionResponse is returned by check-in and check-out.
type AttendanceActionResponse struct {
	Message string              `json:"message"`
	Record  AttendanceRecordDTO `json:"record"`
}

// StatusDTO is the current-day dashboard view.
type StatusDTO struct {
	EmployeeID int64   `json:"employee_id"`
	Date       string  `json:"date"`
	State      string  `json:"state"`
	CheckedIn  bool    `json:"checked_in"`
	CheckedOut bool    `json:"checked_out"`
	CheckIn    *string `json:"check_in"`
	CheckOut   *string `json:"check_out"`
	Status     string  `json:"status,omitempty"`
	LeftEarly  bool    `json:"left_early"`
}

// =============================================================================
// BILLING
// =============================================================================

// BillingLineDTO is one billed day.
type BillingLineDTO struct {
	Date       string `json:"date"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Status     string `json:"status"`
	Hours      string `json:"hours"`
	Rate       string `json:"rate"`
	RateSource string `json:"rate_source"`
	Cost       string `json:"cost"`
}

// BillingReportDTO is a billing report plus the rate in effect today.
type BillingReportDTO struct {
	EmployeeID  int64            `json:"employee_id"`
	Period      string           `json:"period"`
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	Lines       []BillingLineDTO `json:"lines"`
	TotalHours  string           `json:"total_hours"`
	TotalCost   string           `json:"total_cost"`
	CurrentRate *RateDTO         `json:"current_rate,omitempty"`
}

// RateDTO is a rate record, or the default rate when Source is "default".
type RateDTO struct {
	ID            int64  `json:"id,omitempty"`
	EmployeeID    int64  `json:"employee_id"`
	HourlyRate    string `json:"hourly_rate"`
	EffectiveDate string `json:"effective_date,omitempty"`
	Active        bool   `json:"active"`
	Source        string `json:"source"`
}

// AppendRateRequest is the request body for adding a rate record.
type AppendRateRequest struct {
	HourlyRate    string `json:"hourly_rate"`
	EffectiveDate string `json:"effective_date"`
	Active        *bool  `json:"active,omitempty"` // default true
}

// =============================================================================
// ADMIN REPORTS
// =============================================================================

// ActivityDTO is one employee's activity over a report period.
type ActivityDTO struct {
	Employee     EmployeeDTO `json:"employee"`
	DaysWorked   int         `json:"days_worked"`
	CheckIns     int         `json:"check_ins"`
	LateDays     int         `json:"late_days"`
	CompleteDays int         `json:"complete_days"`
	AverageHours string      `json:"avg_hours"`
}

// ActivityReportDTO is the admin activity report.
type ActivityReportDTO struct {
	Period    string        `json:"period"`
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Employees []ActivityDTO `json:"employees"`
}

// OpenDaysDTO lists past days still missing a check-out.
type OpenDaysDTO struct {
	CheckedAt string                `json:"checked_at,omitempty"`
	Records   []AttendanceRecordDTO `json:"records"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request body for loading a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toEmployeeDTO(e attendance.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         int64(e.ID),
		Code:       e.Code,
		Name:       e.Name,
		Email:      e.Email,
		Department: e.Department,
		Position:   e.Position,
		Active:     e.Active,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
	}
}

func toRecordDTO(rec attendance.Record) AttendanceRecordDTO {
	dto := AttendanceRecordDTO{
		ID:         int64(rec.ID),
		EmployeeID: int64(rec.EmployeeID),
		Date:       rec.Date.String(),
		CheckIn:    formatStamp(rec.CheckIn),
		CheckOut:   formatStamp(rec.CheckOut),
		Status:     string(rec.Status),
	}
	if worked := rec.Worked(); worked > 0 {
		hours := money(attendance.Hours(worked))
		dto.HoursWorked = &hours
	}
	return dto
}

func toStatusDTO(s attendance.DayStatus) StatusDTO {
	return StatusDTO{
		EmployeeID: int64(s.EmployeeID),
		Date:       s.Date.String(),
		State:      string(s.State),
		CheckedIn:  s.CheckedIn,
		CheckedOut: s.CheckedOut,
		CheckIn:    formatStamp(s.CheckIn),
		CheckOut:   formatStamp(s.CheckOut),
		Status:     string(s.Status),
		LeftEarly:  s.LeftEarly,
	}
}

func toReportDTO(report billing.Report, selector calendar.Selector) BillingReportDTO {
	lines := make([]BillingLineDTO, len(report.Lines))
	for i, l := range report.Lines {
		lines[i] = BillingLineDTO{
			Date:       l.Date.String(),
			CheckIn:    l.CheckIn.Format(time.RFC3339),
			CheckOut:   l.CheckOut.Format(time.RFC3339),
			Status:     string(l.Status),
			Hours:      money(l.Hours),
			Rate:       money(l.Rate),
			RateSource: string(l.RateSource),
			Cost:       money(l.Cost),
		}
	}
	return BillingReportDTO{
		EmployeeID: int64(report.EmployeeID),
		Period:     string(selector),
		StartDate:  report.Period.Start.String(),
		EndDate:    report.Period.End.String(),
		Lines:      lines,
		TotalHours: money(report.TotalHours),
		TotalCost:  money(report.TotalCost),
	}
}

func toRateDTO(employeeID attendance.EmployeeID, applied billing.AppliedRate) *RateDTO {
	dto := &RateDTO{
		EmployeeID: int64(employeeID),
		HourlyRate: money(applied.Rate),
		Active:     true,
		Source:     string(applied.Source),
	}
	if applied.Record != nil {
		dto.ID = int64(applied.Record.ID)
		dto.EffectiveDate = applied.Record.EffectiveDate.String()
	}
	return dto
}

func toRateRecordDTO(rec billing.RateRecord) RateDTO {
	return RateDTO{
		ID:            int64(rec.ID),
		EmployeeID:    int64(rec.EmployeeID),
		HourlyRate:    money(rec.Rate),
		EffectiveDate: rec.EffectiveDate.String(),
		Active:        rec.Active,
		Source:        string(billing.SourceHistory),
	}
}

func toActivityDTO(s attendance.ActivitySummary) ActivityDTO {
	return ActivityDTO{
		Employee:     toEmployeeDTO(s.Employee),
		DaysWorked:   s.DaysWorked,
		CheckIns:     s.CheckIns,
		LateDays:     s.LateDays,
		CompleteDays: s.CompleteDays,
		AverageHours: money(s.AverageHours),
	}
}

func formatStamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// money renders a decimal with the display precision.
func money(d decimal.Decimal) string {
	return d.StringFixed(billing.DisplayPlaces)
}
