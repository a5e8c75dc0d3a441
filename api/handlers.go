/*
handlers.go - HTTP API handlers for attendance and billing

PURPOSE:
  Exposes the attendance tracker and billing aggregator via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Self-service (any authenticated employee, acting on themselves):
    POST   /api/attendance/checkin     Check in now
    POST   /api/attendance/checkout    Check out now
    GET    /api/attendance/status      Today's state
    GET    /api/attendance/history     Recent records (?days=30)
    GET    /api/billing                Billing report (?period=&start_date=&end_date=)

  Admin:
    see admin.go

REQUEST FLOW:
  1. Resolve the caller from the token claims
  2. Parse and validate input
  3. Call domain logic (tracker, aggregator)
  4. Serialize response
  5. Map domain errors to status codes (writeDomainError)

ERROR HANDLING:
  Errors are returned as JSON {"error", "kind", "details"}:
  - 400: Invalid input, invalid range, unknown period
  - 401/403: Missing token / not an admin
  - 404: Employee or record not found
  - 409: Ordering errors (already checked in/out, not checked in)
  - 500: integrity_error (corrupt record), configuration_error (no rate)

SEE ALSO:
  - dto.go: Request/response data structures
  - admin.go: Roster, rates, reports
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/billing"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is everything the API persists.
type Store interface {
	attendance.AdminRecordStore
	attendance.EmployeeStore
	billing.RateStore

	// Reset clears all data (scenarios only).
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      Store
	Tracker    *attendance.Tracker
	Aggregator *billing.Aggregator
	Auth       *Authenticator

	// Now is the organizational clock. Tests replace it.
	Now func() time.Time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over the store with the given schedule and
// default rate (nil for none).
func NewHandler(store Store, schedule attendance.Schedule, defaultRate *decimal.Decimal, auth *Authenticator) *Handler {
	return &Handler{
		Store:      store,
		Tracker:    attendance.NewTracker(store, schedule),
		Aggregator: billing.NewAggregator(store, store, defaultRate),
		Auth:       auth,
		Now:        time.Now,
	}
}

func (h *Handler) today() calendar.Date {
	return calendar.DateOf(h.Now())
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// CheckIn records the caller's arrival now.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.activeCaller(w, r)
	if !ok {
		return
	}

	now := h.Now()
	ctx, span := telemetry.StartSpan(r.Context(), "attendance.CheckIn",
		attribute.Int64("employee.id", int64(emp.ID)))
	rec, err := h.Tracker.CheckIn(ctx, emp.ID, calendar.DateOf(now), now)
	telemetry.EndSpan(span, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	p := printerFor(r)
	writeJSON(w, http.StatusOK, AttendanceActionResponse{
		Message: p.Sprintf(msgCheckedIn, now.Format("15:04")),
		Record:  toRecordDTO(rec),
	})
}

// CheckOut records the caller's departure now.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.activeCaller(w, r)
	if !ok {
		return
	}

	now := h.Now()
	ctx, span := telemetry.StartSpan(r.Context(), "attendance.CheckOut",
		attribute.Int64("employee.id", int64(emp.ID)))
	rec, err := h.Tracker.CheckOut(ctx, emp.ID, calendar.DateOf(now), now)
	telemetry.EndSpan(span, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	p := printerFor(r)
	writeJSON(w, http.StatusOK, AttendanceActionResponse{
		Message: p.Sprintf(msgCheckedOut, now.Format("15:04")),
		Record:  toRecordDTO(rec),
	})
}

// GetStatus returns the caller's state for today.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.caller(w, r)
	if !ok {
		return
	}

	status, err := h.Tracker.CurrentStatus(r.Context(), emp.ID, h.today())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTO(status))
}

// GetHistory returns the caller's recent records, newest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.caller(w, r)
	if !ok {
		return
	}

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 366 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 366", err)
			return
		}
		days = n
	}

	records, err := h.Tracker.History(r.Context(), emp.ID, h.today(), days)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	dtos := make([]AttendanceRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BILLING HANDLERS
// =============================================================================

// GetBilling returns the caller's billing report.
func (h *Handler) GetBilling(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.caller(w, r)
	if !ok {
		return
	}
	h.writeBillingReport(w, r, emp.ID)
}

// writeBillingReport resolves the period from the query, computes the
// report and attaches the rate in effect today.
func (h *Handler) writeBillingReport(w http.ResponseWriter, r *http.Request, employeeID attendance.EmployeeID) {
	selector, period, err := h.periodFromQuery(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	ctx, span := telemetry.StartSpan(r.Context(), "billing.ComputeBillingReport",
		attribute.Int64("employee.id", int64(employeeID)),
		attribute.String("period.start", period.Start.String()),
		attribute.String("period.end", period.End.String()))
	report, err := h.Aggregator.ComputeBillingReport(ctx, employeeID, period.Start, period.End)
	telemetry.EndSpan(span, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	dto := toReportDTO(report, selector)
	if applied, err := h.Aggregator.CurrentRate(r.Context(), employeeID, h.today()); err == nil {
		dto.CurrentRate = toRateDTO(employeeID, applied)
	}
	writeJSON(w, http.StatusOK, dto)
}

// periodFromQuery reads ?period=, ?start_date= and ?end_date=.
func (h *Handler) periodFromQuery(r *http.Request) (calendar.Selector, calendar.Period, error) {
	q := r.URL.Query()
	selector, err := calendar.ParseSelector(q.Get("period"))
	if err != nil {
		return "", calendar.Period{}, err
	}

	req := calendar.PeriodRequest{Selector: selector}
	if selector == calendar.SelectorCustom {
		if req.Start, err = parseOptionalDate(q.Get("start_date")); err != nil {
			return "", calendar.Period{}, err
		}
		if req.End, err = parseOptionalDate(q.Get("end_date")); err != nil {
			return "", calendar.Period{}, err
		}
	}

	period, err := calendar.ResolvePeriod(req, h.today())
	return selector, period, err
}

// =============================================================================
// CALLER RESOLUTION
// =============================================================================

// caller loads the authenticated employee. Writes the error response and
// returns false when there is none.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (*attendance.Employee, bool) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		writeLocalizedError(w, r, http.StatusUnauthorized, "unauthenticated", msgUnauthenticated, nil)
		return nil, false
	}

	emp, err := h.Store.GetEmployee(r.Context(), claims.EmployeeID)
	if err != nil {
		writeDomainError(w, r, err)
		return nil, false
	}
	if emp == nil {
		writeDomainError(w, r, attendance.ErrEmployeeNotFound)
		return nil, false
	}
	return emp, true
}

// activeCaller is caller plus the deactivation guard on attendance writes.
func (h *Handler) activeCaller(w http.ResponseWriter, r *http.Request) (*attendance.Employee, bool) {
	emp, ok := h.caller(w, r)
	if !ok {
		return nil, false
	}
	if !emp.Active {
		writeDomainError(w, r, attendance.ErrEmployeeInactive)
		return nil, false
	}
	return emp, true
}

// =============================================================================
// HELPERS
// =============================================================================

// Healthz reports liveness, and database reachability when the store
// supports it.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if pinger, ok := h.Store.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeLocalizedError(w http.ResponseWriter, r *http.Request, status int, kind, key string, err error) {
	resp := ErrorResponse{Error: printerFor(r).Sprintf(key), Kind: kind}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// errorMapping ties a sentinel to its HTTP rendering.
type errorMapping struct {
	target error
	status int
	kind   string
	key    string
}

var errorMappings = []errorMapping{
	{attendance.ErrAlreadyCheckedIn, http.StatusConflict, "already_checked_in", msgAlreadyCheckedIn},
	{attendance.ErrAlreadyCheckedOut, http.StatusConflict, "already_checked_out", msgAlreadyCheckedOut},
	{attendance.ErrNotCheckedIn, http.StatusConflict, "not_checked_in", msgNotCheckedIn},
	{attendance.ErrCheckOutBeforeCheckIn, http.StatusConflict, "check_out_before_check_in", msgCheckOutBeforeCheckIn},
	{attendance.ErrEmployeeInactive, http.StatusForbidden, "employee_inactive", msgEmployeeInactive},
	{attendance.ErrEmployeeNotFound, http.StatusNotFound, "not_found", msgEmployeeNotFound},
	{attendance.ErrRecordNotFound, http.StatusNotFound, "not_found", msgRecordNotFound},
	{attendance.ErrDuplicateEmployeeCode, http.StatusConflict, "duplicate", msgDuplicateEmployee},
	{calendar.ErrInvalidRange, http.StatusBadRequest, "invalid_range", msgInvalidRange},
	{calendar.ErrUnknownPeriod, http.StatusBadRequest, "unknown_period", msgUnknownPeriod},
	{billing.ErrNegativeRate, http.StatusBadRequest, "invalid_rate", msgInvalidRate},
	{billing.ErrCorruptAttendanceRecord, http.StatusInternalServerError, "integrity_error", msgCorruptRecord},
	{billing.ErrRateNotConfigured, http.StatusInternalServerError, "configuration_error", msgRateNotConfigured},
}

// writeDomainError maps a domain error to its status, kind and localized
// message. Unknown errors are logged and become a bare 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var bad *badRequestError
	if errors.As(err, &bad) {
		writeError(w, http.StatusBadRequest, bad.message, bad.err)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status == http.StatusInternalServerError {
				log.Printf("[API] %s %s: %v", r.Method, r.URL.Path, err)
			}
			writeLocalizedError(w, r, m.status, m.kind, m.key, err)
			return
		}
	}

	log.Printf("[API] %s %s: unexpected error: %v", r.Method, r.URL.Path, err)
	writeLocalizedError(w, r, http.StatusInternalServerError, "internal", msgInternal, nil)
}

func parseOptionalDate(s string) (calendar.Date, error) {
	if s == "" {
		return calendar.Date{}, nil
	}
	d, err := calendar.ParseDate(s)
	if err != nil {
		return calendar.Date{}, &badRequestError{message: "Invalid date format (use YYYY-MM-DD)", err: err}
	}
	return d, nil
}

// badRequestError is malformed client input outside the domain errors.
type badRequestError struct {
	message string
	err     error
}

func (e *badRequestError) Error() string { return e.message + ": " + e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }
