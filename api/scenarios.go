/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates employees, rate
	histories and attendance that demonstrate specific features.

AVAILABLE SCENARIOS:

	standard-team:    Three employees, two months of weekday attendance
	rate-change:      Mid-month raise; last_month bills 8h@20 + 8h@25 = 360.00
	default-rate:     No rate history, billed at the system default
	inactive-employee: A deactivated employee with kept history

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create employees
 3. Append rate records
 4. Replay attendance through the Tracker, so every record passes the
    same state machine as live traffic

USAGE VIA API:

	POST /api/admin/scenarios/load
	{"scenario_id": "rate-change"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add it to the loaders map

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - admin.go: Roster and rate handlers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/billing"
	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-team",
		Name:        "Standard Team",
		Description: "Three employees with two months of weekday attendance, some late arrivals and one forgotten check-out",
	},
	{
		ID:          "rate-change",
		Name:        "Mid-Month Rate Change",
		Description: "Raise from $20 to $25 on the 15th of last month; two 8h days bill 360.00",
	},
	{
		ID:          "default-rate",
		Name:        "Default Rate",
		Description: "Employee without rate history, billed at the system default rate",
	},
	{
		ID:          "inactive-employee",
		Name:        "Inactive Employee",
		Description: "A deactivated employee whose attendance and rates are kept for billing",
	},
}

func (h *Handler) scenarioLoaders() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"standard-team":     h.loadStandardTeamScenario,
		"rate-change":       h.loadRateChangeScenario,
		"default-rate":      h.loadDefaultRateScenario,
		"inactive-employee": h.loadInactiveEmployeeScenario,
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	load, ok := h.scenarioLoaders()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	log.Printf("[Scenario] Loaded %s", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadStandardTeamScenario(ctx context.Context) error {
	today := h.today()
	lastMonth := calendar.StartOfMonth(today.Year(), today.Month()).AddMonths(-1)

	team := []struct {
		emp  attendance.Employee
		rate string
	}{
		{attendance.Employee{Code: "EMP001", Name: "Alice Johnson", Email: "alice@example.com", Department: "Engineering", Position: "Developer"}, "32.50"},
		{attendance.Employee{Code: "EMP002", Name: "Bruno Martin", Email: "bruno@example.com", Department: "Support", Position: "Agent"}, "22.00"},
		{attendance.Employee{Code: "EMP003", Name: "Chloé Durand", Email: "chloe@example.com", Department: "Finance", Position: "Analyst"}, "28.75"},
	}

	for i, member := range team {
		emp, err := h.createScenarioEmployee(ctx, member.emp)
		if err != nil {
			return err
		}
		if err := h.appendScenarioRate(ctx, emp.ID, member.rate, lastMonth); err != nil {
			return err
		}

		for day := lastMonth; day.Before(today); day = day.AddDays(1) {
			if day.IsWeekend() {
				continue
			}
			n := calendar.DaysBetween(lastMonth, day)
			// Arrivals spread from 08:50 to 09:19; anything after 09:15 is late.
			arrive := 8*time.Hour + 50*time.Minute + time.Duration((n*7+i*13)%30)*time.Minute
			leave := 17*time.Hour + time.Duration((n*11+i*5)%40-20)*time.Minute

			// Chloé forgot to check out on the last working day.
			forgot := i == 2 && day.Equal(lastWorkingDay(today))
			if err := h.replayDay(ctx, emp.ID, day, arrive, leave, !forgot); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) loadRateChangeScenario(ctx context.Context) error {
	today := h.today()
	lastMonth := calendar.StartOfMonth(today.Year(), today.Month()).AddMonths(-1)

	emp, err := h.createScenarioEmployee(ctx, attendance.Employee{
		Code: "EMP010", Name: "Dana Lee", Email: "dana@example.com", Department: "Consulting", Position: "Consultant",
	})
	if err != nil {
		return err
	}

	if err := h.appendScenarioRate(ctx, emp.ID, "20", lastMonth); err != nil {
		return err
	}
	if err := h.appendScenarioRate(ctx, emp.ID, "25", lastMonth.AddDays(14)); err != nil {
		return err
	}

	for _, offset := range []int{9, 19} { // the 10th and the 20th
		if err := h.replayDay(ctx, emp.ID, lastMonth.AddDays(offset), 9*time.Hour, 17*time.Hour, true); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadDefaultRateScenario(ctx context.Context) error {
	today := h.today()

	emp, err := h.createScenarioEmployee(ctx, attendance.Employee{
		Code: "EMP020", Name: "Eli Novak", Email: "eli@example.com", Department: "Operations", Position: "Technician",
	})
	if err != nil {
		return err
	}

	for n := 1; n <= 5; n++ {
		day := today.AddDays(-n)
		if err := h.replayDay(ctx, emp.ID, day, 9*time.Hour, 16*time.Hour+30*time.Minute, true); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadInactiveEmployeeScenario(ctx context.Context) error {
	today := h.today()
	lastMonth := calendar.StartOfMonth(today.Year(), today.Month()).AddMonths(-1)

	active, err := h.createScenarioEmployee(ctx, attendance.Employee{
		Code: "EMP030", Name: "Farah Haddad", Email: "farah@example.com", Department: "Sales", Position: "Account Manager",
	})
	if err != nil {
		return err
	}
	leaver, err := h.createScenarioEmployee(ctx, attendance.Employee{
		Code: "EMP031", Name: "Gus Peters", Email: "gus@example.com", Department: "Sales", Position: "Intern",
	})
	if err != nil {
		return err
	}

	for _, id := range []attendance.EmployeeID{active.ID, leaver.ID} {
		if err := h.appendScenarioRate(ctx, id, "18", lastMonth); err != nil {
			return err
		}
		for n := 0; n < 5; n++ {
			if err := h.replayDay(ctx, id, lastMonth.AddDays(n), 9*time.Hour, 17*time.Hour, true); err != nil {
				return err
			}
		}
	}

	return h.Store.SetEmployeeActive(ctx, leaver.ID, false)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) createScenarioEmployee(ctx context.Context, emp attendance.Employee) (attendance.Employee, error) {
	emp.Active = true
	created, err := h.Store.CreateEmployee(ctx, emp)
	if err != nil {
		return attendance.Employee{}, fmt.Errorf("create %s: %w", emp.Code, err)
	}
	return created, nil
}

func (h *Handler) appendScenarioRate(ctx context.Context, id attendance.EmployeeID, rate string, effective calendar.Date) error {
	_, err := h.Store.AppendRate(ctx, billing.RateRecord{
		EmployeeID:    id,
		Rate:          decimal.RequireFromString(rate),
		EffectiveDate: effective,
		Active:        true,
	})
	return err
}

// replayDay checks in (and optionally out) through the tracker at the given
// offsets from midnight on the organization clock.
func (h *Handler) replayDay(ctx context.Context, id attendance.EmployeeID, day calendar.Date, arrive, leave time.Duration, checkOut bool) error {
	loc := h.Now().Location()
	if _, err := h.Tracker.CheckIn(ctx, id, day, day.At(arrive, loc)); err != nil {
		return fmt.Errorf("check in %d on %s: %w", id, day, err)
	}
	if !checkOut {
		return nil
	}
	if _, err := h.Tracker.CheckOut(ctx, id, day, day.At(leave, loc)); err != nil {
		return fmt.Errorf("check out %d on %s: %w", id, day, err)
	}
	return nil
}

// lastWorkingDay is the most recent weekday before today.
func lastWorkingDay(today calendar.Date) calendar.Date {
	day := today.AddDays(-1)
	for day.IsWeekend() {
		day = day.AddDays(-1)
	}
	return day
}
