/*
scheduler.go - Open day monitor

PURPOSE:
  Periodically looks for past days that were checked in but never checked
  out. Such days stay out of billing until someone fixes them (an admin
  deletes the record, or the employee's manager follows up), so they
  should be noticed early.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Scans the last Lookback days, excluding today (today's open records
    are people still at work)
  - Only reports; it never writes a check-out. The system has no way to
    know when someone actually left.

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Lookback:      Days to scan (default: 7)
  - Enabled:       Whether the monitor is active (default: true)

USAGE:
  monitor := NewOpenDayMonitor(handler)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - admin.go: GET /api/admin/attendance/open (on-demand scan)
*/
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
)

// OpenDayReport is the result of one scan.
type OpenDayReport struct {
	CheckedAt time.Time
	Records   []attendance.Record
}

// OpenDayMonitor logs days missing a check-out.
type OpenDayMonitor struct {
	Handler       *Handler
	CheckInterval time.Duration
	Lookback      int
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	last *OpenDayReport
}

// NewOpenDayMonitor creates a new monitor.
func NewOpenDayMonitor(handler *Handler) *OpenDayMonitor {
	return &OpenDayMonitor{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Lookback:      7,
		Enabled:       true,
	}
}

// Start begins the monitor. Starting a running monitor is a no-op; a
// stopped monitor can be started again.
func (m *OpenDayMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled {
		log.Println("[Monitor] Disabled, not starting")
		return
	}
	if m.ticker != nil {
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.stop = make(chan struct{})
	m.wg.Add(1)

	go m.run(m.ticker.C, m.stop)

	log.Printf("[Monitor] Started with check interval: %v", m.CheckInterval)
}

// Stop stops the monitor and waits for an in-flight scan to finish. Safe
// to call more than once.
func (m *OpenDayMonitor) Stop() {
	m.mu.Lock()
	ticker, stop := m.ticker, m.stop
	m.ticker, m.stop = nil, nil
	m.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
		close(stop)
		m.wg.Wait()
		log.Println("[Monitor] Stopped")
	}
}

// Last returns the most recent scan, or nil before the first one.
func (m *OpenDayMonitor) Last() *OpenDayReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// run owns tick and stop for its lifetime; Stop clears the fields on the
// monitor while a scan may still be running.
func (m *OpenDayMonitor) run(tick <-chan time.Time, stop <-chan struct{}) {
	defer m.wg.Done()

	// Run immediately on start
	m.Check(context.Background())

	for {
		select {
		case <-tick:
			m.Check(context.Background())
		case <-stop:
			return
		}
	}
}

// Check scans once, logs what it found and keeps the result.
func (m *OpenDayMonitor) Check(ctx context.Context) (*OpenDayReport, error) {
	now := m.Handler.Now()
	records, err := m.Handler.FindOpenDays(ctx, calendar.DateOf(now), m.Lookback)
	if err != nil {
		log.Printf("[Monitor] Error scanning open days: %v", err)
		return nil, err
	}

	for _, rec := range records {
		log.Printf("[Monitor] Employee %d checked in on %s but never checked out", rec.EmployeeID, rec.Date)
	}
	if len(records) > 0 {
		log.Printf("[Monitor] %d open day(s) in the last %d days", len(records), m.Lookback)
	}

	report := &OpenDayReport{CheckedAt: now, Records: records}
	m.mu.Lock()
	m.last = report
	m.mu.Unlock()
	return report, nil
}

// FindOpenDays returns records in the lookback days before today that have
// a check-in but no check-out, oldest first.
func (h *Handler) FindOpenDays(ctx context.Context, today calendar.Date, lookback int) ([]attendance.Record, error) {
	if lookback < 1 {
		return nil, fmt.Errorf("lookback must be positive, got %d", lookback)
	}

	var open []attendance.Record
	for day := today.AddDays(-lookback); day.Before(today); day = day.AddDays(1) {
		records, err := h.Store.ListRecordsByDate(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("failed to list records for %s: %w", day, err)
		}
		for _, rec := range records {
			if rec.State() == attendance.StateCheckedIn {
				open = append(open, rec)
			}
		}
	}
	return open, nil
}

// GetOpenDays scans on demand (?days=7).
func (h *Handler) GetOpenDays(w http.ResponseWriter, r *http.Request) {
	lookback := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 366 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 366", err)
			return
		}
		lookback = n
	}

	now := h.Now()
	records, err := h.FindOpenDays(r.Context(), calendar.DateOf(now), lookback)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to scan open days", err)
		return
	}

	writeJSON(w, http.StatusOK, OpenDaysDTO{
		CheckedAt: now.Format(time.RFC3339),
		Records:   h.recordDTOsWithNames(r, records),
	})
}
