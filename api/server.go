/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. Telemetry:  One server span per request
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /healthz              Liveness (public)
  /api/attendance/*     Self-service check-in/out (token required)
  /api/billing          Caller's billing report (token required)
  /api/admin/*          Roster, rates, overrides, reports, scenarios
                        (admin token required)

AUTHENTICATION:
  Bearer JWT (HS256). Claims carry employee_id and role; see auth.go.

SEE ALSO:
  - handlers.go: Handler implementations
  - admin.go: Admin handlers
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/attendance-engine/telemetry"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(telemetry.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Healthz)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(h.Auth.AuthRequired)

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/checkin", h.CheckIn)
			r.Post("/checkout", h.CheckOut)
			r.Get("/status", h.GetStatus)
			r.Get("/history", h.GetHistory)
		})

		r.Get("/billing", h.GetBilling)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", h.ListEmployees)
				r.Post("/", h.CreateEmployee)
				r.Get("/{id}", h.GetEmployee)
				r.Put("/{id}", h.UpdateEmployee)
				r.Post("/{id}/deactivate", h.DeactivateEmployee)
				r.Post("/{id}/activate", h.ActivateEmployee)
				r.Get("/{id}/rates", h.ListRates)
				r.Post("/{id}/rates", h.AppendRate)
				r.Get("/{id}/billing", h.GetEmployeeBilling)
			})

			r.Route("/attendance", func(r chi.Router) {
				r.Get("/", h.ListAttendanceByDate)
				r.Delete("/", h.PurgeAttendance)
				r.Get("/open", h.GetOpenDays)
				r.Delete("/{employeeID}/{date}", h.DeleteAttendance)
			})

			r.Get("/reports", h.GetActivityReport)

			// Scenario routes
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
				r.Post("/reset", h.ResetDatabase)
			})
		})
	})

	return r
}
