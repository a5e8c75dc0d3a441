/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance and billing server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Initialize tracing
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Start the open day monitor
  6. Configure HTTP router
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides ATTENDANCE_PORT)
  -db      SQLite database path (overrides ATTENDANCE_DB_PATH)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  See config/config.go. A .env file in the working directory is read
  first if present.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the monitor, flush spans, close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/attendance.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/store/sqlite"
	"github.com/warp/attendance-engine/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	defaultRate, err := cfg.DefaultRate()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Tracing
	shutdownTracing, err := telemetry.Setup(context.Background(), "attendance-engine", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		log.Printf("[Server] Tracing disabled: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	auth := api.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL)
	handler := api.NewHandler(store, cfg.Schedule(), defaultRate, auth)
	if defaultRate == nil {
		log.Println("[Server] No default hourly rate; employees without rate history cannot be billed")
	}

	monitor := api.NewOpenDayMonitor(handler)
	monitor.Start()

	// Create router
	router := api.NewRouter(handler, cfg.CORSOrigins)

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("[Server] Starting on http://localhost%s (schedule %s-%s, late after %v)",
			cfg.Addr(), cfg.WorkStart, cfg.WorkEnd, cfg.LateThreshold)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[Server] Forced to shutdown: %v", err)
	}
	monitor.Stop()
	if err := shutdownTracing(ctx); err != nil {
		log.Printf("[Server] Failed to flush spans: %v", err)
	}

	log.Println("[Server] Stopped")
}
