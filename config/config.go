/*
Package config loads server configuration from the environment.

SOURCES (later wins):
  1. Defaults in struct tags
  2. .env file in the working directory, if present
  3. Process environment
  4. Command-line flags (applied by cmd/server)

DEFAULT RATE:
  ATTENDANCE_DEFAULT_HOURLY_RATE is the fallback for days before an
  employee's first rate record. Set it to "none" to run without a default;
  billing then fails with ErrRateNotConfigured instead of billing at zero.
*/
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
)

// Config holds all configuration for the server.
type Config struct {
	Port   int    `env:"ATTENDANCE_PORT" envDefault:"8080"`
	DBPath string `env:"ATTENDANCE_DB_PATH" envDefault:"attendance.db"`

	WorkStart           attendance.TimeOfDay `env:"ATTENDANCE_WORK_START" envDefault:"09:00"`
	WorkEnd             attendance.TimeOfDay `env:"ATTENDANCE_WORK_END" envDefault:"17:00"`
	LateThreshold       time.Duration        `env:"ATTENDANCE_LATE_THRESHOLD" envDefault:"15m"`
	EarlyLeaveThreshold time.Duration        `env:"ATTENDANCE_EARLY_LEAVE_THRESHOLD" envDefault:"30m"`

	// DefaultHourlyRate is a decimal string, or "none".
	DefaultHourlyRate string `env:"ATTENDANCE_DEFAULT_HOURLY_RATE" envDefault:"25.00"`

	JWTSecret   string        `env:"ATTENDANCE_JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL    time.Duration `env:"ATTENDANCE_TOKEN_TTL" envDefault:"12h"`
	CORSOrigins []string      `env:"ATTENDANCE_CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	OTelEndpoint string `env:"ATTENDANCE_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"ATTENDANCE_OTEL_ENABLED" envDefault:"true"`
}

// ErrInvalidConfig is returned when a value parses but is unusable.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[Config] Ignoring .env: %v", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if err := c.Schedule().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.DefaultRate(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: ATTENDANCE_JWT_SECRET must not be empty", ErrInvalidConfig)
	}
	return nil
}

// Schedule builds the organization schedule.
func (c *Config) Schedule() attendance.Schedule {
	return attendance.Schedule{
		Start:               c.WorkStart,
		LateThreshold:       c.LateThreshold,
		End:                 c.WorkEnd,
		EarlyLeaveThreshold: c.EarlyLeaveThreshold,
	}
}

// DefaultRate parses the system default rate. Nil means none configured.
func (c *Config) DefaultRate() (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.DefaultHourlyRate)
	if raw == "" || strings.EqualFold(raw, "none") {
		return nil, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: ATTENDANCE_DEFAULT_HOURLY_RATE %q: %v", ErrInvalidConfig, raw, err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("%w: ATTENDANCE_DEFAULT_HOURLY_RATE must not be negative", ErrInvalidConfig)
	}
	return &rate, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// TracingEnabled reports whether spans should be exported.
func (c *Config) TracingEnabled() bool {
	return c.OTelEnabled && c.OTelEndpoint != ""
}
