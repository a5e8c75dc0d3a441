package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, attendance.DefaultSchedule(), cfg.Schedule())
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.TracingEnabled())

	rate, err := cfg.DefaultRate()
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.True(t, rate.Equal(decimal.NewFromInt(25)))
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("ATTENDANCE_PORT", "9090")
	t.Setenv("ATTENDANCE_WORK_START", "08:30")
	t.Setenv("ATTENDANCE_WORK_END", "16:30")
	t.Setenv("ATTENDANCE_LATE_THRESHOLD", "5m")
	t.Setenv("ATTENDANCE_DEFAULT_HOURLY_RATE", "31.75")
	t.Setenv("ATTENDANCE_CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("ATTENDANCE_OTEL_ENDPOINT", "http://localhost:4318")

	cfg, err := Parse()
	require.NoError(t, err)

	sched := cfg.Schedule()
	assert.Equal(t, attendance.NewTimeOfDay(8, 30), sched.Start)
	assert.Equal(t, attendance.NewTimeOfDay(16, 30), sched.End)
	assert.Equal(t, 5*time.Minute, sched.LateThreshold)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.TracingEnabled())

	rate, err := cfg.DefaultRate()
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("31.75")))
}

func TestParse_NoDefaultRate(t *testing.T) {
	t.Setenv("ATTENDANCE_DEFAULT_HOURLY_RATE", "none")

	cfg, err := Parse()
	require.NoError(t, err)

	rate, err := cfg.DefaultRate()
	require.NoError(t, err)
	assert.Nil(t, rate)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"bad rate":         {"ATTENDANCE_DEFAULT_HOURLY_RATE", "abc"},
		"negative rate":    {"ATTENDANCE_DEFAULT_HOURLY_RATE", "-1"},
		"end before start": {"ATTENDANCE_WORK_END", "08:00"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Parse()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParse_BadTimeOfDay(t *testing.T) {
	t.Setenv("ATTENDANCE_WORK_START", "9am")
	_, err := Parse()
	assert.Error(t, err)
}

func TestParse_TracingDisabled(t *testing.T) {
	t.Setenv("ATTENDANCE_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("ATTENDANCE_OTEL_ENABLED", "false")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.False(t, cfg.TracingEnabled())
}
