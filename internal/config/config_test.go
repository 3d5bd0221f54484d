package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	viper.Reset()

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "Europe/Moscow", cfg.Location.String())
	assert.Equal(t, 10*time.Second, cfg.GreenAPI.Timeout)
	assert.Equal(t, "7", cfg.Reminders.CountryCode)
	assert.Equal(t, "8", cfg.Reminders.TrunkPrefix)
	assert.Equal(t, 4, cfg.Reminders.MaxConcurrentTenants)
	assert.Equal(t, time.Second, cfg.Reminders.SendInterval)
	assert.False(t, cfg.Reminders.SchedulerEnabled)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("PORT", "9000")
	t.Setenv("TIMEZONE", "Asia/Almaty")
	t.Setenv("REMINDER_SEND_INTERVAL", "250ms")
	t.Setenv("REMINDER_MAX_CONCURRENT_TENANTS", "0")
	t.Setenv("REMINDER_SCHEDULER_ENABLED", "true")
	t.Setenv("CRON_SECRET", "s3cret")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "Asia/Almaty", cfg.Location.String())
	assert.Equal(t, 250*time.Millisecond, cfg.Reminders.SendInterval)
	assert.Equal(t, 1, cfg.Reminders.MaxConcurrentTenants)
	assert.True(t, cfg.Reminders.SchedulerEnabled)
	assert.Equal(t, "s3cret", cfg.Server.CronSecret)
}

func TestNewConfig_InvalidTimezone(t *testing.T) {
	viper.Reset()
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := NewConfig()
	assert.ErrorContains(t, err, "invalid TIMEZONE")
}
