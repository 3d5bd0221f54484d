package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App       App            `mapstructure:",squash"`
	Server    Server         `mapstructure:",squash"`
	Database  Database       `mapstructure:",squash"`
	Redis     Redis          `mapstructure:",squash"`
	Firebase  Firebase       `mapstructure:",squash"`
	GreenAPI  GreenAPI       `mapstructure:",squash"`
	Reminders Reminders      `mapstructure:",squash"`
	Location  *time.Location `mapstructure:"-"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
	Timezone string `mapstructure:"timezone"`
}

type Server struct {
	Port       string `mapstructure:"port"`
	CronSecret string `mapstructure:"cron_secret"`
}

type Database struct {
	URL string `mapstructure:"database_url"`
}

type Redis struct {
	URL string `mapstructure:"redis_url"`
}

type Firebase struct {
	CredentialsPath string `mapstructure:"firebase_credentials_path"`
}

type GreenAPI struct {
	BaseURL string        `mapstructure:"green_api_base_url"`
	Timeout time.Duration `mapstructure:"green_api_timeout"`
}

// Reminders holds the dispatcher and scheduler knobs.
type Reminders struct {
	CountryCode          string        `mapstructure:"reminder_country_code"`
	TrunkPrefix          string        `mapstructure:"reminder_trunk_prefix"`
	MaxConcurrentTenants int           `mapstructure:"reminder_max_concurrent_tenants"`
	SendInterval         time.Duration `mapstructure:"reminder_send_interval"`
	LockTTL              time.Duration `mapstructure:"reminder_lock_ttl"`
	SchedulerEnabled     bool          `mapstructure:"reminder_scheduler_enabled"`
}

func SetDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("TIMEZONE", "Europe/Moscow")
	viper.SetDefault("CRON_SECRET", "")

	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("FIREBASE_CREDENTIALS_PATH", "./firebase-service-account.json")

	viper.SetDefault("GREEN_API_BASE_URL", "https://api.green-api.com")
	viper.SetDefault("GREEN_API_TIMEOUT", "10s")

	viper.SetDefault("REMINDER_COUNTRY_CODE", "7")
	viper.SetDefault("REMINDER_TRUNK_PREFIX", "8")
	viper.SetDefault("REMINDER_MAX_CONCURRENT_TENANTS", 4)
	viper.SetDefault("REMINDER_SEND_INTERVAL", "1s")
	viper.SetDefault("REMINDER_LOCK_TTL", "2m")
	viper.SetDefault("REMINDER_SCHEDULER_ENABLED", false)
}

// NewConfig loads .env (if any), applies defaults and environment overrides.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using system environment")
	}

	SetDefaults()
	// Every key has a default, so AutomaticEnv can resolve all of them.
	viper.AutomaticEnv()

	cfg := &Config{}
	err := viper.Unmarshal(cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.App.Timezone, err)
	}
	cfg.Location = loc

	if cfg.Reminders.MaxConcurrentTenants <= 0 {
		cfg.Reminders.MaxConcurrentTenants = 1
	}

	return cfg, nil
}

// ConfigureLogger sets the logrus formatter and level for a cmd entrypoint.
func ConfigureLogger(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Invalid log level %q, falling back to info", level)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
}
