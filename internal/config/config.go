package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/segyhp/dues-engine/internal/billing"
	"github.com/segyhp/dues-engine/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Billing   BillingConfig
	Health    HealthConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type SchedulerConfig struct {
	RepairSpec   string
	ReminderSpec string
	Timezone     string
	JobTimeout   time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// BillingConfig carries the tunable windows and thresholds of the engine.
type BillingConfig struct {
	WindowDaily       int
	WindowMonthly     int
	WindowQuarterly   int
	WindowYearly      int
	WindowFallback    int
	GapMonthly        int
	GapQuarterly      int
	GapSemiAnnual     int
	GapYearly         int
	RevenueCacheTTL   time.Duration
	RecentPaymentsMax int
}

type HealthConfig struct {
	Timeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")

	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DATABASE_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SCHEDULER_REPAIR_SPEC", "0 0 1 * * *")
	v.SetDefault("SCHEDULER_REMINDER_SPEC", "0 0 9 * * *")
	v.SetDefault("SCHEDULER_TIMEZONE", "Asia/Jakarta")
	v.SetDefault("SCHEDULER_JOB_TIMEOUT", "10m")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REMINDER_WINDOW_DAILY", billing.DefaultReminderWindows[domain.FrequencyDaily])
	v.SetDefault("REMINDER_WINDOW_MONTHLY", billing.DefaultReminderWindows[domain.FrequencyMonthly])
	v.SetDefault("REMINDER_WINDOW_QUARTERLY", billing.DefaultReminderWindows[domain.FrequencyQuarterly])
	v.SetDefault("REMINDER_WINDOW_YEARLY", billing.DefaultReminderWindows[domain.FrequencyYearly])
	v.SetDefault("REMINDER_WINDOW_FALLBACK", billing.DefaultFallbackWindow)
	v.SetDefault("REPAIR_GAP_MONTHLY", billing.DefaultMinCycleGaps[domain.FrequencyMonthly])
	v.SetDefault("REPAIR_GAP_QUARTERLY", billing.DefaultMinCycleGaps[domain.FrequencyQuarterly])
	v.SetDefault("REPAIR_GAP_SEMI_ANNUAL", billing.DefaultMinCycleGaps[domain.FrequencySemiAnnual])
	v.SetDefault("REPAIR_GAP_YEARLY", billing.DefaultMinCycleGaps[domain.FrequencyYearly])
	v.SetDefault("REVENUE_CACHE_TTL", "10m")
	v.SetDefault("RECENT_PAYMENTS_MAX", 100)

	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Populate the process environment from .env when present
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = v.ReadInConfig()

	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper
// instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("SERVER_PORT"),
			Host:            v.GetString("SERVER_HOST"),
			Env:             v.GetString("ENV"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DATABASE_DRIVER")),
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
			AutoMigrate:     v.GetBool("DATABASE_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			URL:      v.GetString("REDIS_URL"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Scheduler: SchedulerConfig{
			RepairSpec:   v.GetString("SCHEDULER_REPAIR_SPEC"),
			ReminderSpec: v.GetString("SCHEDULER_REMINDER_SPEC"),
			Timezone:     v.GetString("SCHEDULER_TIMEZONE"),
			JobTimeout:   v.GetDuration("SCHEDULER_JOB_TIMEOUT"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
		Billing: BillingConfig{
			WindowDaily:       v.GetInt("REMINDER_WINDOW_DAILY"),
			WindowMonthly:     v.GetInt("REMINDER_WINDOW_MONTHLY"),
			WindowQuarterly:   v.GetInt("REMINDER_WINDOW_QUARTERLY"),
			WindowYearly:      v.GetInt("REMINDER_WINDOW_YEARLY"),
			WindowFallback:    v.GetInt("REMINDER_WINDOW_FALLBACK"),
			GapMonthly:        v.GetInt("REPAIR_GAP_MONTHLY"),
			GapQuarterly:      v.GetInt("REPAIR_GAP_QUARTERLY"),
			GapSemiAnnual:     v.GetInt("REPAIR_GAP_SEMI_ANNUAL"),
			GapYearly:         v.GetInt("REPAIR_GAP_YEARLY"),
			RevenueCacheTTL:   v.GetDuration("REVENUE_CACHE_TTL"),
			RecentPaymentsMax: v.GetInt("RECENT_PAYMENTS_MAX"),
		},
		Health: HealthConfig{
			Timeout: v.GetDuration("HEALTH_CHECK_TIMEOUT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or pgx, got %q", c.Database.Driver)
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text")
	}

	windows := map[string]int{
		"REMINDER_WINDOW_DAILY":     c.Billing.WindowDaily,
		"REMINDER_WINDOW_MONTHLY":   c.Billing.WindowMonthly,
		"REMINDER_WINDOW_QUARTERLY": c.Billing.WindowQuarterly,
		"REMINDER_WINDOW_YEARLY":    c.Billing.WindowYearly,
		"REMINDER_WINDOW_FALLBACK":  c.Billing.WindowFallback,
	}
	for key, days := range windows {
		if days < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}

	gaps := map[string]int{
		"REPAIR_GAP_MONTHLY":     c.Billing.GapMonthly,
		"REPAIR_GAP_QUARTERLY":   c.Billing.GapQuarterly,
		"REPAIR_GAP_SEMI_ANNUAL": c.Billing.GapSemiAnnual,
		"REPAIR_GAP_YEARLY":      c.Billing.GapYearly,
	}
	for key, days := range gaps {
		if days <= 0 {
			return fmt.Errorf("%s must be greater than 0", key)
		}
	}

	if c.Billing.RecentPaymentsMax <= 0 {
		return fmt.Errorf("RECENT_PAYMENTS_MAX must be greater than 0")
	}

	// Validate scheduler specs
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Scheduler.RepairSpec); err != nil {
		return fmt.Errorf("SCHEDULER_REPAIR_SPEC must be a valid cron spec: %w", err)
	}
	if _, err := parser.Parse(c.Scheduler.ReminderSpec); err != nil {
		return fmt.Errorf("SCHEDULER_REMINDER_SPEC must be a valid cron spec: %w", err)
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid IANA zone: %w", err)
	}

	if c.Scheduler.JobTimeout <= 0 {
		return fmt.Errorf("SCHEDULER_JOB_TIMEOUT must be a positive duration")
	}

	if c.Health.Timeout <= 0 {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a positive duration")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// Location returns the business timezone used to decide "today".
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Policy builds the classifier and repair policy from the billing settings.
func (c *Config) Policy() billing.Policy {
	p := billing.DefaultPolicy()
	p.ReminderWindows[domain.FrequencyDaily] = c.Billing.WindowDaily
	p.ReminderWindows[domain.FrequencyMonthly] = c.Billing.WindowMonthly
	p.ReminderWindows[domain.FrequencyQuarterly] = c.Billing.WindowQuarterly
	p.ReminderWindows[domain.FrequencyYearly] = c.Billing.WindowYearly
	p.FallbackWindow = c.Billing.WindowFallback

	p.MinCycleGaps[domain.FrequencyMonthly] = c.Billing.GapMonthly
	p.MinCycleGaps[domain.FrequencyQuarterly] = c.Billing.GapQuarterly
	p.MinCycleGaps[domain.FrequencySemiAnnual] = c.Billing.GapSemiAnnual
	p.MinCycleGaps[domain.FrequencyYearly] = c.Billing.GapYearly
	return p
}

// NewLogger builds the process logger from the logging settings.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if c.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetReportCaller(c.IsDevelopment())
	return logger
}
