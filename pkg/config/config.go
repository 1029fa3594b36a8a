package config

import (
	"fmt"
	"time"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
)

// Config holds runtime configuration for the LunchBuddy bot.
type Config struct {
	AppEnv string `mapstructure:"-"`

	Bot        BotConfig        `mapstructure:"bot" validate:"required"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Lunch      LunchConfig      `mapstructure:"lunch" validate:"required"`
	Submission SubmissionConfig `mapstructure:"submission" validate:"required"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

// BotConfig configures the Telegram connection.
type BotConfig struct {
	Token   string        `mapstructure:"token" validate:"required"`
	Mode    string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout time.Duration `mapstructure:"timeout"`
	// OperatorChatID receives submission failure reports.
	OperatorChatID int64 `mapstructure:"operator_chat_id"`
	// RateLimit caps updates handled per user within RateLimitWindow.
	// Zero disables the limiter.
	RateLimit       int           `mapstructure:"rate_limit"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
}

// ServerConfig configures the ops HTTP server (health, metrics).
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslMode,
	)
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// LunchConfig configures the registration schedule. Days and TriggerTime are
// the raw values from the config file; the typed fields are filled by
// finalize after validation.
type LunchConfig struct {
	Days         []string      `mapstructure:"days" validate:"required,min=1"`
	TriggerTime  string        `mapstructure:"trigger_time" validate:"required"`
	ReplyTimeout time.Duration `mapstructure:"reply_timeout" validate:"required"`

	Weekdays      []time.Weekday `mapstructure:"-"`
	TriggerHour   int            `mapstructure:"-"`
	TriggerMinute int            `mapstructure:"-"`
}

// finalize parses weekday names and the HH:MM trigger time into typed values.
// Malformed values are rejected here, before any scheduling logic sees them.
func (c *LunchConfig) finalize() error {
	days, err := domain.ParseWeekdays(c.Days)
	if err != nil {
		return fmt.Errorf("lunch.days: %w", err)
	}
	c.Weekdays = days

	var hour, minute int
	if _, err := fmt.Sscanf(c.TriggerTime, "%d:%d", &hour, &minute); err != nil {
		return fmt.Errorf("lunch.trigger_time %q: expected HH:MM", c.TriggerTime)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("lunch.trigger_time %q: out of range", c.TriggerTime)
	}
	c.TriggerHour = hour
	c.TriggerMinute = minute

	if c.ReplyTimeout <= 0 {
		return fmt.Errorf("lunch.reply_timeout must be positive, got %s", c.ReplyTimeout)
	}

	return nil
}

// IsLunchWeekday reports whether the given weekday is a configured lunch day.
func (c *LunchConfig) IsLunchWeekday(day time.Weekday) bool {
	for _, d := range c.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// SubmissionConfig configures the external submission agent endpoint.
type SubmissionConfig struct {
	AgentURL       string        `mapstructure:"agent_url" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoggerConfig configures slog output.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}
