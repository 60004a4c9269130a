package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taskhive/taskhive/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Access        AccessConfig        `yaml:"access"`
	Billing       BillingConfig       `yaml:"billing"`
	Sessions      SessionConfig       `yaml:"sessions"`
	Audit         AuditConfig         `yaml:"audit"`
	Jobs          JobsConfig          `yaml:"jobs"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL          string        `yaml:"url"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnLifetime time.Duration `yaml:"conn_lifetime"`
}

// RedisConfig holds Redis configuration. Redis is optional: with
// Enabled false the access cache runs in-memory only.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AccessConfig tunes the access resolvers
type AccessConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// BillingConfig tunes billing status derivation
type BillingConfig struct {
	TrialPeriod time.Duration `yaml:"trial_period"`
	GracePeriod time.Duration `yaml:"grace_period"`
}

// SessionConfig tunes session issuance
type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// AuditConfig tunes the audit trail
type AuditConfig struct {
	RetentionDays int  `yaml:"retention_days"`
	StreamEnabled bool `yaml:"stream_enabled"`
}

// JobsConfig holds cron schedules for background jobs
type JobsConfig struct {
	InvitationCleanupSchedule string `yaml:"invitation_cleanup_schedule"`
	AuditRetentionSchedule    string `yaml:"audit_retention_schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel `yaml:"-"`
	LogLevelName   string                 `yaml:"log_level"`
	MetricsEnabled bool                   `yaml:"metrics_enabled"`
}

// Default returns the built-in defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			ConnLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Access: AccessConfig{
			CacheTTL: 5 * time.Minute,
		},
		Billing: BillingConfig{
			TrialPeriod: 14 * 24 * time.Hour,
			GracePeriod: 30 * 24 * time.Hour,
		},
		Sessions: SessionConfig{
			TTL: 7 * 24 * time.Hour,
		},
		Audit: AuditConfig{
			RetentionDays: 90,
			StreamEnabled: true,
		},
		Jobs: JobsConfig{
			InvitationCleanupSchedule: "0 * * * *",
			AuditRetentionSchedule:    "30 3 * * *",
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.InfoLevel,
			LogLevelName:   "info",
			MetricsEnabled: true,
		},
	}
}

// LoadConfig builds configuration in three layers: defaults, then an
// optional YAML file named by TASKHIVE_CONFIG_FILE, then environment
// variables.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("TASKHIVE_CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	cfg.Observability.LogLevel = ParseLogLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("TASKHIVE_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("TASKHIVE_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("TASKHIVE_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("TASKHIVE_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("TASKHIVE_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("TASKHIVE_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.HealthPort = getEnv("TASKHIVE_HEALTH_PORT", cfg.Server.HealthPort)

	cfg.Database.URL = getEnv("TASKHIVE_POSTGRES_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = getEnvInt("TASKHIVE_POSTGRES_MAX_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("TASKHIVE_POSTGRES_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.ConnLifetime = getEnvDuration("TASKHIVE_POSTGRES_CONN_LIFETIME", cfg.Database.ConnLifetime)

	cfg.Redis.Enabled = getEnvBool("TASKHIVE_REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Addr = getEnv("TASKHIVE_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("TASKHIVE_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("TASKHIVE_REDIS_DB", cfg.Redis.DB)

	cfg.Access.CacheTTL = getEnvDuration("TASKHIVE_ACCESS_CACHE_TTL", cfg.Access.CacheTTL)

	cfg.Billing.TrialPeriod = getEnvDuration("TASKHIVE_BILLING_TRIAL_PERIOD", cfg.Billing.TrialPeriod)
	cfg.Billing.GracePeriod = getEnvDuration("TASKHIVE_BILLING_GRACE_PERIOD", cfg.Billing.GracePeriod)

	cfg.Sessions.TTL = getEnvDuration("TASKHIVE_SESSION_TTL", cfg.Sessions.TTL)

	cfg.Audit.RetentionDays = getEnvInt("TASKHIVE_AUDIT_RETENTION_DAYS", cfg.Audit.RetentionDays)
	cfg.Audit.StreamEnabled = getEnvBool("TASKHIVE_AUDIT_STREAM_ENABLED", cfg.Audit.StreamEnabled)

	cfg.Jobs.InvitationCleanupSchedule = getEnv("TASKHIVE_INVITATION_CLEANUP_SCHEDULE", cfg.Jobs.InvitationCleanupSchedule)
	cfg.Jobs.AuditRetentionSchedule = getEnv("TASKHIVE_AUDIT_RETENTION_SCHEDULE", cfg.Jobs.AuditRetentionSchedule)

	cfg.Observability.LogLevelName = getEnv("TASKHIVE_LOG_LEVEL", cfg.Observability.LogLevelName)
	cfg.Observability.MetricsEnabled = getEnvBool("TASKHIVE_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}
	if c.Access.CacheTTL < 0 {
		return fmt.Errorf("access cache TTL must not be negative")
	}
	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit retention must be at least one day")
	}
	return nil
}

// ParseLogLevel parses a log level string
func ParseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
