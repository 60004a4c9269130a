package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/pkg/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TASKHIVE_POSTGRES_URL", "postgres://localhost/taskhive_test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Access.CacheTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.Billing.TrialPeriod)
	assert.Equal(t, 7*24*time.Hour, cfg.Sessions.TTL)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TASKHIVE_POSTGRES_URL", "postgres://localhost/taskhive_test")
	t.Setenv("TASKHIVE_PORT", "9000")
	t.Setenv("TASKHIVE_REDIS_ENABLED", "true")
	t.Setenv("TASKHIVE_REDIS_ADDR", "redis:6379")
	t.Setenv("TASKHIVE_ACCESS_CACHE_TTL", "30s")
	t.Setenv("TASKHIVE_AUDIT_RETENTION_DAYS", "14")
	t.Setenv("TASKHIVE_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Access.CacheTTL)
	assert.Equal(t, 14, cfg.Audit.RetentionDays)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "8888"
database:
  url: postgres://yaml-host/taskhive
  max_open_conns: 50
audit:
  retention_days: 30
observability:
  log_level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("TASKHIVE_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Server.Port)
	assert.Equal(t, "postgres://yaml-host/taskhive", cfg.Database.URL)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30, cfg.Audit.RetentionDays)
	assert.Equal(t, observability.WarnLevel, cfg.Observability.LogLevel)
	// Defaults survive where the file is silent.
	assert.Equal(t, "9090", cfg.Server.HealthPort)
}

func TestLoadConfigEnvBeatsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "8888"
database:
  url: postgres://yaml-host/taskhive
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("TASKHIVE_CONFIG_FILE", path)
	t.Setenv("TASKHIVE_PORT", "7777")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "7777", cfg.Server.Port)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("TASKHIVE_CONFIG_FILE", "/nonexistent/config.yaml")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port is required",
		},
		{
			name:    "port collision",
			mutate:  func(c *Config) { c.Server.HealthPort = c.Server.Port },
			wantErr: "must be different",
		},
		{
			name:    "missing postgres URL",
			mutate:  func(c *Config) { c.Database.URL = "" },
			wantErr: "postgres URL is required",
		},
		{
			name: "redis enabled without addr",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.Addr = ""
			},
			wantErr: "redis addr is required",
		},
		{
			name:    "zero retention",
			mutate:  func(c *Config) { c.Audit.RetentionDays = 0 },
			wantErr: "audit retention",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Database.URL = "postgres://localhost/taskhive"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, ParseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, ParseLogLevel("WARNING"))
	assert.Equal(t, observability.ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, observability.InfoLevel, ParseLogLevel("bogus"))
}
