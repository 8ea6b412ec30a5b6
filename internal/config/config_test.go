package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"YACHAY_CONFIG", "YACHAY_API_URL", "YACHAY_API_TOKEN", "YACHAY_DB",
		"YACHAY_STORAGE_BACKEND", "YACHAY_LOG_LEVEL", "YACHAY_LOG_FORMAT",
		"YACHAY_OFFLINE", "YACHAY_HTTP_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[api]
base_url = "https://yachay.example.com/api"
token = "abc"
timeout = "4s"

[storage]
backend = "bolt"

[session]
abandon_timeout = "1m30s"

[retry]
max_attempts = 5

[logging]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://yachay.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "abc", cfg.API.Token)
	assert.Equal(t, 4*time.Second, cfg.API.Timeout.Std())
	assert.Equal(t, "bolt", cfg.Storage.Backend)
	assert.Equal(t, 90*time.Second, cfg.Session.AbandonTimeout.Std())
	assert.Equal(t, 5*time.Second, cfg.Session.PenaltyTimeout.Std(), "unset keys keep defaults")
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[api]\nbase_url = \"https://file.example.com\"\n")
	t.Setenv("YACHAY_API_URL", "https://env.example.com")
	t.Setenv("YACHAY_OFFLINE", "true")
	t.Setenv("YACHAY_HTTP_TIMEOUT", "250ms")
	t.Setenv("YACHAY_DB", "/tmp/y.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.API.BaseURL)
	assert.True(t, cfg.Connectivity.Offline)
	assert.Equal(t, 250*time.Millisecond, cfg.API.Timeout.Std())
	assert.Equal(t, "/tmp/y.db", cfg.Storage.Path)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[logging]\nlevel = \"warn\"\n")
	t.Setenv("YACHAY_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("malformed toml", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(writeConfig(t, "[api\n"))
		assert.Error(t, err)
	})
	t.Run("bad duration", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(writeConfig(t, "[api]\ntimeout = \"soon\"\n"))
		assert.Error(t, err)
	})
	t.Run("bad offline env", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("YACHAY_OFFLINE", "maybe")
		_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		assert.ErrorContains(t, err, "YACHAY_OFFLINE")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://x" }, "api.base_url"},
		{"bad backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
		{"zero timeout", func(c *Config) { c.Session.PenaltyTimeout = 0 }, "session.penalty_timeout"},
		{"no attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"shrinking backoff", func(c *Config) { c.Retry.Multiplier = 0.5 }, "retry.multiplier"},
		{"threshold", func(c *Config) { c.Connectivity.FailureThreshold = 0 }, "connectivity.failure_threshold"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestDBPath(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Storage.Path = filepath.Join(dir, "nested", "y.db")

	p, err := cfg.DBPath()
	require.NoError(t, err)
	assert.Equal(t, cfg.Storage.Path, p)
	assert.DirExists(t, filepath.Join(dir, "nested"))
}
