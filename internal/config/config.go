// Package config loads yachay settings: built-in defaults, then an optional
// TOML file, then YACHAY_* environment variables. Command-line flags are
// applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/logging"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/store"
)

// DefaultAPIURL points at the local development authority (yachay serve-dev).
const DefaultAPIURL = "http://127.0.0.1:8787"

// Config holds every yachay setting.
type Config struct {
	API          APIConfig          `toml:"api"`
	Storage      StorageConfig      `toml:"storage"`
	Session      SessionConfig      `toml:"session"`
	Connectivity ConnectivityConfig `toml:"connectivity"`
	Retry        RetryConfig        `toml:"retry"`
	Logging      LoggingConfig      `toml:"logging"`
	DevServer    DevServerConfig    `toml:"dev_server"`
}

// APIConfig locates the remote session authority.
type APIConfig struct {
	BaseURL string   `toml:"base_url"`
	Token   string   `toml:"token"`
	Timeout Duration `toml:"timeout"` // Per HTTP request. Default: 10s.
}

// StorageConfig selects the local database.
type StorageConfig struct {
	// Path of the database file. Empty uses the XDG data directory.
	Path string `toml:"path"`

	// Backend is "sqlite" (default) or "bolt".
	Backend string `toml:"backend"`
}

// SessionConfig bounds the session manager's remote calls.
type SessionConfig struct {
	AbandonTimeout Duration `toml:"abandon_timeout"`
	PenaltyTimeout Duration `toml:"penalty_timeout"`
}

// ConnectivityConfig configures how reachability is decided.
type ConnectivityConfig struct {
	// Offline forces offline mode without probing.
	Offline          bool     `toml:"offline"`
	ProbeInterval    Duration `toml:"probe_interval"`
	ProbeTimeout     Duration `toml:"probe_timeout"`
	FailureThreshold int      `toml:"failure_threshold"`
}

// RetryConfig applies to read-only authority calls.
type RetryConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	InitialWait Duration `toml:"initial_wait"`
	MaxWait     Duration `toml:"max_wait"`
	Multiplier  float64  `toml:"multiplier"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DevServerConfig configures yachay serve-dev.
type DevServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns a Config with defaults for every field.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: DefaultAPIURL,
			Timeout: Duration(10 * time.Second),
		},
		Storage: StorageConfig{
			Backend: store.BackendSQLite,
		},
		Session: SessionConfig{
			AbandonTimeout: Duration(10 * time.Second),
			PenaltyTimeout: Duration(5 * time.Second),
		},
		Connectivity: ConnectivityConfig{
			ProbeInterval:    Duration(15 * time.Second),
			ProbeTimeout:     Duration(3 * time.Second),
			FailureThreshold: 2,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: Duration(500 * time.Millisecond),
			MaxWait:     Duration(5 * time.Second),
			Multiplier:  2.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
		DevServer: DevServerConfig{
			Addr: "127.0.0.1:8787",
		},
	}
}

// Path resolves the config file location in priority order:
// 1. YACHAY_CONFIG environment variable
// 2. $XDG_CONFIG_HOME/yachay/config.toml
// 3. ~/.config/yachay/config.toml
func Path() (string, error) {
	if p := os.Getenv("YACHAY_CONFIG"); p != "" {
		return p, nil
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "yachay", "config.toml"), nil
}

// Load builds the Config from defaults, the TOML file at path (Path() when
// empty; a missing file is not an error) and the environment.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return toml.Unmarshal(data, out)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("YACHAY_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("YACHAY_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("YACHAY_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("YACHAY_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("YACHAY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("YACHAY_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("YACHAY_OFFLINE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("YACHAY_OFFLINE: %w", err)
		}
		c.Connectivity.Offline = b
	}
	if v := os.Getenv("YACHAY_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("YACHAY_HTTP_TIMEOUT: %w", err)
		}
		c.API.Timeout = Duration(d)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil {
			return fmt.Errorf("api.base_url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("api.base_url: scheme must be http or https, got %q", u.Scheme)
		}
	}
	switch c.Storage.Backend {
	case store.BackendSQLite, store.BackendBolt:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}

	positive := map[string]Duration{
		"api.timeout":                 c.API.Timeout,
		"session.abandon_timeout":     c.Session.AbandonTimeout,
		"session.penalty_timeout":     c.Session.PenaltyTimeout,
		"connectivity.probe_interval": c.Connectivity.ProbeInterval,
		"connectivity.probe_timeout":  c.Connectivity.ProbeTimeout,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("%s: must be positive, got %s", name, d)
		}
	}
	if c.Connectivity.FailureThreshold < 1 {
		return fmt.Errorf("connectivity.failure_threshold: must be at least 1")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts: must be at least 1")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier: must be at least 1")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}
	return nil
}

// DBPath returns the configured database path, falling back to the XDG
// default. The parent directory is created.
func (c Config) DBPath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, store.EnsureDir(c.Storage.Path)
	}
	return store.DefaultDBPath()
}

// Duration is a time.Duration written as a Go duration string ("1m30s") in TOML.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
