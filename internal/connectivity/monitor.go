package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
)

// MonitorConfig configures the health-probing Oracle.
type MonitorConfig struct {
	// Interval between probes. Default: 15s.
	Interval time.Duration

	// Timeout bounds one probe. Default: 3s.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failed probes before an
	// online monitor reports offline. Default: 2.
	FailureThreshold int

	// SupportedMajor is the API major version this client speaks ("v1").
	// A server reporting a different valid major is treated as unreachable.
	SupportedMajor string
}

// DefaultMonitorConfig returns the default probing settings.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:         15 * time.Second,
		Timeout:          3 * time.Second,
		FailureThreshold: 2,
		SupportedMajor:   "v1",
	}
}

// Monitor is an Oracle that polls the authority's health endpoint. It starts
// offline and goes online after the first healthy probe.
type Monitor struct {
	checker remote.HealthChecker
	cfg     MonitorConfig
	logger  *slog.Logger

	mu       sync.Mutex
	online   bool
	failures int
	subs     listeners
}

// NewMonitor creates a Monitor. Zero config fields take their defaults.
func NewMonitor(checker remote.HealthChecker, cfg MonitorConfig, logger *slog.Logger) *Monitor {
	def := DefaultMonitorConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SupportedMajor == "" {
		cfg.SupportedMajor = def.SupportedMajor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{checker: checker, cfg: cfg, logger: logger}
}

func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Monitor) OnChange(fn func(online bool)) func() {
	return m.subs.subscribe(fn)
}

// Run probes immediately and then every Interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.Probe(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// Probe runs one health check, updates the state and notifies listeners on a
// transition. Returns the state after the probe.
func (m *Monitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	healthy := m.check(ctx)

	m.mu.Lock()
	was := m.online
	if healthy {
		m.failures = 0
		m.online = true
	} else {
		m.failures++
		// An offline monitor stays offline; an online one needs a run of
		// failures before flipping.
		if m.failures >= m.cfg.FailureThreshold {
			m.online = false
		}
	}
	now := m.online
	m.mu.Unlock()

	if now != was {
		m.logger.Info("connectivity changed", "online", now)
		m.subs.notify(now)
	}
	return now
}

func (m *Monitor) check(ctx context.Context) bool {
	h, err := m.checker.Health(ctx)
	if err != nil {
		m.logger.Debug("health probe failed", "error", err)
		return false
	}
	if h.Status != "ok" {
		m.logger.Debug("authority unhealthy", "status", h.Status)
		return false
	}
	return m.compatible(h.Version)
}

// compatible reports whether the server's API version can be spoken.
// Missing or non-semver versions are accepted.
func (m *Monitor) compatible(version string) bool {
	if version == "" || !semver.IsValid(version) {
		return true
	}
	if semver.Major(version) != m.cfg.SupportedMajor {
		m.logger.Warn("authority API version not supported",
			"server_version", version,
			"supported_major", m.cfg.SupportedMajor,
		)
		return false
	}
	return true
}
