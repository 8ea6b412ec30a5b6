package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/config"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/connectivity"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/logging"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/offline"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/registry"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/session"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/store"
)

// deps holds everything a command needs, wired from the resolved config.
type deps struct {
	cfg     config.Config
	logger  *slog.Logger
	backend store.Backend

	client    *remote.Client
	authority remote.Authority

	oracle  connectivity.Oracle
	monitor *connectivity.Monitor // nil when offline is forced

	registry *registry.Registry
	queue    *offline.Queue
	snaps    *offline.Snapshots
	syncer   *offline.Syncer
	recorder *offline.Recorder
}

// loadConfig resolves the config: defaults, file, environment, then flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Storage.Path = p
	}
	if u, _ := cmd.Flags().GetString("api-url"); u != "" {
		cfg.API.BaseURL = u
	}
	if off, _ := cmd.Flags().GetBool("offline"); off {
		cfg.Connectivity.Offline = true
	}
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		cfg.Logging.Level = l
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(os.Stderr, level, cfg.Logging.Format), nil
}

// openDeps opens the store and builds the authority stack. The caller must
// call close.
func openDeps(cmd *cobra.Command) (*deps, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	backend, err := store.OpenBackend(cfg.Storage.Backend, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Debug("store opened", "backend", cfg.Storage.Backend, "path", dbPath)

	d := &deps{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		registry: registry.New(),
	}

	d.client = remote.NewClient(remote.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: cfg.API.Timeout.Std(),
	})
	d.authority = remote.WithJournal(
		remote.WithRetry(d.client, remote.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			InitialWait: cfg.Retry.InitialWait.Std(),
			MaxWait:     cfg.Retry.MaxWait.Std(),
			Multiplier:  cfg.Retry.Multiplier,
		}),
		backend.Journal(), logger)

	if cfg.Connectivity.Offline {
		d.oracle = connectivity.NewStatic(false)
		d.authority = connectivity.Guard(d.authority, d.oracle)
	} else {
		d.monitor = connectivity.NewMonitor(d.client, connectivity.MonitorConfig{
			Interval:         cfg.Connectivity.ProbeInterval.Std(),
			Timeout:          cfg.Connectivity.ProbeTimeout.Std(),
			FailureThreshold: cfg.Connectivity.FailureThreshold,
		}, logger)
		d.oracle = d.monitor
	}

	d.queue = offline.NewQueue(backend.KV())
	d.snaps = offline.NewSnapshots(backend.KV())
	d.syncer = offline.NewSyncer(d.queue, d.snaps, d.authority, d.oracle, logger)
	d.recorder = offline.NewRecorder(d.authority, d.oracle, d.queue, d.snaps, logger)

	if err := d.seedRegistry(cmd.Context()); err != nil {
		backend.Close()
		return nil, err
	}
	return d, nil
}

func (d *deps) close() {
	if err := d.backend.Close(); err != nil {
		d.logger.Warn("close store", "error", err)
	}
}

// probe checks the server once so the oracle reflects the current state.
func (d *deps) probe(ctx context.Context) bool {
	if d.monitor == nil {
		return false
	}
	return d.monitor.Probe(ctx)
}

// seedRegistry replays the journal into the registry, so sessions finalized
// in earlier runs stay finalized.
func (d *deps) seedRegistry(ctx context.Context) error {
	events, err := d.backend.Journal().SessionEvents(ctx, store.QueryOpts{})
	if err != nil {
		return fmt.Errorf("load session history: %w", err)
	}
	for _, e := range events {
		switch e.Action {
		case session.EventCompleted.String():
			d.registry.MarkCompleted(e.SessionID)
		case session.EventAbandoned.String():
			d.registry.MarkAbandoned(e.SessionID)
		}
	}
	return nil
}

// newManager builds a session manager whose lifecycle events are journaled.
func (d *deps) newManager(prompter session.Prompter) *session.Manager {
	m := session.NewManager(d.authority, d.registry, prompter, session.Config{
		AbandonTimeout: d.cfg.Session.AbandonTimeout.Std(),
		PenaltyTimeout: d.cfg.Session.PenaltyTimeout.Std(),
	}, d.logger)
	m.Subscribe(journalEvents(d.backend.Journal(), d.logger))
	return m
}

// journalEvents returns a bus handler that appends lifecycle events to the
// journal.
func journalEvents(j store.Journal, logger *slog.Logger) func(session.Event) {
	return func(ev session.Event) {
		data := store.SessionEventData{
			SessionID: ev.SessionID,
			Action:    ev.Kind.String(),
			Mode:      string(ev.Mode),
		}
		if ev.Kind == session.EventExitResolved {
			data.Detail = ev.Decision.String()
		}
		if ev.Err != nil {
			data.Detail = ev.Err.Error()
		}
		if err := j.AppendSessionEvent(context.Background(), data); err != nil {
			logger.Warn("failed to journal session event", "action", data.Action, "error", err)
		}
	}
}
