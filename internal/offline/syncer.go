package offline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/connectivity"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
)

var (
	// ErrOffline is returned by Drain when the oracle reports no connectivity.
	ErrOffline = errors.New("offline")

	// ErrSyncInProgress is returned by TrySync while another drain runs.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// DrainResult describes a successful drain.
type DrainResult struct {
	// Replayed is the number of entries sent to the authority.
	Replayed int

	// Refreshed is true when the authoritative snapshot replaced the local one.
	Refreshed bool
}

// Syncer replays the pending queue against the authority and reconciles the
// local snapshot.
type Syncer struct {
	queue     *Queue
	snapshots *Snapshots
	authority remote.Authority
	oracle    connectivity.Oracle
	logger    *slog.Logger
	now       func() time.Time

	running atomic.Bool
}

// NewSyncer creates a Syncer.
func NewSyncer(q *Queue, snaps *Snapshots, authority remote.Authority, oracle connectivity.Oracle, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		queue:     q,
		snapshots: snaps,
		authority: authority,
		oracle:    oracle,
		logger:    logger,
		now:       time.Now,
	}
}

// Drain replays every pending entry in append order. The first failure
// aborts the drain and leaves the queue exactly as it was. After a full
// replay the replayed entries are removed, the sync time is recorded, and
// the authority's snapshot replaces the local projection. A failed refetch
// is logged and keeps the projection.
func (s *Syncer) Drain(ctx context.Context) (DrainResult, error) {
	var res DrainResult
	if !s.oracle.IsOnline() {
		return res, ErrOffline
	}

	entries, err := s.queue.Entries(ctx)
	if err != nil {
		return res, err
	}
	if len(entries) == 0 {
		return res, nil
	}

	for i, e := range entries {
		if err := s.authority.RecordProgress(ctx, e.Mode, e.Category); err != nil {
			return res, fmt.Errorf("replay entry %d of %d: %w", i+1, len(entries), err)
		}
	}
	res.Replayed = len(entries)

	if err := s.queue.discard(ctx, len(entries)); err != nil {
		return res, err
	}
	if err := s.snapshots.setLastSync(ctx, s.now()); err != nil {
		s.logger.Warn("failed to record sync time", "error", err)
	}

	snap, err := s.authority.GetUserProgress(ctx)
	if err != nil {
		s.logger.Warn("progress refetch failed, keeping local projection", "error", err)
		return res, nil
	}
	if err := s.snapshots.Replace(ctx, snap); err != nil {
		s.logger.Warn("failed to store refreshed progress", "error", err)
		return res, nil
	}
	res.Refreshed = true
	return res, nil
}

// TrySync runs Drain unless one is already running. Failures are logged;
// the error is returned for callers that want it.
func (s *Syncer) TrySync(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer s.running.Store(false)

	res, err := s.Drain(ctx)
	switch {
	case errors.Is(err, ErrOffline):
		s.logger.Debug("sync skipped, offline")
	case err != nil:
		s.logger.Warn("sync failed", "error", err)
	case res.Replayed > 0:
		s.logger.Info("sync complete", "replayed", res.Replayed, "refreshed", res.Refreshed)
	}
	return err
}

// Run syncs once immediately and again on every transition to online, until
// ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	trigger := make(chan struct{}, 1)
	unsubscribe := s.oracle.OnChange(func(online bool) {
		if !online {
			return
		}
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	_ = s.TrySync(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-trigger:
			_ = s.TrySync(ctx)
		}
	}
}
