package offline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/connectivity"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
)

// Recorder records progress online when it can and queues it otherwise.
type Recorder struct {
	authority remote.Authority
	oracle    connectivity.Oracle
	queue     *Queue
	snapshots *Snapshots
	logger    *slog.Logger
	now       func() time.Time
}

// NewRecorder creates a Recorder.
func NewRecorder(authority remote.Authority, oracle connectivity.Oracle, q *Queue, snaps *Snapshots, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		authority: authority,
		oracle:    oracle,
		queue:     q,
		snapshots: snaps,
		logger:    logger,
		now:       time.Now,
	}
}

// Record sends one progress entry to the authority. When offline, when older
// entries are still queued, or when the call fails transiently, the entry is
// queued and projected onto the local snapshot instead, and queued is true.
// Permanent rejections are returned without queueing so they cannot block
// later replays.
func (r *Recorder) Record(ctx context.Context, mode remote.Mode, category string) (queued bool, err error) {
	if _, err := remote.ParseMode(string(mode)); err != nil {
		return false, err
	}

	// The authority must see entries in creation order.
	pending, err := r.queue.Len(ctx)
	if err != nil {
		return false, err
	}

	if pending == 0 && r.oracle.IsOnline() {
		err := r.authority.RecordProgress(ctx, mode, category)
		if err == nil {
			return false, nil
		}
		if !remote.IsTransient(err) {
			return false, fmt.Errorf("record progress: %w", err)
		}
		r.logger.Warn("record failed, queueing", "mode", mode, "category", category, "error", err)
	}

	now := r.now()
	if err := r.queue.Enqueue(ctx, Entry{Mode: mode, Category: category, CreatedAt: now}); err != nil {
		return false, err
	}
	if _, err := r.snapshots.Apply(ctx, mode, category, now); err != nil {
		// The entry is safely queued; the projection is only a preview.
		r.logger.Warn("local progress projection failed", "error", err)
	}
	return true, nil
}
