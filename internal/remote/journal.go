package remote

import (
	"context"
	"log/slog"
	"time"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/store"
)

// JournalAuthority is a decorator that records every authority call in the
// event journal.
type JournalAuthority struct {
	inner   Authority
	journal store.Journal
	logger  *slog.Logger
}

// WithJournal wraps an Authority with call journaling.
func WithJournal(a Authority, j store.Journal, logger *slog.Logger) Authority {
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalAuthority{inner: a, journal: j, logger: logger}
}

func (j *JournalAuthority) AbandonSession(ctx context.Context, sessionID int64) error {
	ctx, done := j.begin(ctx, OpAbandonSession)
	err := j.inner.AbandonSession(ctx, sessionID)
	done(err)
	return err
}

func (j *JournalAuthority) CheckAbandonmentPenalty(ctx context.Context, sessionID int64, mode Mode) (*PenaltyAdvisory, error) {
	ctx, done := j.begin(ctx, OpCheckPenalty)
	adv, err := j.inner.CheckAbandonmentPenalty(ctx, sessionID, mode)
	done(err)
	return adv, err
}

func (j *JournalAuthority) RecordProgress(ctx context.Context, mode Mode, category string) error {
	ctx, done := j.begin(ctx, OpRecordProgress)
	err := j.inner.RecordProgress(ctx, mode, category)
	done(err)
	return err
}

func (j *JournalAuthority) GetUserProgress(ctx context.Context) (*ProgressSnapshot, error) {
	ctx, done := j.begin(ctx, OpGetUserProgress)
	snap, err := j.inner.GetUserProgress(ctx)
	done(err)
	return snap, err
}

// begin stamps ctx with a request ID and returns a completion func that
// journals the outcome. Journal failures are logged, never returned.
func (j *JournalAuthority) begin(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, requestID := ensureRequestID(ctx)
	start := time.Now()
	return ctx, func(err error) {
		data := store.RemoteCallData{
			Operation: op,
			RequestID: requestID,
			Success:   err == nil,
			LatencyMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			data.ErrorMessage = err.Error()
		}
		// Journal even if the caller's ctx was cancelled mid-call.
		if logErr := j.journal.AppendRemoteCall(context.WithoutCancel(ctx), data); logErr != nil {
			j.logger.Warn("failed to journal remote call", "operation", op, "error", logErr)
		}
	}
}
