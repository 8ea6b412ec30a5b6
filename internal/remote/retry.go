package remote

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns the retry settings used for read-only calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
	}
}

// RetryAuthority is a decorator that retries transient errors on the
// idempotent read calls with exponential backoff and jitter. AbandonSession
// and RecordProgress pass straight through: their retry is driven by the
// caller (user retry, queue drain) so a duplicate never happens silently.
type RetryAuthority struct {
	inner  Authority
	config RetryConfig
}

// WithRetry wraps an Authority with retry logic for reads.
func WithRetry(a Authority, cfg RetryConfig) Authority {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryAuthority{inner: a, config: cfg}
}

func (r *RetryAuthority) AbandonSession(ctx context.Context, sessionID int64) error {
	return r.inner.AbandonSession(ctx, sessionID)
}

func (r *RetryAuthority) RecordProgress(ctx context.Context, mode Mode, category string) error {
	return r.inner.RecordProgress(ctx, mode, category)
}

func (r *RetryAuthority) CheckAbandonmentPenalty(ctx context.Context, sessionID int64, mode Mode) (*PenaltyAdvisory, error) {
	var adv *PenaltyAdvisory
	err := r.retry(ctx, func() error {
		var err error
		adv, err = r.inner.CheckAbandonmentPenalty(ctx, sessionID, mode)
		return err
	})
	return adv, err
}

func (r *RetryAuthority) GetUserProgress(ctx context.Context) (*ProgressSnapshot, error) {
	var snap *ProgressSnapshot
	err := r.retry(ctx, func() error {
		var err error
		snap, err = r.inner.GetUserProgress(ctx)
		return err
	})
	return snap, err
}

func (r *RetryAuthority) retry(ctx context.Context, call func() error) error {
	var lastErr error
	for attempt := range r.config.MaxAttempts {
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsTransient(err) {
			return err
		}

		// Last attempt: return without sleeping.
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}
	return lastErr
}

// backoff computes the wait duration for the given attempt.
func (r *RetryAuthority) backoff(attempt int) time.Duration {
	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if r.config.MaxWait > 0 && wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// Add ±20% jitter.
	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
