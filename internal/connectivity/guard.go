package connectivity

import (
	"context"
	"errors"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
)

// ErrOffline is returned by a guarded authority while the oracle reports
// offline.
var ErrOffline = errors.New("offline")

// GuardedAuthority fails every call without touching the network while its
// oracle is offline. The failure is a remote.NetworkError, so callers treat
// it like any other unreachable server.
type GuardedAuthority struct {
	inner  remote.Authority
	oracle Oracle
}

// Guard wraps a with an offline check against o.
func Guard(a remote.Authority, o Oracle) remote.Authority {
	return &GuardedAuthority{inner: a, oracle: o}
}

func (g *GuardedAuthority) check(op string) error {
	if g.oracle.IsOnline() {
		return nil
	}
	return &remote.NetworkError{Op: op, Err: ErrOffline}
}

func (g *GuardedAuthority) AbandonSession(ctx context.Context, sessionID int64) error {
	if err := g.check(remote.OpAbandonSession); err != nil {
		return err
	}
	return g.inner.AbandonSession(ctx, sessionID)
}

func (g *GuardedAuthority) CheckAbandonmentPenalty(ctx context.Context, sessionID int64, mode remote.Mode) (*remote.PenaltyAdvisory, error) {
	if err := g.check(remote.OpCheckPenalty); err != nil {
		return nil, err
	}
	return g.inner.CheckAbandonmentPenalty(ctx, sessionID, mode)
}

func (g *GuardedAuthority) RecordProgress(ctx context.Context, mode remote.Mode, category string) error {
	if err := g.check(remote.OpRecordProgress); err != nil {
		return err
	}
	return g.inner.RecordProgress(ctx, mode, category)
}

func (g *GuardedAuthority) GetUserProgress(ctx context.Context) (*remote.ProgressSnapshot, error) {
	if err := g.check(remote.OpGetUserProgress); err != nil {
		return nil, err
	}
	return g.inner.GetUserProgress(ctx)
}
