package offline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/store"
)

var errUnavailable = &remote.StatusError{Op: remote.OpRecordProgress, StatusCode: 503}

func openKV(t *testing.T) store.KV {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "offline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st.KV()
}

type recorded struct {
	Mode     remote.Mode
	Category string
}

// fakeAuthority records RecordProgress calls in order. Categories in failOn
// fail with the mapped error.
type fakeAuthority struct {
	mu          sync.Mutex
	recorded    []recorded
	failOn      map[string]error
	progress    *remote.ProgressSnapshot
	progressErr error
	progressN   int
	attempts    int

	// gate, when set, blocks RecordProgress until closed.
	gate chan struct{}
}

func (f *fakeAuthority) AbandonSession(ctx context.Context, id int64) error { return nil }

func (f *fakeAuthority) CheckAbandonmentPenalty(ctx context.Context, id int64, mode remote.Mode) (*remote.PenaltyAdvisory, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAuthority) RecordProgress(ctx context.Context, mode remote.Mode, category string) error {
	f.mu.Lock()
	f.attempts++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[category]; err != nil {
		return err
	}
	f.recorded = append(f.recorded, recorded{mode, category})
	return nil
}

func (f *fakeAuthority) GetUserProgress(ctx context.Context) (*remote.ProgressSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progressN++
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	return f.progress, nil
}

func (f *fakeAuthority) setFail(category string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == nil {
		f.failOn = map[string]error{}
	}
	if err == nil {
		delete(f.failOn, category)
		return
	}
	f.failOn[category] = err
}

func (f *fakeAuthority) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeAuthority) calls() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.recorded...)
}

func day(d, hour int) time.Time {
	return time.Date(2026, time.October, d, hour, 0, 0, 0, time.UTC)
}
