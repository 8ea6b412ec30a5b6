package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/registry"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
)

var errNetwork = &remote.NetworkError{Op: remote.OpAbandonSession, Err: errors.New("connection reset")}

// fakeAuthority counts calls. A non-nil gate blocks calls until it is closed
// or the call's context ends.
type fakeAuthority struct {
	mu           sync.Mutex
	abandonCalls int
	abandonMode  remote.Mode
	penaltyCalls int
	abandonErrs  []error
	penaltyErr   error
	advisory     *remote.PenaltyAdvisory

	abandonGate chan struct{}
	penaltyGate chan struct{}
}

func newFakeAuthority() *fakeAuthority {
	return &fakeAuthority{advisory: &remote.PenaltyAdvisory{
		Warning: "You will lose progress on 1 word",
		AffectedWords: []remote.AffectedWord{
			{Word: "allqu", Translation: "dog", CurrentMastery: 3, WillDegrade: true, NewMastery: 2},
		},
		Consequences: remote.Consequences{Mode: remote.ModePractice, FailurePenalty: 1, AffectedCount: 1},
	}}
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAuthority) AbandonSession(ctx context.Context, id int64) error {
	f.mu.Lock()
	n := f.abandonCalls
	f.abandonCalls++
	f.abandonMode = remote.SessionModeFrom(ctx)
	gate := f.abandonGate
	var err error
	if n < len(f.abandonErrs) {
		err = f.abandonErrs[n]
	}
	f.mu.Unlock()

	if werr := wait(ctx, gate); werr != nil {
		return werr
	}
	return err
}

func (f *fakeAuthority) CheckAbandonmentPenalty(ctx context.Context, id int64, mode remote.Mode) (*remote.PenaltyAdvisory, error) {
	f.mu.Lock()
	f.penaltyCalls++
	gate, adv, err := f.penaltyGate, f.advisory, f.penaltyErr
	f.mu.Unlock()

	if werr := wait(ctx, gate); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	return adv, nil
}

func (f *fakeAuthority) RecordProgress(ctx context.Context, mode remote.Mode, category string) error {
	return nil
}

func (f *fakeAuthority) GetUserProgress(ctx context.Context) (*remote.ProgressSnapshot, error) {
	return &remote.ProgressSnapshot{Level: 1}, nil
}

func (f *fakeAuthority) calls() (abandon, penalty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.abandonCalls, f.penaltyCalls
}

// fakePrompter answers from fixed values and records what it was shown.
type fakePrompter struct {
	mu         sync.Mutex
	confirm    bool
	confirmErr error
	choices    []FailureChoice
	advisories []*remote.PenaltyAdvisory
	generic    []string
	failures   []error

	// gate, when set, blocks confirmations until closed.
	gate chan struct{}
}

func (p *fakePrompter) ConfirmAbandon(ctx context.Context, adv *remote.PenaltyAdvisory) (bool, error) {
	p.mu.Lock()
	p.advisories = append(p.advisories, adv)
	gate := p.gate
	p.mu.Unlock()
	if err := wait(ctx, gate); err != nil {
		return false, err
	}
	return p.confirm, p.confirmErr
}

func (p *fakePrompter) ConfirmGeneric(ctx context.Context, message string) (bool, error) {
	p.mu.Lock()
	p.generic = append(p.generic, message)
	p.mu.Unlock()
	return p.confirm, p.confirmErr
}

func (p *fakePrompter) AbandonFailed(ctx context.Context, err error) (FailureChoice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.failures)
	p.failures = append(p.failures, err)
	if n < len(p.choices) {
		return p.choices[n], nil
	}
	return ChoiceCancel, nil
}

func (p *fakePrompter) prompts() (advisory, generic, failures int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.advisories), len(p.generic), len(p.failures)
}

// eventLog collects published events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

func (l *eventLog) count(kind EventKind) int {
	n := 0
	for _, k := range l.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	m      *Manager
	auth   *fakeAuthority
	prompt *fakePrompter
	reg    *registry.Registry
	events *eventLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		auth:   newFakeAuthority(),
		prompt: &fakePrompter{confirm: true},
		reg:    registry.New(),
		events: &eventLog{},
	}
	f.m = NewManager(f.auth, f.reg, f.prompt, Config{
		AbandonTimeout: time.Second,
		PenaltyTimeout: time.Second,
	}, discardLogger())
	unsub := f.m.Subscribe(f.events.add)
	t.Cleanup(unsub)
	return f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
