package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
)

func TestRequestAbandonment_IdleAllows(t *testing.T) {
	f := newFixture(t)

	d, err := f.m.RequestAbandonment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AllowNavigation, d)
	adv, gen, _ := f.prompt.prompts()
	assert.Zero(t, adv+gen)
}

func TestRequestAbandonment_CompletedElsewhereAllowsSilently(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Start(41, remote.ModePractice))
	f.reg.MarkCompleted(41)

	d, err := f.m.RequestAbandonment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AllowNavigation, d)

	adv, gen, _ := f.prompt.prompts()
	assert.Zero(t, adv+gen)
	abandon, penalty := f.auth.calls()
	assert.Zero(t, abandon+penalty)
	assert.Equal(t, StateIdle, f.m.Snapshot().State)
}

func TestRequestAbandonment_ConfirmWithAdvisory(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Start(42, remote.ModePractice))

	d, err := f.m.RequestAbandonment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Abandoned, d)

	require.Len(t, f.prompt.advisories, 1)
	assert.Equal(t, "allqu", f.prompt.advisories[0].Degrading()[0].Word)
	assert.Empty(t, f.prompt.generic)
	assert.Equal(t, 1, f.events.count(EventAbandoned))
	assert.False(t, f.m.Snapshot().Exiting)
}

func TestRequestAbandonment_GenericFallback(t *testing.T) {
	f := newFixture(t)
	f.auth.penaltyErr = errors.New("boom")
	require.True(t, f.m.Start(43, remote.ModePractice))

	d, err := f.m.RequestAbandonment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Abandoned, d)
	assert.Equal(t, []string{GenericAbandonMessage}, f.prompt.generic)
	assert.Empty(t, f.prompt.advisories)
}

func TestRequestAbandonment_Declined(t *testing.T) {
	f := newFixture(t)
	f.prompt.confirm = false
	require.True(t, f.m.Start(44, remote.ModePractice))

	d, err := f.m.RequestAbandonment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stay, d)

	abandon, _ := f.auth.calls()
	assert.Zero(t, abandon)
	assert.Equal(t, StateActive, f.m.Snapshot().State)
}

func TestRequestAbandonment_FailureChoices(t *testing.T) {
	tests := []struct {
		name         string
		errs         []error
		choices      []FailureChoice
		want         Decision
		wantState    State
		wantAbandons int
	}{
		{
			name:         "retry until success",
			errs:         []error{errNetwork, errNetwork},
			choices:      []FailureChoice{ChoiceRetry, ChoiceRetry},
			want:         Abandoned,
			wantState:    StateIdle,
			wantAbandons: 3,
		},
		{
			name:         "force reset",
			errs:         []error{errNetwork},
			choices:      []FailureChoice{ChoiceForceReset},
			want:         ForceReset,
			wantState:    StateIdle,
			wantAbandons: 1,
		},
		{
			name:         "cancel keeps session",
			errs:         []error{errNetwork},
			choices:      []FailureChoice{ChoiceCancel},
			want:         Stay,
			wantState:    StateActive,
			wantAbandons: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.auth.abandonErrs = tt.errs
			f.prompt.choices = tt.choices
			require.True(t, f.m.Start(45, remote.ModePractice))

			d, err := f.m.RequestAbandonment(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
			assert.Equal(t, tt.wantState, f.m.Snapshot().State)

			abandon, _ := f.auth.calls()
			assert.Equal(t, tt.wantAbandons, abandon)
			_, _, failures := f.prompt.prompts()
			assert.Equal(t, len(tt.errs), failures)
		})
	}
}

func TestRequestAbandonment_PromptError(t *testing.T) {
	f := newFixture(t)
	f.prompt.confirmErr = errors.New("terminal closed")
	require.True(t, f.m.Start(46, remote.ModePractice))

	d, err := f.m.RequestAbandonment(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Stay, d)
	assert.Equal(t, StateActive, f.m.Snapshot().State)
}

func TestHandleBack_BlocksAndPrompts(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Start(51, remote.ModePractice))

	assert.True(t, f.m.HandleBack(context.Background()))
	f.m.Wait()

	adv, _, _ := f.prompt.prompts()
	assert.Equal(t, 1, adv)
	assert.Equal(t, []EventKind{EventStarted, EventAbandoned, EventExitResolved}, f.events.kinds())
	assert.Equal(t, Abandoned, f.events.events[2].Decision)
}

func TestHandleBack_AllowsWhenCompleted(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Start(52, remote.ModePractice))
	f.reg.MarkCompleted(52)

	assert.False(t, f.m.HandleBack(context.Background()))
	f.m.Wait()

	adv, gen, _ := f.prompt.prompts()
	assert.Zero(t, adv+gen)
	assert.Zero(t, f.events.count(EventExitResolved))
}

func TestHandleBack_IdleAllows(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.m.HandleBack(context.Background()))
}

func TestHandleBack_SecondPressWhilePromptOpen(t *testing.T) {
	f := newFixture(t)
	f.prompt.gate = make(chan struct{})
	require.True(t, f.m.Start(53, remote.ModePractice))

	require.True(t, f.m.HandleBack(context.Background()))
	require.Eventually(t, func() bool {
		adv, _, _ := f.prompt.prompts()
		return adv == 1
	}, time.Second, time.Millisecond)

	assert.True(t, f.m.HandleBack(context.Background()), "navigation stays blocked")
	d, err := f.m.RequestAbandonment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stay, d)

	close(f.prompt.gate)
	f.m.Wait()

	adv, _, _ := f.prompt.prompts()
	assert.Equal(t, 1, adv, "no second prompt")
	assert.Equal(t, 1, f.events.count(EventExitResolved))
	assert.False(t, f.m.Snapshot().Exiting)
}
