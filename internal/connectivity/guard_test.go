package connectivity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
)

type countingAuthority struct {
	calls int
}

func (c *countingAuthority) AbandonSession(ctx context.Context, id int64) error {
	c.calls++
	return nil
}

func (c *countingAuthority) CheckAbandonmentPenalty(ctx context.Context, id int64, mode remote.Mode) (*remote.PenaltyAdvisory, error) {
	c.calls++
	return &remote.PenaltyAdvisory{}, nil
}

func (c *countingAuthority) RecordProgress(ctx context.Context, mode remote.Mode, category string) error {
	c.calls++
	return nil
}

func (c *countingAuthority) GetUserProgress(ctx context.Context) (*remote.ProgressSnapshot, error) {
	c.calls++
	return &remote.ProgressSnapshot{}, nil
}

func TestGuard_BlocksWhileOffline(t *testing.T) {
	inner := &countingAuthority{}
	oracle := NewStatic(false)
	a := Guard(inner, oracle)
	ctx := context.Background()

	err := a.AbandonSession(ctx, 1)
	require.ErrorIs(t, err, ErrOffline)
	assert.True(t, remote.IsTransient(err))

	var netErr *remote.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, remote.OpAbandonSession, netErr.Op)

	_, err = a.CheckAbandonmentPenalty(ctx, 1, remote.ModePractice)
	assert.ErrorIs(t, err, ErrOffline)
	assert.ErrorIs(t, a.RecordProgress(ctx, remote.ModePractice, ""), ErrOffline)
	_, err = a.GetUserProgress(ctx)
	assert.ErrorIs(t, err, ErrOffline)
	assert.Zero(t, inner.calls)

	oracle.Set(true)
	require.NoError(t, a.AbandonSession(ctx, 1))
	_, err = a.GetUserProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}
