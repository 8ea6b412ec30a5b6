package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPenalty = `{
	"warning": "You will lose progress on 1 word",
	"affected_words": [
		{"word": "allqu", "translation": "dog", "current_mastery": 3, "will_degrade": true, "new_mastery": 2},
		{"word": "misi", "translation": "cat", "current_mastery": 0, "will_degrade": false, "new_mastery": 0}
	],
	"consequences": {"mode": "practice", "failure_penalty": 1, "affected_count": 1}
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL + "/", Token: "secret", Timeout: 2 * time.Second})
}

func TestClient_AbandonSession(t *testing.T) {
	var gotPath, gotAuth, gotReqID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.AbandonSession(context.Background(), 42))
	assert.Equal(t, "POST /sessions/42/abandon", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.NotEmpty(t, gotReqID)
}

func TestClient_RequestIDFromContext(t *testing.T) {
	var gotReqID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReqID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := WithRequestID(context.Background(), "req-123")
	require.NoError(t, c.AbandonSession(ctx, 1))
	assert.Equal(t, "req-123", gotReqID)
}

func TestClient_AbandonSessionForwardsMode(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.AbandonSession(WithSessionMode(context.Background(), ModeDetection), 3))
	assert.Equal(t, "mode=detection", gotQuery)

	require.NoError(t, c.AbandonSession(context.Background(), 3))
	assert.Empty(t, gotQuery)
}

func TestClient_CheckPenalty(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Path + "?" + r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(validPenalty))
	})

	adv, err := c.CheckAbandonmentPenalty(context.Background(), 9, ModePractice)
	require.NoError(t, err)
	assert.Equal(t, "/sessions/9/penalty?mode=practice", gotQuery)
	assert.Equal(t, "You will lose progress on 1 word", adv.Warning)
	require.Len(t, adv.AffectedWords, 2)
	assert.Equal(t, ModePractice, adv.Consequences.Mode)
	assert.Equal(t, 1, adv.Consequences.AffectedCount)

	degrading := adv.Degrading()
	require.Len(t, degrading, 1)
	assert.Equal(t, "allqu", degrading[0].Word)
	assert.Equal(t, 2, degrading[0].NewMastery)
}

func TestClient_CheckPenaltyRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing consequences", `{"warning": "x", "affected_words": []}`},
		{"bad mode", `{"warning": "x", "affected_words": [], "consequences": {"mode": "race", "failure_penalty": 1, "affected_count": 0}}`},
		{"negative mastery", `{"warning": "x", "affected_words": [{"word": "a", "current_mastery": -1, "will_degrade": false}], "consequences": {"mode": "practice", "failure_penalty": 1, "affected_count": 0}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.CheckAbandonmentPenalty(context.Background(), 1, ModePractice)
			var inv *ErrInvalidResponse
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, OpCheckPenalty, inv.Op)
			assert.False(t, IsTransient(err))
		})
	}
}

func TestClient_RecordProgress(t *testing.T) {
	var got recordProgressRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, c.RecordProgress(context.Background(), ModeDetection, "animals"))
	assert.Equal(t, ModeDetection, got.Mode)
	assert.Equal(t, "animals", got.Category)
}

func TestClient_GetUserProgress(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"level": 2, "total_words": 12, "practice_words": 12, "streak": 3,
			"words_to_next_level": 20, "stats_by_category": null,
			"activity_by_day": [{"date": "2026-10-14", "count": 12}]}`))
	})

	snap, err := c.GetUserProgress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Level)
	assert.Equal(t, 12, snap.TotalWords)
	assert.NotNil(t, snap.StatsByCategory)
	require.Len(t, snap.ActivityByDay, 1)
	assert.Equal(t, "2026-10-14", snap.ActivityByDay[0].Date)
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusRequestTimeout, true},
		{http.StatusNotFound, false},
		{http.StatusConflict, false},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})
			err := c.AbandonSession(context.Background(), 1)
			var st *StatusError
			require.ErrorAs(t, err, &st)
			assert.Equal(t, tt.status, st.StatusCode)
			assert.Equal(t, "nope", st.Body)
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(ClientConfig{BaseURL: url, Timeout: time.Second})
	err := c.AbandonSession(context.Background(), 1)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, OpAbandonSession, netErr.Op)
	assert.True(t, IsTransient(err))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.AbandonSession(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, IsTransient(err))
}

func TestClient_Health(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status": "ok", "version": "v1.4.0"}`))
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "v1.4.0", h.Version)
}
