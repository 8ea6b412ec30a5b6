package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Operation names, used in errors and the call journal.
const (
	OpAbandonSession  = "abandon_session"
	OpCheckPenalty    = "check_abandonment_penalty"
	OpRecordProgress  = "record_progress"
	OpGetUserProgress = "get_user_progress"
	OpHealth          = "health"
)

// maxErrorBody caps how much of a failed response body is kept in StatusError.
const maxErrorBody = 512

// ClientConfig configures the HTTP authority client.
type ClientConfig struct {
	BaseURL string
	Token   string

	// Timeout bounds a single HTTP exchange. Default: 10s.
	Timeout time.Duration

	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
}

// Client talks to the remote session authority over HTTP/JSON.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates an authority client.
func NewClient(cfg ClientConfig) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    hc,
	}
}

type recordProgressRequest struct {
	Mode     Mode   `json:"mode"`
	Category string `json:"category,omitempty"`
}

func (c *Client) AbandonSession(ctx context.Context, sessionID int64) error {
	path := "/sessions/" + strconv.FormatInt(sessionID, 10) + "/abandon"
	if mode := SessionModeFrom(ctx); mode != "" {
		path += "?mode=" + url.QueryEscape(string(mode))
	}
	_, err := c.do(ctx, OpAbandonSession, http.MethodPost, path, nil)
	return err
}

func (c *Client) CheckAbandonmentPenalty(ctx context.Context, sessionID int64, mode Mode) (*PenaltyAdvisory, error) {
	path := "/sessions/" + strconv.FormatInt(sessionID, 10) + "/penalty?mode=" + url.QueryEscape(string(mode))
	raw, err := c.do(ctx, OpCheckPenalty, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if err := validateResponse(OpCheckPenalty, schemaPenalty, raw); err != nil {
		return nil, err
	}
	var adv PenaltyAdvisory
	if err := json.Unmarshal(raw, &adv); err != nil {
		return nil, &ErrInvalidResponse{Op: OpCheckPenalty, Content: raw, Err: err}
	}
	return &adv, nil
}

func (c *Client) RecordProgress(ctx context.Context, mode Mode, category string) error {
	_, err := c.do(ctx, OpRecordProgress, http.MethodPost, "/progress", recordProgressRequest{
		Mode:     mode,
		Category: category,
	})
	return err
}

func (c *Client) GetUserProgress(ctx context.Context) (*ProgressSnapshot, error) {
	raw, err := c.do(ctx, OpGetUserProgress, http.MethodGet, "/progress", nil)
	if err != nil {
		return nil, err
	}
	if err := validateResponse(OpGetUserProgress, schemaProgress, raw); err != nil {
		return nil, err
	}
	var snap ProgressSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, &ErrInvalidResponse{Op: OpGetUserProgress, Content: raw, Err: err}
	}
	if snap.StatsByCategory == nil {
		snap.StatsByCategory = map[string]int{}
	}
	return &snap, nil
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	raw, err := c.do(ctx, OpHealth, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	var h Health
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, &ErrInvalidResponse{Op: OpHealth, Content: raw, Err: err}
	}
	return &h, nil
}

// do performs one JSON exchange and returns the raw 2xx body.
func (c *Client) do(ctx context.Context, op, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	ctx, requestID := ensureRequestID(ctx)
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: msg}
	}
	return data, nil
}
