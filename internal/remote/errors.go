package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// NetworkError indicates the request never produced an HTTP response
// (connection refused, DNS failure, timeout).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError indicates the authority answered with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// ErrInvalidResponse indicates a 2xx response whose body does not conform to
// the expected shape.
type ErrInvalidResponse struct {
	Op      string
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("%s: invalid response: %v", e.Op, e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// IsTransient reports whether err is a recoverable failure that leaves the
// server state unknown-but-unchanged from the caller's point of view:
// timeouts, connectivity loss and retryable statuses. Caller cancellation is
// not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var st *StatusError
	if errors.As(err, &st) {
		switch {
		case st.StatusCode >= 500:
			return true
		case st.StatusCode == http.StatusRequestTimeout, st.StatusCode == http.StatusTooManyRequests:
			return true
		}
		return false
	}

	return false
}
