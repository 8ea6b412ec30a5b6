package remote

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey   contextKey = "remote_request_id"
	sessionModeKey contextKey = "remote_session_mode"
)

// WithRequestID attaches a request ID to the context. The HTTP client sends
// it as X-Request-ID so journal rows can be matched to server logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom extracts the request ID from the context, or returns "".
func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSessionMode attaches the session mode to the context. AbandonSession
// forwards it so the authority can apply the matching penalty rule.
func WithSessionMode(ctx context.Context, mode Mode) context.Context {
	return context.WithValue(ctx, sessionModeKey, mode)
}

// SessionModeFrom extracts the session mode from the context, or returns "".
func SessionModeFrom(ctx context.Context) Mode {
	if v, ok := ctx.Value(sessionModeKey).(Mode); ok {
		return v
	}
	return ""
}

// ensureRequestID returns ctx carrying a request ID, generating one if absent.
func ensureRequestID(ctx context.Context) (context.Context, string) {
	if id := RequestIDFrom(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}
