package store

import (
	"context"
	"fmt"
	"time"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// KV is a durable key-value store. Get returns nil, nil for a missing key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// QueryOpts configures journal queries with filtering and pagination.
type QueryOpts struct {
	Limit int   // max results (0 = unlimited)
	After int64 // sequence > After
}

// SessionEventData captures a session lifecycle transition.
type SessionEventData struct {
	SessionID int64
	Action    string // start, complete, abandon, abandon_failed, force_reset
	Mode      string
	Detail    string
}

// SessionEvent is a journaled SessionEventData.
type SessionEvent struct {
	Sequence  int64
	Timestamp time.Time
	SessionEventData
}

// RemoteCallData captures a single call against the remote authority.
type RemoteCallData struct {
	Operation    string
	RequestID    string
	Success      bool
	LatencyMs    int64
	ErrorMessage string
}

// RemoteCall is a journaled RemoteCallData.
type RemoteCall struct {
	Sequence  int64
	Timestamp time.Time
	RemoteCallData
}

// Journal provides append and read access to the event journal.
// Events are never updated or deleted.
type Journal interface {
	AppendSessionEvent(ctx context.Context, data SessionEventData) error
	AppendRemoteCall(ctx context.Context, data RemoteCallData) error

	// SessionEvents returns session events in sequence order.
	SessionEvents(ctx context.Context, opts QueryOpts) ([]SessionEvent, error)

	// RemoteCalls returns remote call records in sequence order.
	RemoteCalls(ctx context.Context, opts QueryOpts) ([]RemoteCall, error)
}

// Backend bundles the KV and Journal views of one database.
type Backend interface {
	KV() KV
	Journal() Journal
	Close() error
}

// OpenBackend opens the backend of the given kind at path.
func OpenBackend(kind, path string) (Backend, error) {
	switch kind {
	case "", BackendSQLite:
		s, err := Open(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendBolt:
		b, err := OpenBolt(path)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
