// Package offline keeps progress recording working without connectivity.
// Entries that could not reach the authority are queued durably and replayed
// in order once the device is back online, while a local projection of the
// progress snapshot gives immediate feedback in the meantime.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/store"
)

// KV keys owned by this package.
const (
	KeyPendingProgress  = "pending_progress"
	KeyProgressSnapshot = "progress_snapshot"
	KeyLastSyncAt       = "last_sync_at"
)

// Entry is one progress recording that has not reached the authority.
// Entries are immutable once queued.
type Entry struct {
	Mode      remote.Mode `json:"mode"`
	Category  string      `json:"category,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Queue is the durable, append-only list of pending entries. It is only ever
// consumed from the front, by a drain that replayed every consumed entry.
type Queue struct {
	kv store.KV

	mu sync.Mutex
}

// NewQueue creates a queue persisted in kv.
func NewQueue(kv store.KV) *Queue {
	return &Queue{kv: kv}
}

// Enqueue appends e. It never touches the network.
func (q *Queue) Enqueue(ctx context.Context, e Entry) error {
	if _, err := remote.ParseMode(string(e.Mode)); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, e)
	return q.save(ctx, entries)
}

// Entries returns the pending entries in append order.
func (q *Queue) Entries(ctx context.Context) ([]Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

// Len returns the number of pending entries.
func (q *Queue) Len(ctx context.Context) (int, error) {
	entries, err := q.Entries(ctx)
	return len(entries), err
}

// Clear drops every pending entry.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.kv.Remove(ctx, KeyPendingProgress); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}

// discard removes the first n entries, keeping anything appended after the
// caller read them.
func (q *Queue) discard(ctx context.Context, n int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load(ctx)
	if err != nil {
		return err
	}
	if n > len(entries) {
		n = len(entries)
	}
	rest := entries[n:]
	if len(rest) == 0 {
		if err := q.kv.Remove(ctx, KeyPendingProgress); err != nil {
			return fmt.Errorf("clear queue: %w", err)
		}
		return nil
	}
	return q.save(ctx, rest)
}

func (q *Queue) load(ctx context.Context) ([]Entry, error) {
	raw, err := q.kv.Get(ctx, KeyPendingProgress)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return entries, nil
}

func (q *Queue) save(ctx context.Context, entries []Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := q.kv.Set(ctx, KeyPendingProgress, raw); err != nil {
		return fmt.Errorf("save queue: %w", err)
	}
	return nil
}
