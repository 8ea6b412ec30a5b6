// Package registry holds the sets of session identifiers known to be
// completed or abandoned. Membership is additive only: once a session is
// marked it stays marked for the lifetime of the registry.
//
// Several independent trigger paths (explicit completion, back navigation,
// app backgrounding) may race to finalize the same session. All of them
// consult one shared registry, so a late abandonment trigger cannot undo a
// completion that already happened elsewhere.
package registry

import "sync"

// Completions is the read/append view of a completion registry.
type Completions interface {
	IsCompleted(sessionID int64) bool
	MarkCompleted(sessionID int64)
}

// Abandonments is the read/append view of the abandoned sessions. A manager
// whose registry also implements it refuses to start or complete a session
// abandoned earlier.
type Abandonments interface {
	IsAbandoned(sessionID int64) bool
	MarkAbandoned(sessionID int64)
}

// Registry is a concurrency-safe, append-only record of finalized session IDs.
type Registry struct {
	mu        sync.RWMutex
	ids       map[int64]struct{}
	abandoned map[int64]struct{}
}

// New creates an empty, isolated registry.
func New() *Registry {
	return &Registry{
		ids:       make(map[int64]struct{}),
		abandoned: make(map[int64]struct{}),
	}
}

// IsCompleted reports whether sessionID has been marked completed.
func (r *Registry) IsCompleted(sessionID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[sessionID]
	return ok
}

// MarkCompleted records sessionID as completed. Marking twice is a no-op.
func (r *Registry) MarkCompleted(sessionID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[sessionID] = struct{}{}
}

// Len returns the number of completed sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// IsAbandoned reports whether sessionID has been marked abandoned.
func (r *Registry) IsAbandoned(sessionID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.abandoned[sessionID]
	return ok
}

// MarkAbandoned records sessionID as abandoned. Marking twice is a no-op.
func (r *Registry) MarkAbandoned(sessionID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abandoned[sessionID] = struct{}{}
}
