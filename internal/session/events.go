package session

import (
	"sync"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
)

// EventKind identifies a lifecycle outcome published by the Manager.
type EventKind int

const (
	EventStarted       EventKind = iota // A session became active
	EventCompleted                      // Session completed and recorded in the registry
	EventAbandoned                      // Authority confirmed the abandonment
	EventAbandonFailed                  // Abandon call failed; session stays active
	EventForceReset                     // User discarded the session without confirmation
	EventExitResolved                   // A back-navigation prompt finished
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "start"
	case EventCompleted:
		return "complete"
	case EventAbandoned:
		return "abandon"
	case EventAbandonFailed:
		return "abandon_failed"
	case EventForceReset:
		return "force_reset"
	case EventExitResolved:
		return "exit_resolved"
	default:
		return "unknown"
	}
}

// Event is a lifecycle notification. Outcome events are published after the
// manager has reset, so handlers never observe a stale active session.
type Event struct {
	Kind      EventKind
	SessionID int64
	Mode      remote.Mode

	// Decision is set for EventExitResolved.
	Decision Decision

	// Err is set for EventAbandonFailed, and for EventExitResolved when the
	// prompt flow itself failed.
	Err error
}

// Bus delivers events to subscribers synchronously, in subscription order.
type Bus struct {
	mu   sync.Mutex
	next int
	subs []subscriber
}

type subscriber struct {
	id int
	fn func(Event)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a func that removes it. Unsubscribing
// more than once is harmless.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers ev to every current subscriber. Handlers may call back
// into the bus or the manager.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
