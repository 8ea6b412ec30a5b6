package connectivity

import "sync"

// Oracle reports whether the remote authority is reachable and notifies
// listeners on online/offline transitions.
type Oracle interface {
	IsOnline() bool

	// OnChange registers fn for transitions. The returned func unsubscribes.
	// fn runs on the notifying goroutine and must not block.
	OnChange(fn func(online bool)) (unsubscribe func())
}

// listeners is the subscription list shared by Oracle implementations.
type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(bool)
}

func (l *listeners) subscribe(fn func(bool)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(bool))
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.fns, id)
		})
	}
}

func (l *listeners) notify(online bool) {
	l.mu.Lock()
	fns := make([]func(bool), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}

// Static is an Oracle whose state is set explicitly. Used for --offline
// and in tests.
type Static struct {
	mu     sync.RWMutex
	online bool
	subs   listeners
}

// NewStatic creates a Static oracle in the given state.
func NewStatic(online bool) *Static {
	return &Static{online: online}
}

func (s *Static) IsOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

func (s *Static) OnChange(fn func(online bool)) func() {
	return s.subs.subscribe(fn)
}

// Set changes the state, notifying listeners only on a transition.
func (s *Static) Set(online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	s.mu.Unlock()

	if changed {
		s.subs.notify(online)
	}
}
