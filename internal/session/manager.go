// Package session tracks the lifecycle of one progress-earning session
// against the remote authority. A session ends exactly once: it is either
// completed (recorded in the completion registry) or abandoned (confirmed by
// the authority), never both.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/registry"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
)

// State is the lifecycle state of the manager.
type State int

const (
	StateIdle       State = iota // No session
	StateActive                  // Session assigned and tracking
	StateCompleting              // Completion being recorded
	StateAbandoning              // Abandon call in flight
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCompleting:
		return "completing"
	case StateAbandoning:
		return "abandoning"
	default:
		return "unknown"
	}
}

// Default remote call bounds.
const (
	DefaultAbandonTimeout = 10 * time.Second
	DefaultPenaltyTimeout = 5 * time.Second
)

// Config bounds the manager's remote calls.
type Config struct {
	AbandonTimeout time.Duration
	PenaltyTimeout time.Duration
}

// Status is a point-in-time copy of the manager's state.
type Status struct {
	State     State
	SessionID int64
	Mode      remote.Mode

	// Completed and Abandoned describe the last finished session (LastID)
	// until the next Start of a different session or Reset.
	Completed bool
	Abandoned bool
	LastID    int64

	// Exiting is true while an abandonment prompt is open.
	Exiting bool
}

// Manager owns the active session. It is safe for concurrent use; remote
// calls run without holding the lock.
type Manager struct {
	authority remote.Authority
	registry  registry.Completions
	abandons  registry.Abandonments // nil when reg does not track abandonments
	prompter  Prompter
	cfg       Config
	logger    *slog.Logger
	bus       *Bus

	penalty singleflight.Group
	wg      sync.WaitGroup

	mu        sync.Mutex
	state     State
	id        int64
	mode      remote.Mode
	lastID    int64
	completed bool
	abandoned bool
	exiting   bool
	advisory  *remote.PenaltyAdvisory
}

// NewManager creates an idle manager. prompter may be nil when the caller
// never uses RequestAbandonment or HandleBack. If reg also implements
// registry.Abandonments, abandonments are recorded there and a session found
// in it is never started again.
func NewManager(authority remote.Authority, reg registry.Completions, prompter Prompter, cfg Config, logger *slog.Logger) *Manager {
	if cfg.AbandonTimeout <= 0 {
		cfg.AbandonTimeout = DefaultAbandonTimeout
	}
	if cfg.PenaltyTimeout <= 0 {
		cfg.PenaltyTimeout = DefaultPenaltyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	abandons, _ := reg.(registry.Abandonments)
	return &Manager{
		authority: authority,
		registry:  reg,
		abandons:  abandons,
		prompter:  prompter,
		cfg:       cfg,
		logger:    logger,
		bus:       NewBus(),
	}
}

// Subscribe registers fn for lifecycle events.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	return m.bus.Subscribe(fn)
}

// Snapshot returns the current status.
func (m *Manager) Snapshot() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:     m.state,
		SessionID: m.id,
		Mode:      m.mode,
		Completed: m.completed,
		Abandoned: m.abandoned,
		LastID:    m.lastID,
		Exiting:   m.exiting,
	}
}

// Advisory returns the last penalty advisory fetched for the active session.
func (m *Manager) Advisory() *remote.PenaltyAdvisory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advisory
}

// Start makes id the active session. It is a logged no-op, returning false,
// when id is invalid, already active, already completed, or was just
// finalized by this manager.
func (m *Manager) Start(id int64, mode remote.Mode) bool {
	if err := ValidateID(id); err != nil {
		m.logger.Warn("ignoring session start", "session_id", id, "error", err)
		return false
	}
	if _, err := remote.ParseMode(string(mode)); err != nil {
		m.logger.Warn("ignoring session start", "session_id", id, "error", err)
		return false
	}

	m.mu.Lock()
	switch {
	case m.state != StateIdle && m.id == id:
		m.mu.Unlock()
		m.logger.Debug("session already active", "session_id", id)
		return false

	case m.state == StateAbandoning:
		current := m.id
		m.mu.Unlock()
		m.logger.Warn("abandonment in flight, not starting", "session_id", id, "abandoning", current)
		return false

	case m.registry.IsCompleted(id):
		if m.state == StateIdle {
			m.resetLocked()
			m.completed = true
			m.lastID = id
		}
		current := m.id
		m.mu.Unlock()
		m.logger.Info("session already completed, not starting", "session_id", id, "active", current)
		return false

	case m.abandons != nil && m.abandons.IsAbandoned(id):
		if m.state == StateIdle {
			m.resetLocked()
			m.abandoned = true
			m.lastID = id
		}
		current := m.id
		m.mu.Unlock()
		m.logger.Info("session already abandoned, not starting", "session_id", id, "active", current)
		return false

	case m.lastID == id && (m.completed || m.abandoned):
		m.mu.Unlock()
		m.logger.Debug("session just finalized, not restarting", "session_id", id)
		return false
	}

	if m.state != StateIdle {
		m.logger.Warn("replacing active session", "previous", m.id, "session_id", id)
	}
	m.resetLocked()
	m.state = StateActive
	m.id = id
	m.mode = mode
	m.mu.Unlock()

	m.logger.Info("session started", "session_id", id, "mode", mode)
	m.bus.Publish(Event{Kind: EventStarted, SessionID: id, Mode: mode})
	return true
}

// Complete records the active session in the completion registry, resets the
// manager, then publishes EventCompleted. It is a no-op without an active
// session and fails with ErrAlreadyAbandoned after an abandonment.
func (m *Manager) Complete() error {
	m.mu.Lock()
	switch {
	case m.abandoned:
		id := m.lastID
		m.mu.Unlock()
		return fmt.Errorf("complete session %d: %w", id, ErrAlreadyAbandoned)
	case m.state == StateIdle:
		m.mu.Unlock()
		return nil
	case m.state == StateAbandoning:
		id := m.id
		m.mu.Unlock()
		return fmt.Errorf("complete session %d: %w", id, ErrAbandonInProgress)
	}

	id, mode := m.id, m.mode
	m.state = StateCompleting
	m.registry.MarkCompleted(id)
	m.resetLocked()
	m.completed = true
	m.lastID = id
	m.mu.Unlock()

	m.logger.Info("session completed", "session_id", id)
	m.bus.Publish(Event{Kind: EventCompleted, SessionID: id, Mode: mode})
	return nil
}

// Abandon asks the authority to abandon the active session. Without an active
// session, or when the session is already completed, it returns nil without a
// remote call. On failure the session stays active so the caller may retry.
func (m *Manager) Abandon(ctx context.Context) error {
	_, err := m.abandon(ctx)
	return err
}

type abandonOutcome int

const (
	outcomeNone abandonOutcome = iota
	outcomeCompleted
	outcomeAbandoned
)

func (m *Manager) abandon(ctx context.Context) (abandonOutcome, error) {
	m.mu.Lock()
	switch m.state {
	case StateIdle:
		m.mu.Unlock()
		return outcomeNone, nil
	case StateAbandoning:
		id := m.id
		m.mu.Unlock()
		return outcomeNone, fmt.Errorf("abandon session %d: %w", id, ErrAbandonInProgress)
	}

	id, mode := m.id, m.mode
	// The registry check must precede the remote call.
	if m.registry.IsCompleted(id) {
		m.resetLocked()
		m.completed = true
		m.lastID = id
		m.mu.Unlock()
		m.logger.Info("session already completed, skipping abandon", "session_id", id)
		return outcomeCompleted, nil
	}
	m.state = StateAbandoning
	m.mu.Unlock()

	callCtx, cancel := context.WithTimeout(remote.WithSessionMode(ctx, mode), m.cfg.AbandonTimeout)
	err := m.authority.AbandonSession(callCtx, id)
	cancel()

	m.mu.Lock()
	ours := m.state == StateAbandoning && m.id == id
	if err != nil {
		if ours {
			m.state = StateActive
		}
		m.mu.Unlock()
		m.logger.Warn("abandon failed", "session_id", id, "error", err)
		m.bus.Publish(Event{Kind: EventAbandonFailed, SessionID: id, Mode: mode, Err: err})
		return outcomeNone, fmt.Errorf("abandon session %d: %w", id, err)
	}

	if m.registry.IsCompleted(id) {
		// Another surface completed the session while the call was in flight.
		if ours {
			m.resetLocked()
			m.completed = true
			m.lastID = id
		}
		m.mu.Unlock()
		m.logger.Warn("session completed during abandon", "session_id", id)
		return outcomeCompleted, nil
	}

	if m.abandons != nil {
		m.abandons.MarkAbandoned(id)
	}
	if ours {
		m.resetLocked()
		m.abandoned = true
		m.lastID = id
	}
	m.mu.Unlock()

	m.logger.Info("session abandoned", "session_id", id)
	m.bus.Publish(Event{Kind: EventAbandoned, SessionID: id, Mode: mode})
	return outcomeAbandoned, nil
}

// CheckPenalty fetches the penalty advisory for the active session.
// Concurrent calls for the same session share one request. Any failure,
// including a timeout, is reported as ErrAdvisoryUnavailable.
func (m *Manager) CheckPenalty(ctx context.Context) (*remote.PenaltyAdvisory, error) {
	m.mu.Lock()
	if m.state == StateIdle {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	id, mode := m.id, m.mode
	m.mu.Unlock()

	key := strconv.FormatInt(id, 10) + ":" + string(mode)
	ch := m.penalty.DoChan(key, func() (any, error) {
		// Shared by every waiter, so one caller's cancellation must not
		// fail the others.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.PenaltyTimeout)
		defer cancel()
		return m.authority.CheckAbandonmentPenalty(callCtx, id, mode)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrAdvisoryUnavailable, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAdvisoryUnavailable, res.Err)
	}
	adv, ok := res.Val.(*remote.PenaltyAdvisory)
	if !ok || adv == nil {
		return nil, fmt.Errorf("%w: empty response", ErrAdvisoryUnavailable)
	}

	m.mu.Lock()
	if m.state != StateIdle && m.id == id {
		m.advisory = adv
	}
	m.mu.Unlock()
	return adv, nil
}

// Reset forgets the active session and any retained outcome flags. The
// completion registry is not touched.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *Manager) resetLocked() {
	m.state = StateIdle
	m.id = 0
	m.mode = ""
	m.lastID = 0
	m.completed = false
	m.abandoned = false
	m.advisory = nil
}

// Wait blocks until every prompt flow started by HandleBack has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}
