package session

import (
	"context"
	"fmt"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
)

// GenericAbandonMessage is shown when no penalty advisory could be fetched.
const GenericAbandonMessage = "Leave this session? Words you were practicing may lose mastery."

// Decision is the outcome of an abandonment request.
type Decision int

const (
	AllowNavigation Decision = iota // Nothing to abandon; leave freely
	Stay                            // User declined, cancelled, or a prompt is already open
	Abandoned                       // Authority confirmed the abandonment
	ForceReset                      // Session discarded locally after a failed abandon
)

func (d Decision) String() string {
	switch d {
	case AllowNavigation:
		return "allow"
	case Stay:
		return "stay"
	case Abandoned:
		return "abandoned"
	case ForceReset:
		return "force_reset"
	default:
		return "unknown"
	}
}

// FailureChoice is the user's answer after an abandon call failed.
type FailureChoice int

const (
	ChoiceCancel FailureChoice = iota
	ChoiceRetry
	ChoiceForceReset
)

// Prompter surfaces abandonment confirmations to the user.
type Prompter interface {
	// ConfirmAbandon shows the penalty advisory and asks for confirmation.
	ConfirmAbandon(ctx context.Context, advisory *remote.PenaltyAdvisory) (bool, error)

	// ConfirmGeneric asks a plain yes/no question.
	ConfirmGeneric(ctx context.Context, message string) (bool, error)

	// AbandonFailed reports err and asks how to proceed.
	AbandonFailed(ctx context.Context, err error) (FailureChoice, error)
}

type exitCheck int

const (
	exitAllow exitCheck = iota
	exitBusy
	exitPrompt
)

// beginExit decides whether leaving needs a prompt. When it returns
// exitPrompt the exiting flag is set and the caller must call endExit.
func (m *Manager) beginExit() exitCheck {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateIdle {
		return exitAllow
	}
	if m.registry.IsCompleted(m.id) {
		id := m.id
		m.resetLocked()
		m.completed = true
		m.lastID = id
		return exitAllow
	}
	if m.exiting || m.state == StateAbandoning {
		return exitBusy
	}
	m.exiting = true
	return exitPrompt
}

func (m *Manager) endExit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exiting = false
}

// RequestAbandonment is the user-facing quit path. It allows navigation
// without a prompt when there is nothing to abandon. Otherwise it shows the
// penalty advisory (or a generic confirmation), abandons on confirmation, and
// on failure lets the user retry, force a reset, or cancel. Retries are
// driven by the user and are not limited.
func (m *Manager) RequestAbandonment(ctx context.Context) (Decision, error) {
	switch m.beginExit() {
	case exitAllow:
		return AllowNavigation, nil
	case exitBusy:
		return Stay, nil
	}
	defer m.endExit()
	return m.runExit(ctx)
}

// HandleBack intercepts back navigation. It returns false to allow
// navigation. It returns true to block it, in which case the prompt flow runs
// in the background and its outcome is published as EventExitResolved.
func (m *Manager) HandleBack(ctx context.Context) bool {
	switch m.beginExit() {
	case exitAllow:
		return false
	case exitBusy:
		return true
	}

	id := m.Snapshot().SessionID
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		decision, err := m.runExitReleasing(ctx)
		if err != nil {
			m.logger.Warn("abandonment prompt failed", "session_id", id, "error", err)
		}
		m.bus.Publish(Event{Kind: EventExitResolved, SessionID: id, Decision: decision, Err: err})
	}()
	return true
}

// runExitReleasing runs the prompt flow and clears the exiting flag before
// returning, so EventExitResolved handlers see a settled manager.
func (m *Manager) runExitReleasing(ctx context.Context) (Decision, error) {
	defer m.endExit()
	return m.runExit(ctx)
}

func (m *Manager) runExit(ctx context.Context) (Decision, error) {
	if m.prompter == nil {
		return Stay, fmt.Errorf("request abandonment: no prompter configured")
	}

	confirmed, err := m.confirm(ctx)
	if err != nil {
		return Stay, fmt.Errorf("confirm abandonment: %w", err)
	}
	if !confirmed {
		return Stay, nil
	}

	for {
		outcome, err := m.abandon(ctx)
		if err == nil {
			if outcome == outcomeAbandoned {
				return Abandoned, nil
			}
			// Completed elsewhere or already gone.
			return AllowNavigation, nil
		}
		if ctx.Err() != nil {
			return Stay, ctx.Err()
		}

		choice, perr := m.prompter.AbandonFailed(ctx, err)
		if perr != nil {
			return Stay, fmt.Errorf("abandon failure prompt: %w", perr)
		}
		switch choice {
		case ChoiceRetry:
			m.logger.Info("retrying abandon")
			continue
		case ChoiceForceReset:
			return m.forceReset(), nil
		default:
			return Stay, nil
		}
	}
}

func (m *Manager) confirm(ctx context.Context) (bool, error) {
	adv, err := m.CheckPenalty(ctx)
	if err != nil {
		m.logger.Warn("falling back to generic confirmation", "error", err)
		return m.prompter.ConfirmGeneric(ctx, GenericAbandonMessage)
	}
	return m.prompter.ConfirmAbandon(ctx, adv)
}

func (m *Manager) forceReset() Decision {
	m.mu.Lock()
	id, mode := m.id, m.mode
	m.resetLocked()
	m.mu.Unlock()

	m.logger.Warn("session force reset without authority confirmation", "session_id", id)
	m.bus.Publish(Event{Kind: EventForceReset, SessionID: id, Mode: mode})
	return ForceReset
}
