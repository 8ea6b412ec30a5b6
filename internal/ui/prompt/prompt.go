package prompt

import (
	"context"
	"fmt"
	"io"

	tea "charm.land/bubbletea/v2"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/session"
)

// Option labels.
const (
	optStay       = "Stay in the session"
	optLeave      = "Leave and abandon"
	optRetry      = "Retry"
	optForceReset = "Discard locally (force reset)"
	optCancel     = "Cancel"
)

// Terminal asks questions with an interactive Bubble Tea dialog.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal creates a Terminal prompter reading keys from in and drawing
// to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

var _ session.Prompter = (*Terminal)(nil)

func (t *Terminal) ConfirmAbandon(ctx context.Context, adv *remote.PenaltyAdvisory) (bool, error) {
	i, err := t.ask(ctx, newModel("Abandon this session?", RenderAdvisory(adv),
		[]string{optStay, optLeave}, 0, map[string]int{"y": 1, "n": 0}))
	return i == 1, err
}

func (t *Terminal) ConfirmGeneric(ctx context.Context, message string) (bool, error) {
	i, err := t.ask(ctx, newModel("Abandon this session?", message,
		[]string{optStay, optLeave}, 0, map[string]int{"y": 1, "n": 0}))
	return i == 1, err
}

func (t *Terminal) AbandonFailed(ctx context.Context, cause error) (session.FailureChoice, error) {
	body := fmt.Sprintf("The session could not be abandoned:\n%v", cause)
	i, err := t.ask(ctx, newModel("Abandon failed", body,
		[]string{optRetry, optForceReset, optCancel}, 2, map[string]int{"r": 0, "f": 1, "c": 2}))
	if err != nil {
		return session.ChoiceCancel, err
	}
	return failureChoices[i], nil
}

var failureChoices = []session.FailureChoice{session.ChoiceRetry, session.ChoiceForceReset, session.ChoiceCancel}

func (t *Terminal) ask(ctx context.Context, m model) (int, error) {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	)
	final, err := p.Run()
	if err != nil {
		return m.cancel, fmt.Errorf("run prompt: %w", err)
	}
	fm, ok := final.(model)
	if !ok {
		return m.cancel, fmt.Errorf("run prompt: unexpected model %T", final)
	}
	return fm.chosen(), nil
}

// Auto answers every prompt without interaction, printing what it was asked
// to out. Used for --yes and non-terminal input.
type Auto struct {
	Confirm   bool
	OnFailure session.FailureChoice
	Out       io.Writer
}

var _ session.Prompter = (*Auto)(nil)

func (a *Auto) ConfirmAbandon(ctx context.Context, adv *remote.PenaltyAdvisory) (bool, error) {
	a.print(RenderAdvisory(adv))
	return a.Confirm, nil
}

func (a *Auto) ConfirmGeneric(ctx context.Context, message string) (bool, error) {
	a.print(message)
	return a.Confirm, nil
}

func (a *Auto) AbandonFailed(ctx context.Context, cause error) (session.FailureChoice, error) {
	a.print(fmt.Sprintf("abandon failed: %v", cause))
	return a.OnFailure, nil
}

func (a *Auto) print(s string) {
	if a.Out != nil {
		fmt.Fprintln(a.Out, s)
	}
}
