package prompt

import (
	"bytes"
	"context"
	"errors"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/session"
)

func press(m model, keys ...tea.KeyPressMsg) (model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(model)
	}
	return m, cmd
}

func key(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

var (
	enter = tea.KeyPressMsg{Code: tea.KeyEnter}
	down  = tea.KeyPressMsg{Code: tea.KeyDown}
	esc   = tea.KeyPressMsg{Code: tea.KeyEscape}
)

func confirmModel() model {
	return newModel("t", "b", []string{optStay, optLeave}, 0, map[string]int{"y": 1, "n": 0})
}

func TestModel_DefaultsToStay(t *testing.T) {
	m, cmd := press(confirmModel(), enter)
	assert.NotNil(t, cmd)
	assert.Equal(t, 0, m.chosen())
}

func TestModel_NavigateAndConfirm(t *testing.T) {
	m, cmd := press(confirmModel(), down, enter)
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, m.chosen())
}

func TestModel_Shortcuts(t *testing.T) {
	m, _ := press(confirmModel(), key('y'))
	assert.Equal(t, 1, m.chosen())

	m, _ = press(confirmModel(), down, key('n'))
	assert.Equal(t, 0, m.chosen())
}

func TestModel_EscapeCancels(t *testing.T) {
	m := newModel("t", "b", []string{optRetry, optForceReset, optCancel}, 2, nil)
	m, _ = press(m, tea.KeyPressMsg{Code: tea.KeyUp}, esc)
	assert.Equal(t, 2, m.chosen())
}

func TestModel_UnsubmittedIsCancel(t *testing.T) {
	m, cmd := press(confirmModel(), down)
	assert.Nil(t, cmd)
	assert.Equal(t, 0, m.chosen())
}

func TestModel_View(t *testing.T) {
	out := confirmModel().content()
	assert.Contains(t, out, optStay)
	assert.Contains(t, out, optLeave)
	assert.Contains(t, out, "Enter")
}

func advisory() *remote.PenaltyAdvisory {
	return &remote.PenaltyAdvisory{
		Warning: "You will lose progress on 1 word",
		AffectedWords: []remote.AffectedWord{
			{Word: "allqu", Translation: "dog", CurrentMastery: 3, WillDegrade: true, NewMastery: 2},
			{Word: "yaku", Translation: "water", CurrentMastery: 0},
		},
		Consequences: remote.Consequences{Mode: remote.ModePractice, FailurePenalty: 1, AffectedCount: 1},
	}
}

func TestRenderAdvisory(t *testing.T) {
	out := RenderAdvisory(advisory())
	assert.Contains(t, out, "You will lose progress on 1 word")
	assert.Contains(t, out, "allqu")
	assert.Contains(t, out, "3 → 2")
	assert.NotContains(t, out, "yaku")
}

func TestRenderAdvisory_NothingDegrades(t *testing.T) {
	adv := advisory()
	adv.AffectedWords = adv.AffectedWords[1:]
	out := RenderAdvisory(adv)
	assert.Contains(t, out, "No words will lose mastery.")
}

func TestAuto(t *testing.T) {
	var out bytes.Buffer
	a := &Auto{Confirm: true, OnFailure: session.ChoiceForceReset, Out: &out}
	ctx := context.Background()

	ok, err := a.ConfirmAbandon(ctx, advisory())
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.ConfirmGeneric(ctx, session.GenericAbandonMessage)
	assert.NoError(t, err)
	assert.True(t, ok)

	choice, err := a.AbandonFailed(ctx, errors.New("offline"))
	assert.NoError(t, err)
	assert.Equal(t, session.ChoiceForceReset, choice)

	assert.Contains(t, out.String(), "allqu")
	assert.Contains(t, out.String(), "abandon failed: offline")
}
