package components

import (
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
)

func TestChoice_Navigation(t *testing.T) {
	c := NewChoice([]string{"a", "b", "c"}, 0)

	c, _ = c.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	assert.Equal(t, 0, c.Selected, "cursor stays at top")

	c, _ = c.Update(tea.KeyPressMsg{Code: 'j', Text: "j"})
	c, _ = c.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	c, _ = c.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	assert.Equal(t, 2, c.Selected, "cursor stays at bottom")
	assert.False(t, c.Submitted)

	c, _ = c.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.True(t, c.Submitted)
	assert.Equal(t, 2, c.ChosenIndex)

	c, _ = c.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	assert.Equal(t, 2, c.Selected, "ignores keys after submit")
}

func TestChoice_OutOfRange(t *testing.T) {
	c := NewChoice([]string{"a", "b"}, 5)
	assert.Equal(t, 0, c.Selected)
	assert.Equal(t, -1, c.ChosenIndex)

	c = c.Choose(3)
	assert.False(t, c.Submitted)
}

func TestChoice_View(t *testing.T) {
	out := NewChoice([]string{"Stay", "Leave"}, 1).View()
	assert.Contains(t, out, "Stay")
	assert.Contains(t, out, "▸ Leave")
}

func TestLevelProgress(t *testing.T) {
	tests := []struct {
		name              string
		level, total, per int
		want              float64
	}{
		{"fresh", 1, 0, 10, 0},
		{"halfway", 1, 5, 10, 0.5},
		{"just leveled", 2, 10, 10, 0},
		{"level two", 2, 13, 10, 0.3},
		{"clamped", 1, 25, 10, 1},
		{"bad level", 0, 5, 10, 0},
		{"bad width", 1, 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, LevelProgress(tt.level, tt.total, tt.per), 1e-9)
		})
	}
}

func TestProgressBar_View(t *testing.T) {
	out := NewProgressBar("Level 2", 0.5, true, 30).View()
	assert.Contains(t, out, "Level 2")
	assert.Contains(t, out, "50%")
}
