package components

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/ui/theme"
)

// KeyHint is a key binding shown under a component.
type KeyHint struct {
	Key         string
	Description string
}

// RenderHints renders key hints on one line.
func RenderHints(hints []KeyHint) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, theme.Key.Render(h.Key)+" "+theme.Hint.Render(h.Description))
	}
	return strings.Join(parts, "   ")
}

// Choice is a vertical single-choice selector.
type Choice struct {
	Options     []string
	Selected    int
	Submitted   bool
	ChosenIndex int
}

// NewChoice creates a selector with the cursor on selected.
func NewChoice(options []string, selected int) Choice {
	if selected < 0 || selected >= len(options) {
		selected = 0
	}
	return Choice{
		Options:     options,
		Selected:    selected,
		ChosenIndex: -1,
	}
}

// Update handles keyboard navigation and selection.
func (c Choice) Update(msg tea.Msg) (Choice, tea.Cmd) {
	if c.Submitted {
		return c, nil
	}

	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}

	switch kmsg.String() {
	case "up", "k", "shift+tab":
		if c.Selected > 0 {
			c.Selected--
		}
	case "down", "j", "tab":
		if c.Selected < len(c.Options)-1 {
			c.Selected++
		}
	case "enter":
		c = c.Choose(c.Selected)
	}

	return c, nil
}

// Choose submits option i.
func (c Choice) Choose(i int) Choice {
	if i < 0 || i >= len(c.Options) {
		return c
	}
	c.Selected = i
	c.Submitted = true
	c.ChosenIndex = i
	return c
}

// View renders the options.
func (c Choice) View() string {
	var b strings.Builder
	for i, opt := range c.Options {
		if i == c.Selected {
			b.WriteString(theme.Selected.Render("▸ " + opt))
		} else {
			b.WriteString(theme.Unselected.Render("  " + opt))
		}
		b.WriteString("\n")
	}
	return lipgloss.NewStyle().PaddingLeft(1).Render(strings.TrimSuffix(b.String(), "\n"))
}
