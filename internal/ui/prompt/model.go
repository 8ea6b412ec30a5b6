package prompt

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/ui/components"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/ui/theme"
)

// model is a single-question dialog: a card with a title and body above a
// list of options. Esc and ctrl+c pick the cancel option.
type model struct {
	title  string
	body   string
	choice components.Choice
	cancel int

	// shortcuts maps a key to an option index.
	shortcuts map[string]int
}

func newModel(title, body string, options []string, cancel int, shortcuts map[string]int) model {
	return model{
		title:     title,
		body:      body,
		choice:    components.NewChoice(options, cancel),
		cancel:    cancel,
		shortcuts: shortcuts,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		key := kmsg.String()
		switch key {
		case "ctrl+c", "esc":
			m.choice = m.choice.Choose(m.cancel)
			return m, tea.Quit
		}
		if i, ok := m.shortcuts[key]; ok {
			m.choice = m.choice.Choose(i)
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.choice, cmd = m.choice.Update(msg)
	if m.choice.Submitted {
		return m, tea.Quit
	}
	return m, cmd
}

// chosen returns the picked option, or the cancel option if none was.
func (m model) chosen() int {
	if !m.choice.Submitted {
		return m.cancel
	}
	return m.choice.ChosenIndex
}

func (m model) content() string {
	card := theme.Card.Render(theme.Title.Render(m.title) + "\n\n" + theme.Body.Render(m.body))
	hints := components.RenderHints([]components.KeyHint{
		{Key: "↑↓", Description: "Choose"},
		{Key: "Enter", Description: "Confirm"},
		{Key: "Esc", Description: "Cancel"},
	})
	return lipgloss.JoinVertical(lipgloss.Left, card, "", m.choice.View(), "", hints)
}

func (m model) View() tea.View {
	return tea.NewView(m.content())
}
