// Package prompt implements the session abandonment prompts for the
// terminal: an interactive Bubble Tea confirmation and a non-interactive
// variant for scripts.
package prompt

import (
	"fmt"
	"strings"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/ui/theme"
)

// RenderAdvisory formats a penalty advisory for display.
func RenderAdvisory(adv *remote.PenaltyAdvisory) string {
	var b strings.Builder
	b.WriteString(theme.Warning.Render(adv.Warning))
	b.WriteString("\n")

	degrading := adv.Degrading()
	if len(degrading) == 0 {
		b.WriteString("\n")
		b.WriteString(theme.Safe.Render("No words will lose mastery."))
		return b.String()
	}

	b.WriteString("\n")
	for _, w := range degrading {
		line := fmt.Sprintf("  %s", w.Word)
		if w.Translation != "" {
			line += fmt.Sprintf(" (%s)", w.Translation)
		}
		line += fmt.Sprintf("  %d → %d", w.CurrentMastery, w.NewMastery)
		b.WriteString(theme.Degrade.Render(line))
		b.WriteString("\n")
	}
	c := adv.Consequences
	b.WriteString("\n")
	b.WriteString(theme.Hint.Render(fmt.Sprintf("%s mode, penalty %g, %d word(s) affected",
		c.Mode, c.FailurePenalty, c.AffectedCount)))
	return b.String()
}
