package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/verdantlabs/ecoburn/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar: key hints on the left, a
// context note (scenario name, what-if state) on the right.
func RenderStatusBar(width int, note string) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Width(width)

	left := " [?]help  [q]uit"
	right := ""
	if note != "" {
		right = note + " "
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}

	bar := left
	for i := 0; i < padding; i++ {
		bar += " "
	}
	bar += right

	return style.Render(bar)
}
