package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/hpyer/easysms/internal/cli/ui"
)

// colorEnabled returns true if stderr is a terminal and NO_COLOR is unset.
func colorEnabled() bool {
	return ui.ColorEnabled()
}

// paint renders text with style through the forced renderer, or returns it
// untouched when color is off.
func paint(text string, color bool, style func(lipgloss.Style) lipgloss.Style) string {
	if !color {
		return text
	}
	return style(ui.ForcedRenderer().NewStyle()).Render(text)
}

func bold(text string, color bool) string {
	return paint(text, color, func(s lipgloss.Style) lipgloss.Style { return s.Bold(true) })
}

func dim(text string, color bool) string {
	return paint(text, color, func(s lipgloss.Style) lipgloss.Style { return s.Faint(true) })
}

func cyan(text string, color bool) string {
	return paint(text, color, func(s lipgloss.Style) lipgloss.Style { return s.Foreground(ui.ColorCyan) })
}

func green(text string, color bool) string {
	return paint(text, color, func(s lipgloss.Style) lipgloss.Style { return s.Foreground(ui.ColorGreen) })
}

func yellow(text string, color bool) string {
	return paint(text, color, func(s lipgloss.Style) lipgloss.Style { return s.Foreground(ui.ColorYellow) })
}

func red(text string, color bool) string {
	return paint(text, color, func(s lipgloss.Style) lipgloss.Style { return s.Foreground(ui.ColorRed) })
}

func boldCyan(text string, color bool) string {
	return paint(text, color, func(s lipgloss.Style) lipgloss.Style {
		return s.Bold(true).Foreground(ui.ColorCyan)
	})
}

// heading renders a section heading.
func heading(title string, c bool) string {
	return boldCyan(title, c)
}
