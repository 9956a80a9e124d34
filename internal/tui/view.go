package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateWarning:
		content = m.viewWarning()
	case StateOverride:
		content = m.form.View()
	case StateResult:
		content = m.viewResult()
	}

	ui := lipgloss.JoinVertical(
		lipgloss.Left,
		boxStyle.Render(content),
		m.help.View(m),
	)
	if m.width == 0 || m.height == 0 {
		return ui
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, ui)
}

func (m Model) viewWarning() string {
	lines := []string{
		titleStyle.Render(m.opts.Title),
		m.opts.Body,
	}
	if m.keys.Override.Enabled() {
		lines = append(lines, "", "An override is available for tonight.")
	}
	if m.opts.AutoClose > 0 {
		lines = append(lines, "", mutedStyle.Render(fmt.Sprintf("Closing in %ds", int(m.remaining.Seconds()))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) viewResult() string {
	style := dangerStyle
	if m.granted {
		style = successStyle
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		style.Render(m.result),
		"",
		mutedStyle.Render("Press any key to close."),
	)
}
