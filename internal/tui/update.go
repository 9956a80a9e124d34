package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if m.state != StateWarning || m.opts.AutoClose <= 0 {
			return m, tick()
		}
		m.remaining -= time.Second
		if m.remaining <= 0 {
			m.quitting = true
			return m, tea.Quit
		}
		return m, tick()
	}

	switch m.state {
	case StateOverride:
		return m.updateOverride(msg)
	case StateResult:
		if _, ok := msg.(tea.KeyMsg); ok {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Override):
			m.openForm()
			return m, m.form.Init()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Dismiss), key.Matches(msg, m.keys.Cancel):
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) updateOverride(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Cancel) {
		return m.leaveForm()
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.submit(m.overrideForm.Phrase, m.overrideForm.Reason)
		return m, nil
	case huh.StateAborted:
		return m.leaveForm()
	}
	return m, cmd
}

// leaveForm returns to the warning, or closes a standalone dialog.
func (m Model) leaveForm() (tea.Model, tea.Cmd) {
	m.form = nil
	m.overrideForm = nil
	if m.standalone {
		m.quitting = true
		return m, tea.Quit
	}
	m.state = StateWarning
	return m, nil
}
