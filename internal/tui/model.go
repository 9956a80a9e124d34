// Package tui holds the terminal popups: the pre-shutdown warning and the
// override dialog.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/lightsout/internal/override"
)

type SessionState int

const (
	StateWarning SessionState = iota
	StateOverride
	StateResult
)

// ApplyFunc submits an override request.
type ApplyFunc func(phrase, reason string) (override.Result, error)

// Options configure a popup.
type Options struct {
	Title     string
	Body      string
	Offerable bool
	// AutoClose dismisses the warning after this long; zero keeps it open.
	AutoClose time.Duration

	Phrase          string
	ReasonMinLength int
	Apply           ApplyFunc
}

type OverrideFormModel struct {
	Phrase string
	Reason string
}

type Model struct {
	opts         Options
	state        SessionState
	keys         KeyMap
	help         help.Model
	form         *huh.Form
	overrideForm *OverrideFormModel
	standalone   bool // opened directly as the override dialog
	remaining    time.Duration
	result       string
	granted      bool
	quitting     bool
	width        int
	height       int
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// NewWarning builds the warning popup. The override key is only live when
// the warning is offerable and an ApplyFunc is set.
func NewWarning(opts Options) Model {
	keys := DefaultKeyMap()
	keys.Override.SetEnabled(opts.Offerable && opts.Apply != nil)
	return Model{
		opts:      opts,
		state:     StateWarning,
		keys:      keys,
		help:      help.New(),
		remaining: opts.AutoClose,
	}
}

// NewOverride builds the override dialog on its own.
func NewOverride(opts Options) Model {
	m := NewWarning(opts)
	m.standalone = true
	m.openForm()
	return m
}

func (m Model) ShortHelp() []key.Binding {
	switch m.state {
	case StateOverride:
		return []key.Binding{m.keys.Cancel}
	case StateResult:
		return []key.Binding{m.keys.Dismiss}
	}
	return m.keys.ShortHelp()
}

func (m Model) FullHelp() [][]key.Binding {
	return m.keys.FullHelp()
}

func (m Model) Init() tea.Cmd {
	if m.state == StateOverride {
		return m.form.Init()
	}
	if m.opts.AutoClose > 0 {
		return tick()
	}
	return nil
}

func (m *Model) openForm() {
	m.overrideForm = &OverrideFormModel{}
	m.form = NewOverrideForm(m.overrideForm, m.opts.Phrase, m.opts.ReasonMinLength)
	m.state = StateOverride
}

// NewOverrideForm asks for the commitment phrase and a reason.
func NewOverrideForm(fm *OverrideFormModel, phrase string, minReason int) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Commitment phrase").
				Description(fmt.Sprintf("Type exactly: %s", phrase)).
				Value(&fm.Phrase),
			huh.NewText().
				Title("Reason").
				Description(fmt.Sprintf("At least %d characters", minReason)).
				Value(&fm.Reason).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a reason is required")
					}
					return nil
				}),
		),
	)
}

// submit runs the override request and moves to the result screen.
func (m *Model) submit(phrase, reason string) {
	m.state = StateResult
	res, err := m.opts.Apply(phrase, reason)
	if err != nil {
		m.granted = false
		m.result = fmt.Sprintf("Override failed: %v", err)
		return
	}
	m.granted = res.Allowed
	m.result = res.Message
	if res.WeeklyErr != nil {
		m.result += "\nThe weekly override count could not be updated."
	}
}

// Run shows m full screen until it is dismissed.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
