package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/lightsout/internal/override"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return out
}

func granted(string, string) (override.Result, error) {
	return override.Result{Decision: override.Decision{Allowed: true, Code: override.Granted, Message: "Override applied. New shutdown time: 03:00."}}, nil
}

func TestWarningAutoCloses(t *testing.T) {
	m := NewWarning(Options{Title: "Lights Out", Body: "5 minute(s) remaining", AutoClose: 2 * time.Second})
	if m.Init() == nil {
		t.Fatal("expected a countdown tick")
	}

	m = update(t, m, tickMsg(time.Now()))
	if m.quitting {
		t.Fatal("closed after one second")
	}
	if !strings.Contains(m.View(), "Closing in 1s") {
		t.Errorf("countdown missing from view:\n%s", m.View())
	}
	m = update(t, m, tickMsg(time.Now()))
	if !m.quitting {
		t.Fatal("expected popup to close")
	}
}

func TestOverrideKeyIgnoredWhenNotOfferable(t *testing.T) {
	m := NewWarning(Options{Title: "Lights Out", Body: "body", Offerable: false, Apply: granted})
	m = update(t, m, keyMsg("o"))
	if m.state != StateWarning {
		t.Errorf("state = %v, want warning", m.state)
	}
	if strings.Contains(m.View(), "override is available") {
		t.Error("view offers an override that is not available")
	}
}

func TestOverrideKeyOpensForm(t *testing.T) {
	m := NewWarning(Options{Title: "Lights Out", Body: "body", Offerable: true, Apply: granted, Phrase: "I choose to stay up"})
	m = update(t, m, keyMsg("o"))
	if m.state != StateOverride || m.form == nil {
		t.Fatalf("state = %v, want override form", m.state)
	}

	m = update(t, m, keyMsg("esc"))
	if m.state != StateWarning || m.quitting {
		t.Errorf("esc should return to the warning, state = %v", m.state)
	}
}

func TestCountdownPausedDuringForm(t *testing.T) {
	m := NewWarning(Options{Title: "t", Body: "b", Offerable: true, Apply: granted, AutoClose: time.Second})
	m = update(t, m, keyMsg("o"))
	m = update(t, m, tickMsg(time.Now()))
	if m.quitting || m.remaining != time.Second {
		t.Errorf("countdown moved while the form was open: remaining=%v", m.remaining)
	}
}

func TestDismiss(t *testing.T) {
	m := NewWarning(Options{Title: "t", Body: "b"})
	m = update(t, m, keyMsg("enter"))
	if !m.quitting {
		t.Error("enter should dismiss")
	}
	if m.View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name        string
		apply       ApplyFunc
		wantGranted bool
		wantText    string
	}{
		{name: "granted", apply: granted, wantGranted: true, wantText: "New shutdown time: 03:00"},
		{
			name: "denied",
			apply: func(string, string) (override.Result, error) {
				return override.Result{Decision: override.Decision{Code: override.PhraseMismatch, Message: "Commitment phrase does not match."}}, nil
			},
			wantText: "does not match",
		},
		{
			name: "failed",
			apply: func(string, string) (override.Result, error) {
				return override.Result{}, errors.New("state locked")
			},
			wantText: "Override failed: state locked",
		},
		{
			name: "weekly count failed",
			apply: func(p, r string) (override.Result, error) {
				res, _ := granted(p, r)
				res.WeeklyErr = errors.New("disk full")
				return res, nil
			},
			wantGranted: true,
			wantText:    "weekly override count could not be updated",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewOverride(Options{Apply: tt.apply})
			m.submit("phrase", "reason")
			if m.state != StateResult {
				t.Fatalf("state = %v, want result", m.state)
			}
			if m.granted != tt.wantGranted {
				t.Errorf("granted = %v, want %v", m.granted, tt.wantGranted)
			}
			if !strings.Contains(m.View(), tt.wantText) {
				t.Errorf("view missing %q:\n%s", tt.wantText, m.View())
			}

			m = update(t, m, keyMsg("x"))
			if !m.quitting {
				t.Error("any key should close the result")
			}
		})
	}
}

func TestStandaloneOverrideCancelQuits(t *testing.T) {
	m := NewOverride(Options{Apply: granted})
	if m.state != StateOverride {
		t.Fatalf("state = %v, want override", m.state)
	}
	m = update(t, m, keyMsg("esc"))
	if !m.quitting {
		t.Error("esc should close the standalone dialog")
	}
}
