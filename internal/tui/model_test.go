package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/entrylab/internal/assets"
	"github.com/verte-zerg/entrylab/internal/engine"
	"github.com/verte-zerg/entrylab/internal/phrases"
	"github.com/verte-zerg/entrylab/internal/session"
)

func newTestModel(t *testing.T, phraseFile string) (*Model, *engine.Engine) {
	t.Helper()
	dir := t.TempDir()
	if phraseFile != "" {
		if err := os.WriteFile(filepath.Join(dir, phrases.DefaultFile), []byte(phraseFile), 0o644); err != nil {
			t.Fatalf("write phrases: %v", err)
		}
	}
	e := engine.New(engine.Config{Trials: 1}, engine.Deps{
		Phrases: assets.NewDir(dir),
		Sampler: phrases.NewSeededSampler(1),
	})
	e.Start(context.Background())
	t.Cleanup(e.Close)
	if err := e.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	return NewModel(e), e
}

func typeKeys(m *Model, s string) {
	for _, r := range s {
		if r == ' ' {
			m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
			continue
		}
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestModelRunsSession(t *testing.T) {
	m, e := newTestModel(t, "Hi There\n")

	if !strings.Contains(m.View(), "Press enter") {
		t.Fatalf("expected idle prompt, got %q", m.View())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if e.Controller().State() != session.StateActive {
		t.Fatalf("expected active session")
	}
	typeKeys(m, "hi thx")
	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	if got := e.Controller().TypedText(); got != "hi th" {
		t.Fatalf("unexpected typed text %q", got)
	}
	typeKeys(m, "ere")

	if e.Controller().State() != session.StateEnded {
		t.Fatalf("expected session to end, state %v", e.Controller().State())
	}
	if m.Completed() != 1 {
		t.Fatalf("expected 1 completed session, got %d", m.Completed())
	}
	if !strings.Contains(m.View(), "Session complete") {
		t.Fatalf("expected completion view")
	}
}

func TestModelEscAbandons(t *testing.T) {
	m, e := newTestModel(t, "abc\n")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeKeys(m, "a")
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if e.Controller().State() != session.StateIdle {
		t.Fatalf("expected idle after esc")
	}
	if m.Completed() != 0 {
		t.Fatalf("expected no completed sessions")
	}
}

func TestRenderFooterFormats(t *testing.T) {
	m, _ := newTestModel(t, "abcd\n")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeKeys(m, "ab")
	out := m.renderFooter()
	for _, want := range []string{"Standard", "Progress 50%", "Phrases 1", "Completed 0", "enter"} {
		if !strings.Contains(out, want) {
			t.Fatalf("footer missing %q: %s", want, out)
		}
	}
}

func TestViewWithoutPhrases(t *testing.T) {
	m, _ := newTestModel(t, "")
	if !strings.Contains(m.View(), "No phrases loaded") {
		t.Fatalf("expected missing phrases notice, got %q", m.View())
	}
}

func TestCtrlCQuits(t *testing.T) {
	m, _ := newTestModel(t, "abc\n")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
