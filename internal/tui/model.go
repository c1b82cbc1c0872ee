// Package tui runs an experiment in the terminal with the keyboard modality.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/entrylab/internal/engine"
	"github.com/verte-zerg/entrylab/internal/input"
	"github.com/verte-zerg/entrylab/internal/session"
)

const pollInterval = 100 * time.Millisecond

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Underline(true)
	typedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#D0D0D0"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Bold(true)
)

type keyMap struct {
	Start  key.Binding
	Exit   key.Binding
	Delete key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Delete, k.Exit, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Start:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),
		Exit:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "exit session")),
		Delete: key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "delete")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

type tickMsg time.Time

type templatesChangedMsg struct{}

// Model implements the Bubble Tea experiment UI.
type Model struct {
	engine *engine.Engine
	now    func() time.Time
	keys   keyMap
	help   help.Model

	width  int
	height int

	completed   int
	lastSession string

	templateChanges <-chan struct{}
}

// NewModel wraps an engine whose loads have already been started.
func NewModel(e *engine.Engine) *Model {
	return &Model{
		engine: e,
		now:    time.Now,
		keys:   defaultKeyMap(),
		help:   help.New(),
	}
}

// WatchTemplates reloads the gesture library whenever changes delivers.
func (m *Model) WatchTemplates(changes <-chan struct{}) {
	m.templateChanges = changes
}

// Completed returns the number of sessions finished in this run.
func (m *Model) Completed() int {
	return m.completed
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.waitForTemplates())
}

func (m *Model) waitForTemplates() tea.Cmd {
	changes := m.templateChanges
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return templatesChangedMsg{}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tickMsg:
		m.engine.Poll()
		return m, tick()
	case templatesChangedMsg:
		m.engine.ReloadTemplates()
		return m, m.waitForTemplates()
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		m.handleKey(msg)
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) {
	at := m.now()
	switch {
	case key.Matches(msg, m.keys.Start):
		m.send(input.KeyEvent("enter", false, at))
	case key.Matches(msg, m.keys.Exit):
		m.send(input.KeyEvent("escape", false, at))
	case key.Matches(msg, m.keys.Delete):
		m.send(input.KeyEvent("backspace", false, at))
	case msg.Type == tea.KeySpace:
		m.send(input.KeyEvent("space", false, at))
	case msg.Type == tea.KeyRunes:
		for _, r := range msg.Runes {
			name, shift, ok := input.KeyForRune(r)
			if !ok {
				continue
			}
			m.send(input.KeyEvent(name, shift, at))
		}
	}
}

func (m *Model) send(ev input.Event, ok bool) {
	if !ok {
		return
	}
	ctrl := m.engine.Controller()
	before := ctrl.State()
	m.engine.Frame([]input.Event{ev})
	if before == session.StateActive && ctrl.State() == session.StateEnded {
		m.completed++
		if s, ok := ctrl.Session(); ok {
			m.lastSession = s.ParticipantID
		}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	content := m.renderBody()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}
	content = lipgloss.NewStyle().Width(contentWidth).Render(m.wrapBody(contentWidth))
	footer := m.renderFooter()
	if m.height < 4 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 2
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLines := lipgloss.Place(m.width, 2, lipgloss.Center, lipgloss.Bottom, footer)
	return body + "\n" + footerLines
}

func (m *Model) renderBody() string {
	return m.wrapBody(0)
}

func (m *Model) wrapBody(width int) string {
	ctrl := m.engine.Controller()
	switch ctrl.State() {
	case session.StateActive:
		target := []rune(ctrl.Target())
		typed := []rune(ctrl.TypedText())
		cur, total := ctrl.TrialNumber()
		title := titleStyle.Render(fmt.Sprintf("Trial %d of %d", cur, total))
		phrase := wrapStyledRunes(buildStyledRunes(target, typed, len(typed)), width)
		return title + "\n\n" + phrase + "\n\n" + typedStyle.Render(ctrl.TypedText()) + cursorStyle.Render(" ")
	case session.StateEnded:
		return titleStyle.Render("Session complete") + "\n\n" +
			pendingStyle.Render(fmt.Sprintf("Participant %s recorded. Press enter for a new session.", m.lastSession))
	default:
		if ctrl.PhrasePool() == 0 {
			if m.engine.Loading() {
				return pendingStyle.Render("Loading phrases...")
			}
			return incorrectStyle.Render("No phrases loaded. Check the assets location.")
		}
		return titleStyle.Render("Ready") + "\n\n" + pendingStyle.Render("Press enter to start a session.")
	}
}

func (m *Model) renderFooter() string {
	ctrl := m.engine.Controller()
	segments := []string{ctrl.EntryType().String()}
	if ctrl.State() == session.StateActive {
		target := len([]rune(ctrl.Target()))
		progress := 0
		if target > 0 {
			progress = int(float64(len([]rune(ctrl.TypedText()))) / float64(target) * 100)
		}
		segments = append(segments, fmt.Sprintf("Progress %d%%", progress))
	}
	segments = append(segments,
		fmt.Sprintf("Phrases %d", ctrl.PhrasePool()),
		fmt.Sprintf("Completed %d", m.completed),
	)
	status := footerStyle.Render(strings.Join(segments, "  "))
	return status + "\n" + m.help.View(m.keys)
}
