package input

import (
	"log/slog"
	"time"

	"github.com/verte-zerg/entrylab/internal/geom"
	"github.com/verte-zerg/entrylab/internal/gesture"
)

// DefaultPokeDebounce is the minimum interval between presses of one poke key.
const DefaultPokeDebounce = 150 * time.Millisecond

// DeleteRune is the character a poke key carries to mean delete.
const DeleteRune = '\\'

// Editor applies edits to the typed buffer.
type Editor interface {
	InsertCharacter(r rune)
	DeleteCharacter()
}

// Palm consumes palm-surface contacts.
type Palm interface {
	Begin(source string, surface geom.Pose, tip geom.Vec3) gesture.Result
	Continue(source string, tip geom.Vec3) gesture.Result
	End(source string) gesture.Result
}

// Commands handles session-level requests.
type Commands interface {
	StartSession() bool
	ExitSession()
}

// Action is what the normalizer did with an event.
type Action int

const (
	ActionNone Action = iota
	ActionInsert
	ActionDelete
	ActionStroke
	ActionCommand
	ActionDebounced
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionInsert:
		return "insert"
	case ActionDelete:
		return "delete"
	case ActionStroke:
		return "stroke"
	case ActionCommand:
		return "command"
	case ActionDebounced:
		return "debounced"
	default:
		return "unknown"
	}
}

// Outcome reports the effect of one event.
type Outcome struct {
	Action  Action
	Rune    rune
	Stroke  gesture.Result
	Command Command
}

// Config holds per-modality debounce intervals. A zero interval never
// suppresses a press.
type Config struct {
	KeyDebounce  time.Duration
	PokeDebounce time.Duration
}

// Normalizer routes events to the editor, the palm pipeline and the
// session commands.
type Normalizer struct {
	cfg      Config
	editor   Editor
	palm     Palm
	commands Commands
	logger   *slog.Logger

	next map[string]time.Time
}

// NewNormalizer wires the collaborators. Any of them may be nil, in which
// case events for it are dropped.
func NewNormalizer(cfg Config, editor Editor, palm Palm, commands Commands, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		cfg:      cfg,
		editor:   editor,
		palm:     palm,
		commands: commands,
		logger:   logger,
		next:     make(map[string]time.Time),
	}
}

// Reset forgets debounce history.
func (n *Normalizer) Reset() {
	clear(n.next)
}

// Handle applies one event.
func (n *Normalizer) Handle(ev Event) Outcome {
	switch ev.Kind {
	case KindKey:
		if ev.Phase != PhaseStart {
			return Outcome{}
		}
		return n.edit(ev, n.cfg.KeyDebounce)
	case KindPoke:
		if ev.Phase != PhaseStart || ev.Finger != FingerIndex {
			return Outcome{}
		}
		return n.edit(ev, n.cfg.PokeDebounce)
	case KindPalm:
		return n.stroke(ev)
	case KindCommand:
		return n.command(ev)
	default:
		n.logger.Debug("unknown input kind", "kind", ev.Kind, "source", ev.Source)
		return Outcome{}
	}
}

func (n *Normalizer) edit(ev Event, interval time.Duration) Outcome {
	if !n.admit(ev, interval) {
		return Outcome{Action: ActionDebounced}
	}
	if n.editor == nil {
		return Outcome{}
	}
	if ev.Delete || (ev.Kind == KindPoke && ev.Rune == DeleteRune) {
		n.editor.DeleteCharacter()
		return Outcome{Action: ActionDelete}
	}
	if ev.Rune == 0 {
		return Outcome{}
	}
	n.editor.InsertCharacter(ev.Rune)
	return Outcome{Action: ActionInsert, Rune: ev.Rune}
}

func (n *Normalizer) stroke(ev Event) Outcome {
	if n.palm == nil {
		return Outcome{}
	}
	var res gesture.Result
	switch ev.Phase {
	case PhaseStart:
		if ev.Finger != FingerIndex {
			return Outcome{}
		}
		res = n.palm.Begin(ev.Source, ev.Surface, ev.Tip)
	case PhaseContinue:
		res = n.palm.Continue(ev.Source, ev.Tip)
	case PhaseEnd:
		res = n.palm.End(ev.Source)
	}
	if res.Outcome == gesture.OutcomeIgnored {
		return Outcome{}
	}
	out := Outcome{Action: ActionStroke, Stroke: res}
	if res.Outcome == gesture.OutcomeRecognized {
		out.Rune = res.Rune
	}
	return out
}

// command fires on key press for keyboards and when the fingertip leaves
// the button for tracked contacts.
func (n *Normalizer) command(ev Event) Outcome {
	fire := PhaseEnd
	if ev.Finger == FingerNone {
		fire = PhaseStart
	}
	if ev.Phase != fire || n.commands == nil {
		return Outcome{}
	}
	switch ev.Command {
	case CommandStartSession:
		n.commands.StartSession()
	case CommandExitSession:
		n.commands.ExitSession()
		n.Reset()
	default:
		return Outcome{}
	}
	return Outcome{Action: ActionCommand, Command: ev.Command}
}

// admit reports whether source may trigger at ev.Time and, if so, starts
// its next quiet interval.
func (n *Normalizer) admit(ev Event, interval time.Duration) bool {
	if interval <= 0 {
		return true
	}
	if next, ok := n.next[ev.Source]; ok && ev.Time.Before(next) {
		n.logger.Debug("press debounced", "source", ev.Source, "wait", next.Sub(ev.Time))
		return false
	}
	n.next[ev.Source] = ev.Time.Add(interval)
	return true
}
