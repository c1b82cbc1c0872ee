package input

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/entrylab/internal/geom"
	"github.com/verte-zerg/entrylab/internal/gesture"
)

type fakeEditor struct {
	typed   []rune
	deletes int
}

func (e *fakeEditor) InsertCharacter(r rune) { e.typed = append(e.typed, r) }
func (e *fakeEditor) DeleteCharacter()       { e.deletes++ }

type fakeCommands struct {
	starts, exits int
}

func (c *fakeCommands) StartSession() bool { c.starts++; return true }
func (c *fakeCommands) ExitSession()       { c.exits++ }

type fakePalm struct {
	calls []string
}

func (p *fakePalm) Begin(source string, _ geom.Pose, _ geom.Vec3) gesture.Result {
	p.calls = append(p.calls, "begin:"+source)
	return gesture.Result{Outcome: gesture.OutcomeRecording}
}

func (p *fakePalm) Continue(source string, _ geom.Vec3) gesture.Result {
	p.calls = append(p.calls, "continue:"+source)
	return gesture.Result{Outcome: gesture.OutcomeRecording}
}

func (p *fakePalm) End(source string) gesture.Result {
	p.calls = append(p.calls, "end:"+source)
	return gesture.Result{Outcome: gesture.OutcomeRecognized, Rune: 'a', Label: "a"}
}

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func poke(source string, r rune, at time.Duration) Event {
	return Event{Time: t0.Add(at), Source: source, Kind: KindPoke, Phase: PhaseStart, Finger: FingerIndex, Rune: r}
}

func TestPokeDebouncePerSource(t *testing.T) {
	ed := &fakeEditor{}
	n := NewNormalizer(Config{PokeDebounce: DefaultPokeDebounce}, ed, nil, nil, nil)

	assert.Equal(t, ActionInsert, n.Handle(poke("q", 'q', 0)).Action)
	assert.Equal(t, ActionDebounced, n.Handle(poke("q", 'q', 100*time.Millisecond)).Action)
	assert.Equal(t, ActionInsert, n.Handle(poke("w", 'w', 110*time.Millisecond)).Action)
	assert.Equal(t, ActionInsert, n.Handle(poke("q", 'q', 150*time.Millisecond)).Action)
	assert.Equal(t, "qwq", string(ed.typed))
}

func TestPokeRequiresIndexFingerAndStart(t *testing.T) {
	ed := &fakeEditor{}
	n := NewNormalizer(Config{}, ed, nil, nil, nil)

	ev := poke("q", 'q', 0)
	ev.Finger = FingerMiddle
	assert.Equal(t, ActionNone, n.Handle(ev).Action)
	ev = poke("q", 'q', 0)
	ev.Phase = PhaseEnd
	assert.Equal(t, ActionNone, n.Handle(ev).Action)
	assert.Empty(t, ed.typed)
}

func TestPokeBackslashDeletes(t *testing.T) {
	ed := &fakeEditor{}
	n := NewNormalizer(Config{}, ed, nil, nil, nil)
	out := n.Handle(poke("del", DeleteRune, 0))
	assert.Equal(t, ActionDelete, out.Action)
	assert.Equal(t, 1, ed.deletes)
	assert.Empty(t, ed.typed)
}

func TestKeyboardEvents(t *testing.T) {
	ed := &fakeEditor{}
	cmds := &fakeCommands{}
	n := NewNormalizer(Config{}, ed, nil, cmds, nil)

	for _, k := range []struct {
		name  string
		shift bool
	}{{"enter", false}, {"h", true}, {"i", false}, {"space", false}, {"1", true}, {"backspace", false}, {"escape", false}} {
		ev, ok := KeyEvent(k.name, k.shift, t0)
		require.True(t, ok, k.name)
		n.Handle(ev)
	}
	assert.Equal(t, "Hi !", string(ed.typed))
	assert.Equal(t, 1, ed.deletes)
	assert.Equal(t, 1, cmds.starts)
	assert.Equal(t, 1, cmds.exits)

	_, ok := KeyEvent("f5", false, t0)
	assert.False(t, ok)
}

func TestMapKey(t *testing.T) {
	cases := []struct {
		name  string
		shift bool
		want  rune
		ok    bool
	}{
		{"a", false, 'a', true},
		{"Z", true, 'Z', true},
		{"0", true, ')', true},
		{"5", false, '5', true},
		{"space", true, ' ', true},
		{"tab", false, 0, false},
		{"-", false, 0, false},
	}
	for _, tc := range cases {
		got, ok := MapKey(tc.name, tc.shift)
		assert.Equal(t, tc.ok, ok, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestKeyForRuneRoundTrip(t *testing.T) {
	for _, r := range "aZ09!@#$%^&*() " {
		name, shift, ok := KeyForRune(r)
		require.True(t, ok, string(r))
		got, ok := MapKey(name, shift)
		require.True(t, ok, string(r))
		assert.Equal(t, r, got)
	}
	_, _, ok := KeyForRune('-')
	assert.False(t, ok)
}

func TestCommandButtonsFireOnContactEnd(t *testing.T) {
	cmds := &fakeCommands{}
	n := NewNormalizer(Config{}, nil, nil, cmds, nil)
	button := Event{Source: "start-button", Kind: KindCommand, Finger: FingerThumb, Command: CommandStartSession}

	button.Phase = PhaseStart
	assert.Equal(t, ActionNone, n.Handle(button).Action)
	button.Phase = PhaseEnd
	out := n.Handle(button)
	assert.Equal(t, ActionCommand, out.Action)
	assert.Equal(t, CommandStartSession, out.Command)
	assert.Equal(t, 1, cmds.starts)
}

func TestPalmRouting(t *testing.T) {
	palm := &fakePalm{}
	n := NewNormalizer(Config{}, nil, palm, nil, nil)

	ev := Event{Source: "palm", Kind: KindPalm, Phase: PhaseStart, Finger: FingerMiddle}
	assert.Equal(t, ActionNone, n.Handle(ev).Action)
	ev.Finger = FingerIndex
	assert.Equal(t, ActionStroke, n.Handle(ev).Action)
	ev.Phase = PhaseContinue
	n.Handle(ev)
	ev.Phase = PhaseEnd
	out := n.Handle(ev)
	assert.Equal(t, ActionStroke, out.Action)
	assert.Equal(t, 'a', out.Rune)
	assert.Equal(t, []string{"begin:palm", "continue:palm", "end:palm"}, palm.calls)
}

func TestReadStream(t *testing.T) {
	src := `# recorded session
{"t": 0, "key": "enter"}
{"t": 0.5, "key": "a", "shift": true}
{"t": 0.6, "source": "poke-b", "kind": "poke", "phase": "start", "finger": "index", "char": "b"}

{"t": 1.0, "source": "palm", "kind": "palm", "phase": "start", "finger": "index", "tip": {"x": 0, "y": 0, "z": 0.1}, "surface": {"position": {"x": 0, "y": 0, "z": 0}, "forward": {"x": 0, "y": 0, "z": 1}}}
{"t": 1.1, "source": "palm", "kind": "palm", "phase": "continue", "tip": {"x": 0.02, "y": 0, "z": 0.1}}
{"t": 2, "source": "exit", "kind": "command", "phase": "end", "finger": "index", "command": "exit"}
`
	events, err := ReadStream(strings.NewReader(src), t0)
	require.NoError(t, err)
	require.Len(t, events, 6)

	assert.Equal(t, KindCommand, events[0].Kind)
	assert.Equal(t, CommandStartSession, events[0].Command)
	assert.Equal(t, 'A', events[1].Rune)
	assert.Equal(t, t0.Add(500*time.Millisecond), events[1].Time)
	assert.Equal(t, KindPoke, events[2].Kind)
	assert.Equal(t, 'b', events[2].Rune)
	assert.Equal(t, FingerIndex, events[2].Finger)
	assert.Equal(t, geom.Vec3{Z: 1}, events[4].Surface.Forward, "surface carried over")
	assert.Equal(t, CommandExitSession, events[5].Command)
}

func TestReadStreamErrors(t *testing.T) {
	_, err := ReadStream(strings.NewReader(`{"t": 0, "kind": "hover"}`), t0)
	assert.Error(t, err)
	_, err = ReadStream(strings.NewReader(`{"t": 0, "key": "f12"}`), t0)
	assert.Error(t, err)
	_, err = ReadStream(strings.NewReader(`{"t": -1, "key": "a"}`), t0)
	assert.Error(t, err)
	_, err = ReadStream(strings.NewReader(`{"t": 0, "kind": "poke", "char": "ab"}`), t0)
	assert.Error(t, err)
}
