package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/entrylab/internal/assets"
	"github.com/verte-zerg/entrylab/internal/clock"
	"github.com/verte-zerg/entrylab/internal/geom"
	"github.com/verte-zerg/entrylab/internal/gesture"
	"github.com/verte-zerg/entrylab/internal/input"
	"github.com/verte-zerg/entrylab/internal/metrics"
	"github.com/verte-zerg/entrylab/internal/model"
	"github.com/verte-zerg/entrylab/internal/phrases"
	"github.com/verte-zerg/entrylab/internal/session"
	"github.com/verte-zerg/entrylab/internal/templates"
)

type sessionLog struct {
	mu       sync.Mutex
	sessions []model.Session
}

func (l *sessionLog) Record(_ context.Context, s model.Session) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions = append(l.sessions, s)
	return nil
}

// gatedSource blocks every fetch until release is closed.
type gatedSource struct {
	release chan struct{}
	data    []byte
}

func (g *gatedSource) Location() string { return "gated" }

func (g *gatedSource) Fetch(ctx context.Context, _ string) ([]byte, error) {
	select {
	case <-g.release:
		return g.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func keys(t *testing.T, at time.Time, names ...string) []input.Event {
	t.Helper()
	out := make([]input.Event, 0, len(names))
	for _, name := range names {
		ev, ok := input.KeyEvent(name, false, at)
		require.True(t, ok, name)
		out = append(out, ev)
	}
	return out
}

func spell(t *testing.T, at time.Time, s string) []input.Event {
	names := make([]string, 0, len(s))
	for _, r := range s {
		if r == ' ' {
			names = append(names, "space")
			continue
		}
		names = append(names, string(r))
	}
	return keys(t, at, names...)
}

func newEngine(t *testing.T, deps Deps, trials int) *Engine {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = clock.NewManual(time.Unix(1_700_000_000, 0))
	}
	if deps.Sampler == nil {
		deps.Sampler = phrases.NewSeededSampler(1)
	}
	e := New(Config{Trials: trials}, deps)
	e.Start(context.Background())
	t.Cleanup(e.Close)
	return e
}

func TestKeyboardSessionEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, phrases.DefaultFile, "The Cat Sat\n")
	log := &sessionLog{}
	m := metrics.New()
	e := newEngine(t, Deps{Phrases: assets.NewDir(dir), Recorder: log, Metrics: m}, 2)

	require.NoError(t, e.Wait(context.Background()))
	assert.Equal(t, 1, e.Controller().PhrasePool())
	assert.False(t, e.Loading())

	now := time.Unix(1_700_000_000, 0)
	e.Frame(keys(t, now, "enter"))
	require.Equal(t, session.StateActive, e.Controller().State())
	assert.Equal(t, "the cat sat", e.Controller().Target())

	e.Frame(spell(t, now, "the cat sat"))
	e.Frame(spell(t, now, "the cat sa"))
	e.Frame(keys(t, now, "backspace"))
	e.Frame(spell(t, now, "at"))

	assert.Equal(t, session.StateEnded, e.Controller().State())
	require.Len(t, log.sessions, 1)
	s := log.sessions[0]
	require.Len(t, s.Trials, 2)
	assert.Equal(t, "the cat sat", s.Trials[1].FinalText)
	assert.Len(t, s.Trials[1].Events, 13)
}

func TestExitDropsStalePhraseLoad(t *testing.T) {
	src := &gatedSource{release: make(chan struct{}), data: []byte("late phrase\n")}
	e := newEngine(t, Deps{Phrases: src}, 1)
	first := e.phraseLoad
	epoch := e.Controller().Epoch()

	e.ExitSession()
	assert.NotEqual(t, epoch, e.Controller().Epoch())
	assert.NotSame(t, first, e.phraseLoad)

	close(src.release)
	require.NoError(t, e.Wait(context.Background()))
	assert.Equal(t, 1, e.Controller().PhrasePool())
	assert.Equal(t, e.Controller().Epoch(), e.phraseEpoch)
}

func TestStalePhraseResultRejectedByController(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, phrases.DefaultFile, "one\n")
	e := newEngine(t, Deps{Phrases: assets.NewDir(dir)}, 1)
	_, _ = e.phraseLoad.Wait(context.Background())

	// Simulate an exit that bypassed the engine.
	e.Controller().ExitSession()
	assert.False(t, e.Poll())
	assert.Equal(t, 0, e.Controller().PhrasePool())
}

func TestMissingPhrasesLeavesPoolEmpty(t *testing.T) {
	e := newEngine(t, Deps{Phrases: assets.NewDir(t.TempDir())}, 1)
	require.NoError(t, e.Wait(context.Background()))
	assert.Equal(t, 0, e.Controller().PhrasePool())
	assert.False(t, e.StartSession())
}

func palmStroke(at time.Time, samples int) []input.Event {
	surface := geom.Pose{Forward: geom.Vec3{Z: 1}}
	events := []input.Event{{
		Time: at, Source: "palm", Kind: input.KindPalm, Phase: input.PhaseStart,
		Finger: input.FingerIndex, Surface: surface,
	}}
	for i := 1; i < samples; i++ {
		events = append(events, input.Event{
			Time: at, Source: "palm", Kind: input.KindPalm, Phase: input.PhaseContinue,
			Tip: geom.Vec3{X: 0.02 * float64(i), Y: 0.005 * float64(i)},
		})
	}
	return append(events, input.Event{Time: at, Source: "palm", Kind: input.KindPalm, Phase: input.PhaseEnd})
}

func TestPalmStrokeInsertsCharacter(t *testing.T) {
	phraseDir := t.TempDir()
	writeFile(t, phraseDir, phrases.DefaultFile, "bb\n")
	tmplDir := t.TempDir()
	writeFile(t, tmplDir, "b_1.json", `{"name":"B","points":[{"x":0,"y":0,"z":0},{"x":1,"y":1,"z":0}]}`)

	var seen int
	classifier := gesture.ClassifierFunc(func(_ gesture.PointSet, ts []gesture.Template) (string, bool) {
		seen = len(ts)
		return "B", true
	})
	m := metrics.New()
	e := newEngine(t, Deps{
		Phrases:    assets.NewDir(phraseDir),
		Templates:  templates.New(assets.NewDir(tmplDir), nil),
		Classifier: classifier,
		Metrics:    m,
	}, 1)
	require.NoError(t, e.Wait(context.Background()))
	require.Equal(t, 1, e.Recognizer().Templates())

	now := time.Unix(1_700_000_000, 0)
	require.True(t, e.StartSession())
	outs := e.Frame(palmStroke(now, 25))
	last := outs[len(outs)-1]
	assert.Equal(t, input.ActionStroke, last.Action)
	assert.Equal(t, gesture.OutcomeRecognized, last.Stroke.Outcome)
	assert.Equal(t, 'b', last.Rune)
	assert.Equal(t, 1, seen)
	assert.Equal(t, "b", e.Controller().TypedText())

	// Too few samples: discarded, nothing typed.
	outs = e.Frame(palmStroke(now, 10))
	assert.Equal(t, gesture.OutcomeDiscarded, outs[len(outs)-1].Stroke.Outcome)
	assert.Equal(t, "b", e.Controller().TypedText())
}

func TestTemplateReloadHeldDuringSession(t *testing.T) {
	phraseDir := t.TempDir()
	writeFile(t, phraseDir, phrases.DefaultFile, "abc\n")
	tmplDir := t.TempDir()
	writeFile(t, tmplDir, "a_1.json", `{"name":"a","points":[{"x":0,"y":0,"z":0}]}`)

	e := newEngine(t, Deps{
		Phrases:   assets.NewDir(phraseDir),
		Templates: templates.New(assets.NewDir(tmplDir), nil),
	}, 1)
	require.NoError(t, e.Wait(context.Background()))
	require.Equal(t, 1, e.Recognizer().Templates())

	require.True(t, e.StartSession())
	writeFile(t, tmplDir, "b_1.json", `{"name":"b","points":[{"x":0,"y":0,"z":0}]}`)
	e.ReloadTemplates()
	require.NoError(t, e.Wait(context.Background()))
	assert.Equal(t, 1, e.Recognizer().Templates(), "held while active")

	e.ExitSession()
	require.NoError(t, e.Wait(context.Background()))
	assert.Equal(t, 2, e.Recognizer().Templates())
}

func TestPokeDeleteThroughEngine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, phrases.DefaultFile, "hello\n")
	e := New(Config{Trials: 1, Input: input.Config{PokeDebounce: input.DefaultPokeDebounce}}, Deps{
		Phrases: assets.NewDir(dir),
		Clock:   clock.NewManual(time.Unix(0, 0)),
	})
	e.Start(context.Background())
	defer e.Close()
	require.NoError(t, e.Wait(context.Background()))
	require.True(t, e.StartSession())

	at := time.Unix(10, 0)
	poke := func(source string, r rune, d time.Duration) input.Event {
		return input.Event{Time: at.Add(d), Source: source, Kind: input.KindPoke, Phase: input.PhaseStart, Finger: input.FingerIndex, Rune: r}
	}
	e.Frame([]input.Event{
		poke("h", 'h', 0),
		poke("h", 'h', 50*time.Millisecond),
		poke("e", 'e', 60*time.Millisecond),
		poke("del", input.DeleteRune, 70*time.Millisecond),
	})
	assert.Equal(t, "h", e.Controller().TypedText())
}
