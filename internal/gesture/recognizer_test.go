package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/entrylab/internal/geom"
)

type recordingEditor struct {
	inserted []rune
}

func (e *recordingEditor) InsertCharacter(r rune) {
	e.inserted = append(e.inserted, r)
}

func fixedLabel(label string, ok bool) Classifier {
	return ClassifierFunc(func(PointSet, []Template) (string, bool) { return label, ok })
}

func drawLine(r *Recognizer, source string, samples int) Result {
	r.Begin(source, facingZ, geom.Vec3{})
	for i := 1; i < samples; i++ {
		r.Continue(source, geom.Vec3{X: 0.02 * float64(i)})
	}
	return r.End(source)
}

func TestRecognizerInsertsLowerCasedLabel(t *testing.T) {
	editor := &recordingEditor{}
	var seen []Template
	classifier := ClassifierFunc(func(_ PointSet, templates []Template) (string, bool) {
		seen = templates
		return "A", true
	})
	r := NewRecognizer(CaptureConfig{}, classifier, editor, nil)
	r.SetTemplates([]Template{{Name: "a"}, {Name: "b"}})

	res := drawLine(r, "index", 25)
	require.Equal(t, OutcomeRecognized, res.Outcome)
	assert.Equal(t, 'a', res.Rune)
	assert.Equal(t, []rune{'a'}, editor.inserted)
	assert.Len(t, seen, 2)

	points, ok := r.LastPointSet()
	require.True(t, ok)
	assert.Len(t, points, 25)
}

func TestRecognizerDiscardsFifteenSampleStroke(t *testing.T) {
	editor := &recordingEditor{}
	called := false
	classifier := ClassifierFunc(func(PointSet, []Template) (string, bool) {
		called = true
		return "a", true
	})
	r := NewRecognizer(CaptureConfig{}, classifier, editor, nil)

	res := drawLine(r, "index", 15)
	assert.Equal(t, OutcomeDiscarded, res.Outcome)
	assert.Equal(t, 15, res.Samples)
	assert.False(t, called)
	assert.Empty(t, editor.inserted)
}

func TestRecognizerNoMatchInsertsNothing(t *testing.T) {
	for _, c := range []Classifier{fixedLabel("", true), fixedLabel("a", false), nil} {
		editor := &recordingEditor{}
		r := NewRecognizer(CaptureConfig{}, c, editor, nil)
		res := drawLine(r, "index", 30)
		assert.Equal(t, OutcomeNoMatch, res.Outcome)
		assert.Empty(t, editor.inserted)
	}
}

func TestRecognizerIgnoresOtherSources(t *testing.T) {
	editor := &recordingEditor{}
	r := NewRecognizer(CaptureConfig{MinSamples: 2}, fixedLabel("b", true), editor, nil)

	require.Equal(t, OutcomeRecording, r.Begin("index", facingZ, geom.Vec3{}).Outcome)
	assert.Equal(t, OutcomeIgnored, r.Begin("middle", facingZ, geom.Vec3{X: 1}).Outcome)
	assert.Equal(t, OutcomeIgnored, r.Continue("middle", geom.Vec3{X: 0.5}).Outcome)
	assert.Equal(t, OutcomeIgnored, r.End("middle").Outcome)
	r.Continue("index", geom.Vec3{X: 0.05})
	res := r.End("index")
	assert.Equal(t, OutcomeRecognized, res.Outcome)
	assert.Equal(t, []rune{'b'}, editor.inserted)
}

func TestRecognizerCancel(t *testing.T) {
	editor := &recordingEditor{}
	r := NewRecognizer(CaptureConfig{MinSamples: 1}, fixedLabel("c", true), editor, nil)
	r.Begin("index", facingZ, geom.Vec3{})
	r.Cancel()
	assert.Equal(t, OutcomeIgnored, r.End("index").Outcome)
	assert.Empty(t, editor.inserted)
}

func TestLabelRune(t *testing.T) {
	r, ok := labelRune(" Q ", true)
	assert.True(t, ok)
	assert.Equal(t, 'q', r)
	_, ok = labelRune("   ", true)
	assert.False(t, ok)
}
