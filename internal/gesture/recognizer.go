package gesture

import (
	"log/slog"

	"github.com/verte-zerg/entrylab/internal/geom"
)

// Editor receives recognized characters.
type Editor interface {
	InsertCharacter(r rune)
}

// Outcome describes how a contact ended.
type Outcome int

const (
	// OutcomeIgnored means the event did not belong to the active contact.
	OutcomeIgnored Outcome = iota
	// OutcomeRecording means the contact is still in progress.
	OutcomeRecording
	// OutcomeDiscarded means the stroke was too sparse to classify.
	OutcomeDiscarded
	// OutcomeNoMatch means the classifier found no template.
	OutcomeNoMatch
	// OutcomeRecognized means a character was inserted.
	OutcomeRecognized
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRecording:
		return "recording"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeNoMatch:
		return "no-match"
	case OutcomeRecognized:
		return "recognized"
	default:
		return "unknown"
	}
}

// Result reports what a contact event did.
type Result struct {
	Outcome Outcome
	Rune    rune
	Label   string
	Samples int
}

// Recognizer drives one Capture from a contact stream and forwards
// recognized characters to an Editor.
type Recognizer struct {
	capture    *Capture
	classifier Classifier
	editor     Editor
	logger     *slog.Logger

	templates []Template
	active    string
	last      PointSet
}

// NewRecognizer wires a capture to a classifier and editor.
func NewRecognizer(cfg CaptureConfig, classifier Classifier, editor Editor, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{
		capture:    NewCapture(cfg),
		classifier: classifier,
		editor:     editor,
		logger:     logger,
	}
}

// SetTemplates replaces the template library.
func (r *Recognizer) SetTemplates(templates []Template) {
	r.templates = append([]Template(nil), templates...)
}

// Templates returns the number of loaded templates.
func (r *Recognizer) Templates() int {
	return len(r.templates)
}

// LastPointSet returns the most recent stroke that passed the sample gate.
func (r *Recognizer) LastPointSet() (PointSet, bool) {
	if len(r.last) == 0 {
		return nil, false
	}
	return r.last, true
}

// Begin starts a contact from source. A second source touching while a
// contact is active is ignored.
func (r *Recognizer) Begin(source string, surface geom.Pose, tip geom.Vec3) Result {
	if r.capture.Recording() {
		return Result{Outcome: OutcomeIgnored}
	}
	if !r.capture.Begin(surface, tip) {
		r.logger.Warn("palm surface has no facing direction; contact ignored", "source", source)
		return Result{Outcome: OutcomeIgnored}
	}
	r.active = source
	return Result{Outcome: OutcomeRecording, Samples: r.capture.Accepted()}
}

// Continue adds a sample from the active source.
func (r *Recognizer) Continue(source string, tip geom.Vec3) Result {
	if !r.capture.Recording() || source != r.active {
		return Result{Outcome: OutcomeIgnored}
	}
	r.capture.Sample(tip)
	return Result{Outcome: OutcomeRecording, Samples: r.capture.Accepted()}
}

// End finishes the active contact and classifies it.
func (r *Recognizer) End(source string) Result {
	if !r.capture.Recording() || source != r.active {
		return Result{Outcome: OutcomeIgnored}
	}
	r.active = ""
	samples := r.capture.Accepted()
	stroke, ok := r.capture.End()
	if !ok {
		r.logger.Debug("stroke discarded", "samples", samples)
		return Result{Outcome: OutcomeDiscarded, Samples: samples}
	}
	points := stroke.PointSet()
	r.last = points

	if r.classifier == nil {
		return Result{Outcome: OutcomeNoMatch, Samples: samples}
	}
	label, matched := r.classifier.Classify(points, r.templates)
	ch, ok := labelRune(label, matched)
	if !ok {
		r.logger.Debug("stroke matched no template", "samples", samples, "templates", len(r.templates))
		return Result{Outcome: OutcomeNoMatch, Label: label, Samples: samples}
	}
	if r.editor != nil {
		r.editor.InsertCharacter(ch)
	}
	return Result{Outcome: OutcomeRecognized, Rune: ch, Label: label, Samples: samples}
}

// Cancel abandons the active contact without classifying it.
func (r *Recognizer) Cancel() {
	r.capture.Reset()
	r.active = ""
}
