package gesture

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/verte-zerg/entrylab/internal/geom"
)

// PointSet is the 2D representation of a stroke submitted for
// classification.
type PointSet []geom.Vec2

// Template is a named, stored PointSet.
type Template struct {
	Name   string
	Points PointSet
}

// Classifier picks the best-matching template label for a candidate. It
// returns ok == false when nothing matches.
type Classifier interface {
	Classify(candidate PointSet, templates []Template) (label string, ok bool)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(candidate PointSet, templates []Template) (string, bool)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(candidate PointSet, templates []Template) (string, bool) {
	return f(candidate, templates)
}

// labelRune interprets a classifier label as one lower-cased character.
func labelRune(label string, ok bool) (rune, bool) {
	label = strings.TrimSpace(label)
	if !ok || label == "" {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(label)
	if r == utf8.RuneError {
		return 0, false
	}
	return unicode.ToLower(r), true
}
