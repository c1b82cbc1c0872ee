package input

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/entrylab/internal/geom"
)

// record is one line of a recorded input stream.
type record struct {
	T       float64    `json:"t"`
	Source  string     `json:"source"`
	Kind    Kind       `json:"kind"`
	Phase   Phase      `json:"phase"`
	Finger  Finger     `json:"finger"`
	Char    string     `json:"char"`
	Key     string     `json:"key"`
	Shift   bool       `json:"shift"`
	Delete  bool       `json:"delete"`
	Command Command    `json:"command"`
	Tip     geom.Vec3  `json:"tip"`
	Surface *geom.Pose `json:"surface"`
}

// ReadStream decodes a JSON-lines input recording. Each line carries a
// time offset t in seconds from start. Keyboard lines name a key and are
// resolved the way a live keyboard is. A palm line without a surface reuses
// the last surface seen for its source. Blank lines and lines starting with
// '#' are skipped.
func ReadStream(r io.Reader, start time.Time) ([]Event, error) {
	var events []Event
	surfaces := make(map[string]geom.Pose)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if math.IsNaN(rec.T) || rec.T < 0 {
			return nil, fmt.Errorf("line %d: invalid time offset %v", line, rec.T)
		}
		at := start.Add(time.Duration(rec.T * float64(time.Second)))

		if rec.Key != "" {
			ev, ok := KeyEvent(rec.Key, rec.Shift, at)
			if !ok {
				return nil, fmt.Errorf("line %d: unmapped key %q", line, rec.Key)
			}
			events = append(events, ev)
			continue
		}

		ev := Event{
			Time:    at,
			Source:  rec.Source,
			Kind:    rec.Kind,
			Phase:   rec.Phase,
			Finger:  rec.Finger,
			Delete:  rec.Delete,
			Command: rec.Command,
			Tip:     rec.Tip,
		}
		if ev.Source == "" {
			ev.Source = ev.Kind.String()
		}
		if rec.Char != "" {
			runes := []rune(rec.Char)
			if len(runes) != 1 {
				return nil, fmt.Errorf("line %d: char must be a single character, got %q", line, rec.Char)
			}
			ev.Rune = runes[0]
		}
		if rec.Surface != nil {
			surfaces[ev.Source] = *rec.Surface
		}
		ev.Surface = surfaces[ev.Source]
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input stream: %w", err)
	}
	return events, nil
}
