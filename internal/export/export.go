// Package export writes finished session records as JSON files.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/verte-zerg/entrylab/internal/assets"
	"github.com/verte-zerg/entrylab/internal/model"
	"github.com/verte-zerg/entrylab/internal/session"
)

// FileName returns the record file name for a participant.
func FileName(participant string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, participant)
	return "session-" + clean + ".json"
}

// Marshal encodes a session as indented JSON with a trailing newline.
func Marshal(s model.Session) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return append(data, '\n'), nil
}

// Writer saves each session to its own file in Dir.
type Writer struct {
	Dir string
}

// Path returns where the record for participant is written.
func (w Writer) Path(participant string) string {
	return filepath.Join(w.Dir, FileName(participant))
}

// Record implements session.Recorder.
func (w Writer) Record(ctx context.Context, s model.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return assets.WriteFile(w.Path(s.ParticipantID), data)
}

// Multi hands every session to each recorder in order. All recorders run
// even when one fails; the errors are joined.
func Multi(recorders ...session.Recorder) session.Recorder {
	return session.RecorderFunc(func(ctx context.Context, s model.Session) error {
		var errs []error
		for _, r := range recorders {
			if r == nil {
				continue
			}
			if err := r.Record(ctx, s); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
