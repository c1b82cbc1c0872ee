// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// EntryType names the input modality a session is run with.
type EntryType int

const (
	EntryStandard EntryType = iota
	EntryPinchT9
)

func (e EntryType) String() string {
	switch e {
	case EntryStandard:
		return "Standard"
	case EntryPinchT9:
		return "PinchT9"
	default:
		return fmt.Sprintf("EntryType(%d)", int(e))
	}
}

// ParseEntryType accepts the names produced by String, case-insensitively.
func ParseEntryType(s string) (EntryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "":
		return EntryStandard, nil
	case "pincht9", "pinch-t9":
		return EntryPinchT9, nil
	default:
		return 0, fmt.Errorf("unknown entry type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e EntryType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EntryType) UnmarshalText(b []byte) error {
	parsed, err := ParseEntryType(string(b))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// EventKind is the primitive edit recorded for an input event.
type EventKind int

const (
	EventInsert EventKind = iota
	EventDelete
)

func (k EventKind) String() string {
	switch k {
	case EventInsert:
		return "InsertCharacter"
	case EventDelete:
		return "DeleteCharacter"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "InsertCharacter":
		*k = EventInsert
	case "DeleteCharacter":
		*k = EventDelete
	default:
		return fmt.Errorf("unknown event type %q", string(b))
	}
	return nil
}

// InputEvent is one insert or delete applied to the typed buffer.
// Character is empty for deletes.
type InputEvent struct {
	Time         time.Time `json:"time"`
	Kind         EventKind `json:"eventType"`
	Character    string    `json:"character,omitempty"`
	CursorBefore int       `json:"cursorBefore"`
	CursorAfter  int       `json:"cursorAfter"`
}

// Trial is one timed attempt at typing a target phrase.
type Trial struct {
	PhraseIndex  int          `json:"phraseIndex"`
	TargetPhrase string       `json:"targetPhrase"`
	FinalText    string       `json:"finalText"`
	StartedAt    time.Time    `json:"startTime"`
	EndedAt      time.Time    `json:"endTime"`
	Events       []InputEvent `json:"events"`
}

// Session is one participant's full run of trials.
type Session struct {
	ParticipantID string    `json:"participantId"`
	EntryType     EntryType `json:"entryType"`
	StartedAt     time.Time `json:"sessionStartTime"`
	EndedAt       time.Time `json:"sessionEndTime"`
	Trials        []Trial   `json:"trials"`
}

// SessionSummary is a listing row for a persisted session.
type SessionSummary struct {
	ParticipantID string
	EntryType     EntryType
	StartedAt     time.Time
	EndedAt       time.Time
	Trials        int
	Events        int
}

// Config defines experiment settings.
type Config struct {
	Trials    int
	EntryType EntryType
	Assets    string
	Phrases   string
	OutputDir string
}

// GestureConfig defines palm-writing capture settings.
type GestureConfig struct {
	Threshold  float64
	MinSamples int
	Templates  string
}

// InputConfig defines per-modality debounce intervals.
type InputConfig struct {
	KeyDebounce  time.Duration
	PokeDebounce time.Duration
}
