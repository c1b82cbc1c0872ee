// Package input normalizes events from every modality into edits on the
// typed buffer, gesture contacts and session commands.
package input

import (
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/entrylab/internal/geom"
)

// Kind is the modality an event came from.
type Kind int

const (
	KindKey Kind = iota
	KindPoke
	KindPalm
	KindCommand
)

var kindNames = []string{"key", "poke", "palm", "command"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	i, err := lookup(kindNames, "kind", string(b))
	if err != nil {
		return err
	}
	*k = Kind(i)
	return nil
}

// Phase is where an event falls in a contact.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseContinue
	PhaseEnd
)

var phaseNames = []string{"start", "continue", "end"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	i, err := lookup(phaseNames, "phase", string(b))
	if err != nil {
		return err
	}
	*p = Phase(i)
	return nil
}

// Finger identifies the tracked fingertip that made contact. Keyboard
// events carry FingerNone.
type Finger int

const (
	FingerNone Finger = iota
	FingerThumb
	FingerIndex
	FingerMiddle
	FingerRing
	FingerLittle
)

var fingerNames = []string{"none", "thumb", "index", "middle", "ring", "little"}

func (f Finger) String() string {
	if f < 0 || int(f) >= len(fingerNames) {
		return fmt.Sprintf("Finger(%d)", int(f))
	}
	return fingerNames[f]
}

// MarshalText implements encoding.TextMarshaler.
func (f Finger) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Finger) UnmarshalText(b []byte) error {
	i, err := lookup(fingerNames, "finger", string(b))
	if err != nil {
		return err
	}
	*f = Finger(i)
	return nil
}

// Command is a session-level request.
type Command int

const (
	CommandNone Command = iota
	CommandStartSession
	CommandExitSession
)

var commandNames = []string{"none", "start", "exit"}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return fmt.Sprintf("Command(%d)", int(c))
	}
	return commandNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c Command) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Command) UnmarshalText(b []byte) error {
	i, err := lookup(commandNames, "command", string(b))
	if err != nil {
		return err
	}
	*c = Command(i)
	return nil
}

func lookup(names []string, what, value string) (int, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for i, name := range names {
		if name == value {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", what, value)
}

// Event is one normalized input from a named source. Source names a key,
// a poke key, a palm surface contact or a command button, and is the unit
// debouncing is applied to.
type Event struct {
	Time    time.Time
	Source  string
	Kind    Kind
	Phase   Phase
	Finger  Finger
	Rune    rune
	Delete  bool
	Command Command
	Tip     geom.Vec3
	Surface geom.Pose
}
