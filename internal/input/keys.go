package input

import (
	"strings"
	"time"
)

// KeySourcePrefix prefixes the source name of physical keyboard events, so
// each key debounces on its own.
const KeySourcePrefix = "key:"

var shiftedDigits = map[rune]rune{
	'0': ')', '1': '!', '2': '@', '3': '#', '4': '$',
	'5': '%', '6': '^', '7': '&', '8': '*', '9': '(',
}

// MapKey resolves a physical key name to the character it types. Only
// letters, digits and space produce characters; everything else is a
// control key.
func MapKey(name string, shift bool) (rune, bool) {
	name = strings.ToLower(name)
	if name == "space" || name == " " {
		return ' ', true
	}
	runes := []rune(name)
	if len(runes) != 1 {
		return 0, false
	}
	r := runes[0]
	switch {
	case r >= 'a' && r <= 'z':
		if shift {
			return r - 'a' + 'A', true
		}
		return r, true
	case r >= '0' && r <= '9':
		if shift {
			return shiftedDigits[r], true
		}
		return r, true
	}
	return 0, false
}

// KeyForRune returns the physical key and shift state that type r on a US
// layout, for front ends that only see the resulting character.
func KeyForRune(r rune) (name string, shift bool, ok bool) {
	switch {
	case r == ' ':
		return "space", false, true
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return string(r), false, true
	case r >= 'A' && r <= 'Z':
		return string(r - 'A' + 'a'), true, true
	}
	for digit, sym := range shiftedDigits {
		if sym == r {
			return string(digit), true, true
		}
	}
	return "", false, false
}

// KeyEvent builds the event for a keyboard key press. Enter starts a
// session, Esc exits one and Backspace deletes. ok is false for keys that
// do nothing.
func KeyEvent(name string, shift bool, at time.Time) (Event, bool) {
	name = strings.ToLower(name)
	ev := Event{Time: at, Source: KeySourcePrefix + name, Kind: KindKey, Phase: PhaseStart}
	switch name {
	case "enter", "return":
		ev.Kind = KindCommand
		ev.Command = CommandStartSession
		return ev, true
	case "esc", "escape":
		ev.Kind = KindCommand
		ev.Command = CommandExitSession
		return ev, true
	case "backspace":
		ev.Delete = true
		return ev, true
	}
	r, ok := MapKey(name, shift)
	if !ok {
		return Event{}, false
	}
	ev.Rune = r
	return ev, true
}
