package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const wrongSpaceRune = '•'

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// buildStyledRunes colours the target phrase by what has been typed so far.
// Completion is by length, so a mistyped rune stays in place and is shown
// as incorrect.
func buildStyledRunes(targetRunes, typedRunes []rune, cursorIndex int) []styledRune {
	words := findWords(targetRunes)
	currentWord := wordForCursor(words, cursorIndex)

	out := make([]styledRune, 0, len(targetRunes))
	for i, target := range targetRunes {
		displayed := target
		style := pendingStyle
		switch {
		case i < len(typedRunes) && target == ' ' && typedRunes[i] != ' ':
			displayed = wrongSpaceRune
			style = incorrectStyle
		case i < len(typedRunes) && typedRunes[i] == target:
			style = correctStyle
		case i < len(typedRunes):
			style = incorrectStyle
		case target != ' ' && currentWord != nil && i >= currentWord.start && i < currentWord.end:
			style = currentWordStyle
		}
		if i == cursorIndex {
			style = style.Underline(true)
		}
		out = append(out, styledRune{
			s:       style.Render(string(displayed)),
			width:   runewidth.RuneWidth(displayed),
			isSpace: target == ' ',
		})
	}
	return out
}

type wordRange struct {
	start int
	end   int
}

func findWords(runes []rune) []wordRange {
	var words []wordRange
	start := -1
	for i, r := range runes {
		if r == ' ' {
			if start != -1 {
				words = append(words, wordRange{start: start, end: i})
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, wordRange{start: start, end: len(runes)})
	}
	return words
}

// wordForCursor returns the word the cursor is in, or the next one when it
// sits on a space.
func wordForCursor(words []wordRange, cursorIndex int) *wordRange {
	for i := range words {
		if cursorIndex < words[i].end {
			return &words[i]
		}
	}
	return nil
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks at the last space that fits, or mid-word when a
// word is wider than the line.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var lines []string
	var line []styledRune
	lineWidth, lastSpace := 0, -1
	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			cut := len(line)
			var rest []styledRune
			if lastSpace >= 0 {
				cut = lastSpace
				rest = append(rest, line[lastSpace+1:]...)
			}
			lines = append(lines, renderStyledRunes(line[:cut]))
			line = rest
			lineWidth, lastSpace = 0, -1
			for j, r := range line {
				lineWidth += r.width
				if r.isSpace {
					lastSpace = j
				}
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpace = len(line) - 1
		}
		i++
	}
	lines = append(lines, renderStyledRunes(line))
	return strings.Join(lines, "\n")
}
