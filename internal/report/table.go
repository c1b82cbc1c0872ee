// Package report renders CLI listings of stored sessions and templates.
package report

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const terminalWidthBackup = 120

var headerStyle = lipgloss.NewStyle().Bold(true)

// Table is a column-aligned text table.
type Table struct {
	Headers    []string
	Rows       [][]string
	RightAlign map[int]bool
}

// Lines formats the table without any width limit.
func (t Table) Lines() []string {
	return formatTable(t.Headers, t.Rows, t.RightAlign)
}

// Render writes the table to w. Lines are cut to the terminal width and the
// header is bold when w is a colour terminal.
func (t Table) Render(w io.Writer) error {
	lines := t.Lines()
	width, isTerm := writerWidth(w)
	color := isTerm && os.Getenv("NO_COLOR") == ""
	for i, line := range lines {
		if width > 0 {
			line = runewidth.Truncate(line, width, "…")
		}
		if i == 0 && len(t.Headers) > 0 && color {
			line = headerStyle.Render(line)
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = runewidth.StringWidth(header)
	}
	for _, row := range rows {
		for i := 0; i < colCount; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(padCell(cell, widths[i], rightAlignCols[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	valueWidth := runewidth.StringWidth(value)
	if valueWidth >= width {
		return value
	}
	padding := width - valueWidth
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

// writerWidth returns the terminal width behind w, or 0 when w is not a
// terminal.
func writerWidth(w io.Writer) (int, bool) {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup, true
	}
	return width, true
}
