package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
	isBreak bool
	marked  bool
}

// buildStyledRunes styles text for display. Runes inside a marked span are
// underlined; cursor < 0 hides the cursor.
func buildStyledRunes(text []rune, cursor int, marked []model.Span) []styledRune {
	out := make([]styledRune, 0, len(text)+1)
	for i, r := range text {
		style := textStyle
		inSpan := inSpans(i, marked)
		if inSpan {
			style = markedStyle
		}
		if r == '\n' {
			if i == cursor {
				out = append(out, styledRune{s: cursorStyle.Render(" "), width: 1})
			}
			out = append(out, styledRune{isBreak: true})
			continue
		}
		if i == cursor {
			style = cursorStyle
		}
		out = append(out, styledRune{
			s:       style.Render(string(r)),
			width:   runewidth.RuneWidth(r),
			isSpace: r == ' ',
			marked:  inSpan,
		})
	}
	if cursor == len(text) {
		out = append(out, styledRune{s: cursorStyle.Render(" "), width: 1, isSpace: true})
	}
	return out
}

func inSpans(i int, spans []model.Span) bool {
	for _, sp := range spans {
		if i >= sp.Start && i < sp.End {
			return true
		}
	}
	return false
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks runes into lines of at most width cells, preferring
// to break at spaces. Hard breaks always start a new line.
func wrapStyledRunes(runes []styledRune, width int) []string {
	var lines []string
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	flush := func(items []styledRune) {
		lines = append(lines, renderStyledRunes(items))
	}

	for i := 0; i < len(runes); {
		item := runes[i]
		if item.isBreak {
			flush(line)
			line = line[:0]
			lineWidth = 0
			lastSpaceIdx = -1
			i++
			continue
		}
		if width > 0 && lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				flush(line[:lastSpaceIdx])
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				flush(line)
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	flush(line)
	return lines
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
