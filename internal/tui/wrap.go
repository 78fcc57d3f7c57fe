// Package tui provides the Bubble Tea operator interface.
package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// WrapText wraps copy to the given display width, breaking at spaces where
// possible. Explicit newlines are kept.
func WrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		out = append(out, wrapLine(para, width)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int) []string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	var b strings.Builder
	lineWidth := 0
	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)
		if lineWidth > 0 && lineWidth+1+wordWidth > width {
			lines = append(lines, b.String())
			b.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			b.WriteByte(' ')
			lineWidth++
		}
		for wordWidth > width {
			head, tail := splitAtWidth(word, width-lineWidth)
			if head == "" {
				break
			}
			b.WriteString(head)
			lines = append(lines, b.String())
			b.Reset()
			lineWidth = 0
			word = tail
			wordWidth = runewidth.StringWidth(word)
		}
		b.WriteString(word)
		lineWidth += wordWidth
	}
	lines = append(lines, b.String())
	return lines
}

// splitAtWidth cuts a string at the last rune fitting in width.
func splitAtWidth(s string, width int) (head, tail string) {
	w := 0
	for i, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > width {
			return s[:i], s[i:]
		}
		w += rw
	}
	return s, ""
}
