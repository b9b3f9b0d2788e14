// Package strings holds small text helpers shared by the cluster views and
// the CLI tables.
package strings

import (
	"strings"
)

// DefaultColumnWidth is the description width used by CLI tables.
const DefaultColumnWidth = 60

// minWidth leaves room for one character plus the ellipsis.
const minWidth = 4

// SingleLine collapses every run of whitespace, newlines included, into a
// single space and trims the ends.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Ellipsize returns SingleLine(s) cut to at most width runes. A cut string
// ends in "...". Widths below 4 are raised to 4.
func Ellipsize(s string, width int) string {
	if width < minWidth {
		width = minWidth
	}
	s = SingleLine(s)
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
