package game

import (
	"strings"
	"unicode"
)

// IsCorrect reports whether candidate spells expected once all whitespace is
// removed from both. The comparison is exact and case-sensitive.
func IsCorrect(candidate, expected string) bool {
	return stripSpace(candidate) == stripSpace(expected)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
