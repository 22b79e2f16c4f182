package analyzer

import (
	"regexp"
	"strings"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	// anything that is not a letter, digit, whitespace or common punctuation
	symbolRegex = regexp.MustCompile(`[^\pL\pN\s.,!?'"\-:;/@#&%()]+`)
)

// Canonical form of message text fed to every scorer: trimmed, whitespace collapsed, symbols (including emoji) stripped, lower-cased.
func NormalizeText(text string) string {
	s := symbolRegex.ReplaceAllString(text, "")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}
