package keyword

import (
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Removes combining marks ("Gdańsk" becomes "Gdansk"). On normalization failure the input is returned unchanged.
func FoldMarks(text string) string {
	// transformers carry state, so each call builds its own chain
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		return text
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// Characters people put inside words to dodge filters: "f*ck", "s_h_i_t", "#ad".
func isCensorRune(r rune) bool {
	switch r {
	case '#', '*', '_', '-':
		return true
	}
	return false
}

func tokenize(text string, keep func(rune) bool) []string {
	return strings.FieldsFunc(strings.ToLower(FoldMarks(text)), func(r rune) bool {
		return !keep(r)
	})
}

// Splits free-form text into lower-case, mark-folded tokens of letters and digits. Everything else separates tokens.
func TokenizeText(text string) []string {
	return tokenize(text, isWordRune)
}

// Like TokenizeText, but censor characters stay inside tokens.
func TokenizeTextSkippingCensorChars(text string) []string {
	return tokenize(text, func(r rune) bool {
		return isWordRune(r) || isCensorRune(r)
	})
}

// Lower-cases the input and drops everything but letters and digits, so "F.R.E.E n1tro" becomes "freen1tro".
func Slugify(text string) string {
	return strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, text)
}
