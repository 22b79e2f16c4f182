package analyzer

import (
	"sort"

	"golang.org/x/text/language"
)

// Reduces a BCP 47 tag ("pt-BR", "en_US") to its primary ISO 639-1 code. Empty or unparsable tags return "en".
func primaryLanguage(tag string) string {
	if tag == "" {
		return "en"
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "en"
	}
	base, _ := t.Base()
	return base.String()
}

// Guesses languages by counting hits against small lists of closed-class words ("the", "und", "que").
//
// This is a low-precision heuristic, not a classifier: short messages rarely produce enough hits, and related languages share words. Every language with at least two hits is reported, most hits first; when nothing matches the result is ["en"].
func DetectLanguages(tokens []string) []string {
	type hit struct {
		lang  string
		count int
	}
	var hits []hit
	for lang, words := range languageWords {
		n := 0
		for _, tok := range tokens {
			if words[tok] {
				n++
			}
		}
		if n >= 2 {
			hits = append(hits, hit{lang: lang, count: n})
		}
	}
	if len(hits) == 0 {
		return []string{"en"}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].lang < hits[j].lang
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.lang
	}
	return out
}
