package helpers

import (
	"fmt"
	"regexp"

	"github.com/spaolacci/murmur3"
)

// Drops repeated values, keeping the first occurrence. Returns nil for empty input.
func Dedupe[T comparable](in []T) []T {
	var out []T
	seen := make(map[T]struct{}, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Fast, compact, stable hash of a string: murmur3 (default seed) as 16 hex characters. Not for anything security-sensitive.
func HashOfString(s string) string {
	return fmt.Sprintf("%016x", murmur3.Sum64([]byte(s)))
}

var (
	// loosely: an optional scheme, then something dotted; may not end in a period
	urlRegex = regexp.MustCompile(`(?:(?:https?|ftp):\/\/)?[\w/\-?=%.]+\.[\w/\-&?=%.]*[\w/\-&?=%]+`)
	// dotted words that are not hostnames: "e.g", "i.e", "2.50"
	notHostRegex = regexp.MustCompile(`^(?:[a-zA-Z]\.)+[a-zA-Z]?$|^[\d.]+$`)
)

// Finds link-like substrings in chat text, with or without a scheme.
func ExtractTextURLs(raw string) []string {
	var out []string
	for _, m := range urlRegex.FindAllString(raw, -1) {
		if !notHostRegex.MatchString(m) {
			out = append(out, m)
		}
	}
	return out
}

// Clamps a score to the closed range [0, 100].
func ClampScore(v float64) float64 {
	return min(max(v, 0), 100)
}
