package keyword

import "slices"

// Exact, case-sensitive membership of one token in a keyword list.
func TokenInSet(tok string, set []string) bool {
	return slices.Contains(set, tok)
}

// Counts how many of the tokens appear in the set. Repeated tokens count each time.
func CountTokensInSet(tokens []string, set map[string]bool) int {
	n := 0
	for _, tok := range tokens {
		if set[tok] {
			n++
		}
	}
	return n
}

// English stopwords dropped before building word-bag fingerprints.
var Stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true, "but": true,
	"by": true, "for": true, "if": true, "in": true, "into": true, "is": true, "it": true, "its": true,
	"no": true, "not": true, "of": true, "on": true, "or": true, "so": true, "such": true, "that": true,
	"the": true, "their": true, "then": true, "there": true, "these": true, "they": true, "this": true,
	"to": true, "was": true, "will": true, "with": true, "i": true, "you": true, "me": true, "my": true,
	"we": true, "our": true, "your": true, "he": true, "she": true, "him": true, "her": true, "them": true,
	"do": true, "does": true, "did": true, "have": true, "has": true, "had": true, "am": true, "were": true,
}

// Returns tokens with stopwords removed.
func RemoveStopwords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !Stopwords[tok] {
			out = append(out, tok)
		}
	}
	return out
}
