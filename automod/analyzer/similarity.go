package analyzer

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hearthchat/moderation/automod/helpers"
	"github.com/hearthchat/moderation/automod/keyword"
)

const maxSemanticHashLength = 256

// Deterministic fingerprint of one message. Does not compare against other content.
type Similarity struct {
	// hash of the normalized text
	ContentHash string
	// sorted, de-duplicated word bag with stopwords removed
	SemanticHash    string
	WordCount       int
	UniqueWordRatio float64
	UppercaseRatio  float64
	URLCount        int
}

func (a *HeuristicAnalyzer) AnalyzeContentSimilarity(text string) Similarity {
	return ContentFingerprint(text)
}

func ContentFingerprint(text string) Similarity {
	raw := strings.TrimSpace(text)
	norm := NormalizeText(raw)
	tokens := keyword.TokenizeText(norm)

	sim := Similarity{
		ContentHash: helpers.HashOfString(norm),
		WordCount:   len(tokens),
		URLCount:    len(helpers.ExtractTextURLs(raw)),
	}

	bag := keyword.RemoveStopwords(tokens)
	sort.Strings(bag)
	bag = helpers.Dedupe(bag)
	hash := strings.Join(bag, " ")
	if len(hash) > maxSemanticHashLength {
		// cut on a rune boundary, then back to the last whole word if there is one
		cut := maxSemanticHashLength
		for cut > 0 && !utf8.RuneStart(hash[cut]) {
			cut--
		}
		hash = hash[:cut]
		if idx := strings.LastIndexByte(hash, ' '); idx > 0 {
			hash = hash[:idx]
		}
	}
	sim.SemanticHash = hash

	if len(tokens) > 0 {
		uniq := map[string]bool{}
		for _, t := range tokens {
			uniq[t] = true
		}
		sim.UniqueWordRatio = float64(len(uniq)) / float64(len(tokens))
	}

	letters, upper := 0, 0
	for _, r := range raw {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters > 0 {
		sim.UppercaseRatio = float64(upper) / float64(letters)
	}
	return sim
}
