package analyzer

import (
	"unicode"

	"github.com/hearthchat/moderation/automod/helpers"
)

// Returns the language whose toxicity table should be used, falling back to English.
func tableLanguage(language string) string {
	tag := primaryLanguage(language)
	if _, ok := toxicityTables[tag]; ok {
		return tag
	}
	return "en"
}

func scoreToxicity(p prepared, lang string) (float64, []string) {
	table := toxicityTables[lang]
	var flags []string
	score := 0.0

	seen := map[string]bool{}
	for _, tok := range p.tokens {
		if table.Keywords[tok] && !seen[tok] {
			seen[tok] = true
			score += toxicityKeywordWeight
		}
	}
	if len(seen) > 0 {
		flags = append(flags, "toxicity:keyword")
	}
	for _, pat := range table.Patterns {
		if pat.Regex.MatchString(p.folded) {
			score += toxicityPatternWeight
			flags = append(flags, "toxicity:"+pat.Name)
		}
	}
	return helpers.ClampScore(score), flags
}

// 0 is entirely negative, 100 entirely positive, 50 neutral or no emotional words at all.
func scoreSentiment(p prepared) float64 {
	pos, neg := 0, 0
	for _, tok := range p.tokens {
		if positiveWords[tok] {
			pos++
		}
		if negativeWords[tok] {
			neg++
		}
	}
	if pos+neg == 0 {
		return 50
	}
	return helpers.ClampScore(float64(pos) / float64(pos+neg) * 100)
}

func scoreSpam(p prepared) (float64, []string, RepetitionVerdict) {
	score, flags := scoreTable(p, spamPatterns, spamPatternWeight, "spam")
	rep := CheckRepetition(p.raw, p.normalized)
	if rep.Blocked {
		score += spamRepetitionWeight
		flags = append(flags, "spam:repetition")
	}
	if excessiveCaps(p.raw) {
		score += spamCapsWeight
		flags = append(flags, "spam:caps")
	}
	return helpers.ClampScore(score), flags, rep
}

// Sums a fixed weight per matching pattern, capped at 100. Flags are tagged "<prefix>:<pattern name>".
func scoreTable(p prepared, table []namedPattern, weight float64, prefix string) (float64, []string) {
	var flags []string
	score := 0.0
	for _, pat := range table {
		if pat.Regex.MatchString(p.folded) {
			score += weight
			flags = append(flags, prefix+":"+pat.Name)
		}
	}
	return helpers.ClampScore(score), flags
}

// More than 70% of letters upper-case, in text with at least 10 letters. Operates on raw text, since normalization lower-cases.
func excessiveCaps(raw string) bool {
	letters, upper := 0, 0
	for _, r := range raw {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters < 10 {
		return false
	}
	return float64(upper)/float64(letters) > 0.7
}
