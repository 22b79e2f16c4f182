package analyzer

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

const (
	// text more diverse than this is always treated as real language
	entropyAllowThreshold = 2.5
	minRunLength          = 6
	// messages with fewer non-space characters use the short thresholds
	shortMessageLength = 20

	shortRunShare    = 0.6
	shortMaxEntropy  = 1.0
	longRunShare     = 0.3
	longMaxEntropy   = 2.0
	ngramMaxEntropy  = 2.0
	repeatedWordMin  = 5
	repeatedWordFrac = 0.6
	emojiDenseFrac   = 0.3
)

// short exclamations which are repetitive by nature: "hahaha", "lolol", "yesss", "nooo", "wowww"
var naturalExclamationRegex = regexp.MustCompile(`^(?:(?:ha)+h?|(?:he)+h?|(?:hi)+|(?:ho)+|(?:lo)+l*|(?:a+h+)+|a+w+|(?:ye+s+)+|ya+y+|(?:no+)+|o+k+|wo+w+|hm+|lma+o+|xd+|u+g+h+|o+h+|y+e+a+h+)[!?.]*$`)

type RepetitionVerdict struct {
	Blocked bool
	// short machine-readable reason when blocked or exempted: "char-run", "repeated-word", "repeated-pattern", "emoji", "exclamation"
	Reason  string
	Entropy float64
}

// Decides whether text is low-information repetition. Natural language, emoji-heavy messages and short exclamations are not penalized.
//
// raw is the trimmed message; normalized is the output of NormalizeText on it.
func CheckRepetition(raw, normalized string) RepetitionVerdict {
	compact := []rune(strings.Join(strings.Fields(normalized), ""))
	if len(compact) == 0 {
		return RepetitionVerdict{}
	}
	ent := ShannonEntropy(compact)
	v := RepetitionVerdict{Entropy: ent}
	if ent > entropyAllowThreshold {
		return v
	}
	if emojiDensity(raw) > emojiDenseFrac {
		v.Reason = "emoji"
		return v
	}
	if len(compact) < 30 && naturalExclamationRegex.MatchString(string(compact)) {
		v.Reason = "exclamation"
		return v
	}

	run := longestRun(compact)
	if run >= minRunLength {
		share := float64(run) / float64(len(compact))
		if len(compact) < shortMessageLength {
			if share >= shortRunShare && ent < shortMaxEntropy {
				v.Blocked, v.Reason = true, "char-run"
				return v
			}
		} else if share >= longRunShare && ent < longMaxEntropy {
			v.Blocked, v.Reason = true, "char-run"
			return v
		}
	}

	words := strings.Fields(normalized)
	if len(words) >= repeatedWordMin {
		counts := map[string]int{}
		top := 0
		for _, w := range words {
			w = strings.TrimFunc(w, unicode.IsPunct)
			counts[w]++
			if counts[w] > top {
				top = counts[w]
			}
		}
		if top >= repeatedWordMin && float64(top)/float64(len(words)) > repeatedWordFrac {
			v.Blocked, v.Reason = true, "repeated-word"
			return v
		}
	}

	if ent < ngramMaxEntropy {
		for period := 2; period <= 3; period++ {
			if isPeriodic(compact, period) {
				v.Blocked, v.Reason = true, "repeated-pattern"
				return v
			}
		}
	}
	return v
}

// Shannon entropy in bits per character.
func ShannonEntropy(rs []rune) float64 {
	if len(rs) == 0 {
		return 0
	}
	counts := map[rune]int{}
	for _, r := range rs {
		counts[r]++
	}
	total := float64(len(rs))
	ent := 0.0
	for _, c := range counts {
		p := float64(c) / total
		ent -= p * math.Log2(p)
	}
	return ent
}

func longestRun(rs []rune) int {
	best, cur := 0, 0
	for i, r := range rs {
		if i > 0 && r == rs[i-1] {
			cur++
		} else {
			cur = 1
		}
		if cur > best {
			best = cur
		}
	}
	return best
}

// true when the text is a unit of the given length repeated at least three times
func isPeriodic(rs []rune, period int) bool {
	if len(rs) < period*3 {
		return false
	}
	for i := period; i < len(rs); i++ {
		if rs[i] != rs[i%period] {
			return false
		}
	}
	return true
}

// Fraction of non-space grapheme clusters which are emoji.
func emojiDensity(raw string) float64 {
	total, emoji := 0, 0
	gr := uniseg.NewGraphemes(raw)
	for gr.Next() {
		rs := gr.Runes()
		if len(rs) == 0 || unicode.IsSpace(rs[0]) {
			continue
		}
		total++
		// check if this grapheme cluster starts with an emoji rune
		first := rs[0]
		if (first >= 0x1F000 && first <= 0x1FFFF) || (first >= 0x2600 && first <= 0x27BF) {
			emoji++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(emoji) / float64(total)
}
