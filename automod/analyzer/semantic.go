package analyzer

const minSemanticConfidence = 0.2

// Confidence per category is the fraction of the category's keywords present in the text. Categories under 0.2 are dropped.
func semanticCategories(tokens []string) map[string]float64 {
	present := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		present[tok] = true
	}
	out := map[string]float64{}
	for cat, words := range semanticTables {
		n := 0
		for _, w := range words {
			if present[w] {
				n++
			}
		}
		conf := float64(n) / float64(len(words))
		if conf >= minSemanticConfidence {
			out[cat] = conf
		}
	}
	return out
}
