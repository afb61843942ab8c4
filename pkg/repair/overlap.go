package repair

import "strings"

// WordOverlap computes the Jaccard similarity of two texts: intersection of
// their lower-cased word sets over the union. 1.0 for identical sets, 0.0
// when either text has no words.
func WordOverlap(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for word := range setA {
		if _, ok := setB[word]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[strings.Trim(word, ".,!?;:'\"¿¡")] = struct{}{}
	}
	delete(set, "")
	return set
}

// NormalizePhrase lowers, trims, and strips punctuation so short rejection
// phrases compare exactly ("No." equals "no").
func NormalizePhrase(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '!', '?', ';', ':', '\'', '"', '¿', '¡':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(text)))
	return strings.Join(strings.Fields(cleaned), " ")
}
