package lexicalDB

import "strings"

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// jaccard is |a ∩ b| / |a ∪ b|; an empty side scores 0
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for w := range small {
		if _, ok := large[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// similarity scores two texts the way Query ranks them
func similarity(a, b string) float64 {
	return jaccard(wordSet(a), wordSet(b))
}
