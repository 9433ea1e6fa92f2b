package service

import (
	"math"

	"github.com/pmezard/go-difflib/difflib"
)

// cosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the vectors differ in length or one of them is zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sequenceRatio is the character level longest-matching-blocks ratio
// 2*M/T of a and b, in [0, 1].
func sequenceRatio(a, b string) float64 {
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

func splitChars(s string) []string {
	chars := make([]string, 0, len(s))
	for _, r := range s {
		chars = append(chars, string(r))
	}
	return chars
}

// jaccard is |a∩b| / |a∪b|, with an empty union counted as 1.
func jaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		union = 1
	}
	return float64(inter) / float64(union)
}
