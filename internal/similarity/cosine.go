package similarity

import "math"

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value in [-1, 1]; mismatched lengths and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// SemanticRatio converts the cosine similarity of a and b to a score in
// [0, 100]. When either vector is missing or all zeros the neutral score is
// returned instead.
func SemanticRatio(a, b []float32, neutral float64) float64 {
	if isZero(a) || isZero(b) || len(a) != len(b) {
		return clamp(neutral)
	}
	return clamp(CosineSimilarity(a, b) * 100)
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
