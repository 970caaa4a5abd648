package embedding

import (
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbed produces a deterministic pseudo-embedding of the given
// dimensionality. It carries no semantics: it exists so storage and
// duplicate detection keep working when the embedder is unreachable.
// Identical text always maps to the identical vector.
func HashEmbed(text string, dimensions int) []float32 {
	vec := make([]float32, dimensions)
	if dimensions == 0 {
		return vec
	}

	words := strings.Fields(strings.ToLower(text))
	for i, word := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(word))
		seed := h.Sum64()

		// Spread each word over a handful of dimensions.
		for j := 0; j < 4; j++ {
			idx := int((seed >> (j * 16)) % uint64(dimensions))
			sign := float32(1)
			if (seed>>(j*16+15))&1 == 1 {
				sign = -1
			}
			vec[idx] += sign / float32(1+i/8)
		}
	}

	return normalize(vec)
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// CosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either vector is empty or zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
