package embedding

import (
	"math"
	"testing"
)

func TestHashEmbed_Deterministic(t *testing.T) {
	a := HashEmbed("the deadline moved to friday", 64)
	b := HashEmbed("the deadline moved to friday", 64)

	if len(a) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at dimension %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestHashEmbed_Normalized(t *testing.T) {
	vec := HashEmbed("some text with several words", 32)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1) > 0.001 {
		t.Errorf("expected unit norm, got %f", math.Sqrt(sum))
	}
}

func TestHashEmbed_DifferentTextsDiffer(t *testing.T) {
	a := HashEmbed("prefers dark mode", 64)
	b := HashEmbed("works on the billing service", 64)

	if CosineSimilarity(a, b) > 0.99 {
		t.Error("unrelated texts should not map to near-identical vectors")
	}
}

func TestHashEmbed_ZeroDimensions(t *testing.T) {
	if got := HashEmbed("anything", 0); len(got) != 0 {
		t.Errorf("expected empty vector, got %d dims", len(got))
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); !floatNear(got, 1) {
		t.Errorf("identical vectors: expected 1, got %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); !floatNear(got, 0) {
		t.Errorf("orthogonal vectors: expected 0, got %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
		t.Errorf("mismatched lengths: expected 0, got %f", got)
	}
	if got := CosineSimilarity(nil, nil); got != 0 {
		t.Errorf("empty vectors: expected 0, got %f", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector: expected 0, got %f", got)
	}
}

func floatNear(a, b float64) bool {
	return math.Abs(a-b) < 0.0001
}
