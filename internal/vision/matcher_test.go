package vision

import (
	"math"
	"testing"

	"badge-compliance-service/internal/domain/compliance"
)

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float64{0.6, 0.8}
	if sim := CosineSimilarity(v, v); math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("identical vectors should have similarity 1.0, got %v", sim)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	if sim := CosineSimilarity([]float64{1, 0}, []float64{0, 1}); math.Abs(sim) > 1e-9 {
		t.Errorf("orthogonal vectors should have similarity 0, got %v", sim)
	}
}

func TestCosineSimilarityOpposite(t *testing.T) {
	if sim := CosineSimilarity([]float64{1, 0}, []float64{-1, 0}); math.Abs(sim+1.0) > 1e-9 {
		t.Errorf("opposite vectors should have similarity -1, got %v", sim)
	}
}

func TestCosineSimilarityShapeMismatch(t *testing.T) {
	if sim := CosineSimilarity([]float64{1, 0}, []float64{1, 0, 0}); sim != 0.0 {
		t.Errorf("shape mismatch should yield 0.0, got %v", sim)
	}
	if sim := CosineSimilarity(nil, nil); sim != 0.0 {
		t.Errorf("empty vectors should yield 0.0, got %v", sim)
	}
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	if sim := CosineSimilarity([]float64{0, 0}, []float64{1, 0}); sim != 0.0 {
		t.Errorf("zero-magnitude vector should yield 0.0, got %v", sim)
	}
}

func TestMatchPicksBestIdentity(t *testing.T) {
	known := map[string][]float64{
		"A": {1, 0},
		"B": {0, 1},
	}

	id, sim := Match([]float64{1, 0}, known)
	if id != "A" {
		t.Errorf("expected A, got %q", id)
	}
	if math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("expected similarity 1.0, got %v", sim)
	}
}

func TestMatchOrthogonalQuery(t *testing.T) {
	known := map[string][]float64{
		"A": {1, 0, 0},
		"B": {0, 1, 0},
	}

	id, sim := Match([]float64{0, 0, 1}, known)
	if sim > 1e-9 {
		t.Errorf("expected similarity near 0, got %v", sim)
	}
	if id != "" {
		t.Errorf("no identity should beat the initial 0.0 maximum, got %q", id)
	}
}

func TestMatchDeterministicOnTie(t *testing.T) {
	// Both candidates score identically; the strict > comparison combined
	// with sorted iteration keeps the first id.
	known := map[string][]float64{
		"B": {1, 0},
		"A": {1, 0},
	}
	for i := 0; i < 20; i++ {
		id, _ := Match([]float64{1, 0}, known)
		if id != "A" {
			t.Fatalf("tie should deterministically resolve to A, got %q", id)
		}
	}
}

func TestMatchDoesNotFilterByThreshold(t *testing.T) {
	known := map[string][]float64{"A": {1, 0}}

	id, sim := Match([]float64{0.8, 0.6}, known)
	if id != "A" {
		t.Errorf("matcher must return the best id regardless of threshold, got %q", id)
	}
	if sim <= 0 || sim >= 1 {
		t.Errorf("expected partial similarity, got %v", sim)
	}
}

func TestLargestFace(t *testing.T) {
	faces := []compliance.Face{
		{Box: compliance.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, Embedding: []float64{1}},
		{Box: compliance.Box{X1: 0, Y1: 0, X2: 50, Y2: 60}, Embedding: []float64{2}},
		{Box: compliance.Box{X1: 0, Y1: 0, X2: 20, Y2: 20}, Embedding: []float64{3}},
	}

	got := LargestFace(faces)
	if got.Embedding[0] != 2 {
		t.Errorf("expected the 50x60 face to win, got embedding %v", got.Embedding)
	}
}
