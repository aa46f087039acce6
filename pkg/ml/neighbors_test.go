package ml

import "testing"

// clusteredVectors returns two tight clusters: humans near +1 on the first
// dimensions, bots near -1.
func clusteredVectors() ([]FeatureVector, []bool) {
	samples := []FeatureVector{}
	labels := []bool{}
	for i := 0; i < 10; i++ {
		var human FeatureVector
		human[FeatAvgVelocity] = 1 + float64(i)*0.01
		human[FeatMaxVelocity] = 1
		samples = append(samples, human)
		labels = append(labels, true)

		var bot FeatureVector
		bot[FeatAvgVelocity] = -1 - float64(i)*0.01
		bot[FeatMaxVelocity] = -1
		samples = append(samples, bot)
		labels = append(labels, false)
	}
	return samples, labels
}

func TestNeighborIndexMajorityLabel(t *testing.T) {
	samples, labels := clusteredVectors()
	idx, err := NewNeighborIndex(samples, labels)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	var query FeatureVector
	query[FeatAvgVelocity] = 1.05
	query[FeatMaxVelocity] = 0.95

	neighbors, err := idx.Query(query, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(neighbors) != 5 {
		t.Fatalf("expected 5 neighbors, got %d", len(neighbors))
	}
	if HumanFraction(neighbors) != 1 {
		t.Fatalf("expected all human neighbors near the human cluster, got %f", HumanFraction(neighbors))
	}

	query[FeatAvgVelocity] = -1.05
	query[FeatMaxVelocity] = -0.95
	neighbors, err = idx.Query(query, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if HumanFraction(neighbors) != 0 {
		t.Fatalf("expected all bot neighbors near the bot cluster, got %f", HumanFraction(neighbors))
	}
}

func TestNeighborIndexClampsK(t *testing.T) {
	samples, labels := clusteredVectors()
	idx, err := NewNeighborIndex(samples, labels)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	neighbors, err := idx.Query(samples[0], 1000)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(neighbors) != len(samples) {
		t.Fatalf("expected k clamped to index size %d, got %d", len(samples), len(neighbors))
	}
}

func TestNeighborIndexZeroVectorQuery(t *testing.T) {
	samples, labels := clusteredVectors()
	idx, err := NewNeighborIndex(samples, labels)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	// The empty-session signature is all zeros, which cosine similarity
	// cannot handle directly; the index must still answer.
	var zero FeatureVector
	neighbors, err := idx.Query(zero, 3)
	if err != nil {
		t.Fatalf("zero-vector query: %v", err)
	}
	if len(neighbors) != 3 {
		t.Fatalf("expected 3 neighbors, got %d", len(neighbors))
	}
}

func TestNeighborIndexLengthMismatch(t *testing.T) {
	if _, err := NewNeighborIndex(make([]FeatureVector, 3), make([]bool, 2)); err == nil {
		t.Fatalf("expected length mismatch to be rejected")
	}
}

func TestHumanFractionEmpty(t *testing.T) {
	if got := HumanFraction(nil); got != 0 {
		t.Fatalf("expected 0 for no neighbors, got %f", got)
	}
}
