package ml

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
)

// Neighbor is one labeled training example ranked by cosine similarity to a
// queried session vector.
type Neighbor struct {
	ID         string  `json:"id"`
	IsHuman    bool    `json:"is_human"`
	Similarity float32 `json:"similarity"`
}

// NeighborIndex holds the scaled training vectors in an in-memory chromem
// collection so a verdict can be explained by its most similar labeled
// examples. The vectors are stored as precomputed embeddings; no external
// embedder is involved.
type NeighborIndex struct {
	collection *chromem.Collection
	size       int
}

// NewNeighborIndex builds the index from scaled training vectors and labels.
func NewNeighborIndex(samples []FeatureVector, labels []bool) (*NeighborIndex, error) {
	if len(samples) != len(labels) {
		return nil, fmt.Errorf("samples/labels length mismatch: %d vs %d", len(samples), len(labels))
	}

	db := chromem.NewDB()
	// Embeddings are always supplied precomputed; the func exists only to
	// satisfy the collection contract and must never run.
	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("neighbor index uses precomputed embeddings")
	}
	collection, err := db.CreateCollection("session_vectors", nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, 0, len(samples))
	for i, v := range samples {
		label := "bot"
		if labels[i] {
			label = "human"
		}
		docs = append(docs, chromem.Document{
			ID:        strconv.Itoa(i),
			Metadata:  map[string]string{"label": label},
			Embedding: toEmbedding(v),
			Content:   label,
		})
	}
	if err := collection.AddDocuments(context.Background(), docs, 4); err != nil {
		return nil, fmt.Errorf("index training vectors: %w", err)
	}

	return &NeighborIndex{collection: collection, size: len(docs)}, nil
}

// Query returns up to k nearest labeled examples by cosine similarity.
func (ni *NeighborIndex) Query(v FeatureVector, k int) ([]Neighbor, error) {
	if ni.size == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 5
	}
	if k > ni.size {
		k = ni.size
	}

	results, err := ni.collection.QueryEmbedding(context.Background(), toEmbedding(v), k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query neighbors: %w", err)
	}

	neighbors := make([]Neighbor, 0, len(results))
	for _, r := range results {
		neighbors = append(neighbors, Neighbor{
			ID:         r.ID,
			IsHuman:    r.Metadata["label"] == "human",
			Similarity: r.Similarity,
		})
	}
	return neighbors, nil
}

// HumanFraction is the share of human-labeled examples among neighbors.
func HumanFraction(neighbors []Neighbor) float64 {
	if len(neighbors) == 0 {
		return 0
	}
	humans := 0
	for _, n := range neighbors {
		if n.IsHuman {
			humans++
		}
	}
	return float64(humans) / float64(len(neighbors))
}

// toEmbedding converts a feature vector for chromem, which normalizes
// embeddings and cannot represent the all-zero vector. A zero vector (the
// empty-session signature) gets a tiny constant component instead.
func toEmbedding(v FeatureVector) []float32 {
	allZero := true
	for _, x := range v {
		if x != 0 {
			allZero = false
			break
		}
	}

	emb := make([]float32, NumFeatures)
	if allZero {
		for i := range emb {
			emb[i] = 1e-6
		}
		return emb
	}
	for i, x := range v {
		emb[i] = float32(x)
	}
	return emb
}
