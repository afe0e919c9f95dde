package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// DeterministicEmbedder produces hash-derived unit vectors: identical text
// always yields an identical vector. It backs tests and offline deployments
// where no embedding endpoint is reachable.
type DeterministicEmbedder struct {
	Dimension int
}

// NewDeterministicEmbedder creates a deterministic embedder of the given
// dimension.
func NewDeterministicEmbedder(dimension int) *DeterministicEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &DeterministicEmbedder{Dimension: dimension}
}

// EmbedDocuments generates one vector per text.
func (e *DeterministicEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = deterministicVector(text, e.Dimension)
	}
	return vectors, nil
}

// EmbedQuery generates a vector for a single text.
func (e *DeterministicEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return deterministicVector(text, e.Dimension), nil
}

// deterministicVector seeds a linear congruential generator with the FNV hash
// of the text and normalizes the result to a unit vector.
func deterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223
		vector[i] = float32(seed%1000) / 1000.0
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}
	return vector
}
