package embedding_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/undertow/pkg/etl/infrastructure/embedding"
)

func TestDeterministicEmbedderIsDeterministic(t *testing.T) {
	e := embedding.NewDeterministicEmbedder(64)
	ctx := context.Background()

	first, err := e.EmbedDocuments(ctx, []string{"walnut desk", "oak shelf"})
	require.NoError(t, err)
	second, err := e.EmbedDocuments(ctx, []string{"walnut desk", "oak shelf"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first[0], first[1])

	query, err := e.EmbedQuery(ctx, "walnut desk")
	require.NoError(t, err)
	assert.Equal(t, first[0], query)
}

func TestDeterministicEmbedderDimensionAndNorm(t *testing.T) {
	e := embedding.NewDeterministicEmbedder(0)
	vectors, err := e.EmbedDocuments(context.Background(), []string{"text"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	// Zero dimension falls back to the default.
	assert.Len(t, vectors[0], 384)

	var sumSquares float64
	for _, v := range vectors[0] {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-3)
}
