package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/ragpipe/internal/embed"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	embedder := &HashEmbedder{}

	dim, err := embedder.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, HashEmbedderDim, dim)

	a, err := embedder.Embed(context.Background(), []string{"gophers like channels"})
	require.NoError(t, err)
	b, err := embedder.Embed(context.Background(), []string{"gophers like channels"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 2, embedder.EmbedCalls)
}

func TestHashEmbedderSimilarityOrdering(t *testing.T) {
	embedder := &HashEmbedder{}

	vectors, err := embedder.Embed(context.Background(), []string{
		"the quick brown fox",
		"the quick brown fox",
		"the quick red fox",
		"completely unrelated words here",
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, embed.Similarity(vectors[0], vectors[1]), 1e-6)

	related := embed.Similarity(vectors[0], vectors[2])
	unrelated := embed.Similarity(vectors[0], vectors[3])
	assert.Greater(t, related, unrelated)
	assert.Greater(t, related, 0.5)
}
