// Package testutil provides shared test helpers: a deterministic embedding
// backend and a discard logger.
package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedderDim is the vector width produced by HashEmbedder.
const HashEmbedderDim = 64

// HashEmbedder is a deterministic, offline embedding backend for tests. It
// hashes each word into a fixed bucket and normalizes the resulting
// bag-of-words vector, so identical texts embed identically and texts with
// shared vocabulary score high cosine similarity. It implements the
// embed.Client interface.
type HashEmbedder struct {
	// LoadErr, when set, makes Load fail.
	LoadErr error
	// EmbedErr, when set, makes Embed fail.
	EmbedErr error
	// EmbedCalls counts Embed invocations.
	EmbedCalls int
}

// Load reports the fixed dimension, or LoadErr.
func (h *HashEmbedder) Load(_ context.Context) (int, error) {
	if h.LoadErr != nil {
		return 0, h.LoadErr
	}
	return HashEmbedderDim, nil
}

// Embed returns one normalized bag-of-words vector per input text.
func (h *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	h.EmbedCalls++
	if h.EmbedErr != nil {
		return nil, h.EmbedErr
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = hashVector(text)
	}
	return vectors, nil
}

// Model identifies the fake backend.
func (*HashEmbedder) Model() string {
	return "hash-embedder-test"
}

func hashVector(text string) []float32 {
	v := make([]float32, HashEmbedderDim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		hasher := fnv.New32a()
		hasher.Write([]byte(word))
		v[hasher.Sum32()%HashEmbedderDim]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}
