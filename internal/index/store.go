// Package index stores embedded chunks and serves similarity search.
//
// Two persistent backends implement the Store interface: an embedded
// chromem-go database (the default, no external services) and a
// PostgreSQL+pgvector database for shared deployments. Both score results
// on the same scale, (1 + cosine) / 2, so a score of 1.0 is an exact
// match, 0.5 is orthogonal and 0.0 is opposite. Scores from degraded zero
// vectors are clamped to 0 instead of surfacing as NaN.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrLengthMismatch indicates Insert received misaligned slices.
	ErrLengthMismatch = errors.New("input slice lengths differ")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Result is a stored chunk returned from a search or lookup.
type Result struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// Stats describes the current contents of a store.
type Stats struct {
	Records       int `json:"records"`
	DistinctFiles int `json:"distinct_files"`
}

// Store is a persistent vector index over text chunks.
//
// Insert accepts parallel slices: one vector and optionally one metadata
// map and one ID per text. Missing IDs are generated. Search returns at
// most topK results ordered by score descending; filter, when non-nil,
// restricts results to records whose metadata contains every filter pair.
type Store interface {
	Insert(ctx context.Context, texts []string, vectors [][]float32, metadatas []map[string]any, ids []string) ([]string, error)
	Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]Result, error)
	GetByID(ctx context.Context, id string) (Result, error)
	DeleteByIDs(ctx context.Context, ids []string) error
	DeleteByMetadata(ctx context.Context, filter map[string]string) error
	Stats(ctx context.Context) (Stats, error)
	Reset(ctx context.Context) error
	Close() error
}

// validateInsert checks the parallel-slice contract shared by backends.
func validateInsert(texts []string, vectors [][]float32, metadatas []map[string]any, ids []string) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: %d texts, %d vectors", ErrLengthMismatch, len(texts), len(vectors))
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return fmt.Errorf("%w: %d texts, %d metadata maps", ErrLengthMismatch, len(texts), len(metadatas))
	}
	if ids != nil && len(ids) != len(texts) {
		return fmt.Errorf("%w: %d texts, %d ids", ErrLengthMismatch, len(texts), len(ids))
	}
	return nil
}

// normalizeMetadata flattens arbitrary metadata values to strings so both
// backends filter on identical representations. Nil maps to the empty
// string; composite values use their default formatting.
func normalizeMetadata(metadata map[string]any) map[string]string {
	if metadata == nil {
		return map[string]string{}
	}

	normalized := make(map[string]string, len(metadata))
	for key, value := range metadata {
		switch v := value.(type) {
		case nil:
			normalized[key] = ""
		case string:
			normalized[key] = v
		case bool:
			normalized[key] = strconv.FormatBool(v)
		case int:
			normalized[key] = strconv.Itoa(v)
		case int32:
			normalized[key] = strconv.FormatInt(int64(v), 10)
		case int64:
			normalized[key] = strconv.FormatInt(v, 10)
		case float32:
			normalized[key] = strconv.FormatFloat(float64(v), 'f', -1, 32)
		case float64:
			normalized[key] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			normalized[key] = fmt.Sprint(v)
		}
	}
	return normalized
}

// clampScore bounds a similarity score to [0, 1]. Zero vectors produce NaN
// similarities in both backends; those rank last as 0.
func clampScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
