// Package embed converts text into fixed-dimension vectors.
//
// The Engine wraps a model backend (the Client interface) with the policy
// the pipeline relies on:
//
//   - lazy, idempotent model loading with a sticky fatal error
//   - per-call batching (default 32 inputs per model request)
//   - zero-vector degradation: a failed model call yields zero vectors of
//     the correct dimension for every requested input instead of an error,
//     so ingestion proceeds with degraded retrieval quality
//   - empty or whitespace-only input always maps to a zero vector
//
// Output order and count always match input order and count.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
)

// ErrModelLoadFailed indicates the embedding backend could not initialize.
// The failure is fatal to the engine and is not retried.
var ErrModelLoadFailed = errors.New("embedding model load failed")

// DefaultBatchSize is the number of inputs sent to the model per request.
const DefaultBatchSize = 32

// Client is a model backend capable of producing embeddings.
//
// Load verifies the backend is usable and reports the embedding dimension;
// it is called exactly once per Engine. Embed must return one vector per
// input, in input order.
type Client interface {
	Load(ctx context.Context) (dimension int, err error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Engine generates embeddings with batching and degradation policy.
// It is safe for concurrent use.
type Engine struct {
	client    Client
	batchSize int
	logger    *slog.Logger

	mu        sync.Mutex
	loaded    bool
	loadErr   error
	dimension int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithBatchSize sets the number of inputs per model request.
func WithBatchSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an Engine over the given model client. The model is not
// loaded until Load or the first embedding call.
func NewEngine(client Client, opts ...EngineOption) *Engine {
	e := &Engine{
		client:    client,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load loads the underlying model. It is idempotent: the first successful
// call wins and later calls are no-ops. A load failure is sticky; every
// subsequent call returns the same ErrModelLoadFailed without retrying.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.loadLocked(ctx)
	return err
}

func (e *Engine) loadLocked(ctx context.Context) (int, error) {
	if e.loaded {
		return e.dimension, nil
	}
	if e.loadErr != nil {
		return 0, e.loadErr
	}

	dim, err := e.client.Load(ctx)
	if err != nil {
		e.loadErr = fmt.Errorf("%w: %v", ErrModelLoadFailed, err)
		e.logger.Error("embedding model load failed", "model", e.client.Model(), "error", err)
		return 0, e.loadErr
	}
	if dim <= 0 {
		e.loadErr = fmt.Errorf("%w: model reported dimension %d", ErrModelLoadFailed, dim)
		return 0, e.loadErr
	}

	e.dimension = dim
	e.loaded = true
	e.logger.Info("embedding model loaded", "model", e.client.Model(), "dimension", dim)
	return dim, nil
}

func (e *Engine) ensureLoaded(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadLocked(ctx)
}

// Dimension returns the embedding dimension, or 0 if the model has not been
// loaded yet.
func (e *Engine) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimension
}

// ModelName returns the backend model identifier.
func (e *Engine) ModelName() string {
	return e.client.Model()
}

// Embed returns the embedding for a single text. Empty or whitespace-only
// input yields a zero vector. The only possible error is a model load
// failure.
func (e *Engine) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, _, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in input order, one vector per input. Non-empty
// inputs are grouped into fixed-size batches; empty inputs map to zero
// vectors without touching the model.
//
// If the model fails for any batch the whole call degrades: every requested
// input gets a zero vector of the model dimension, degraded is true, and no
// error is returned. The only error condition is a model load failure.
func (e *Engine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, bool, error) {
	if len(texts) == 0 {
		return nil, false, nil
	}

	dim, err := e.ensureLoaded(ctx)
	if err != nil {
		return nil, false, err
	}

	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = make([]float32, dim)
	}

	pending := make([]string, 0, e.batchSize)
	pendingIdx := make([]int, 0, e.batchSize)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		embeddings, err := e.client.Embed(ctx, pending)
		if err != nil {
			return err
		}
		if len(embeddings) != len(pending) {
			return fmt.Errorf("model returned %d vectors for %d inputs", len(embeddings), len(pending))
		}
		for j, idx := range pendingIdx {
			if len(embeddings[j]) != dim {
				return fmt.Errorf("vector %d has dimension %d, want %d", idx, len(embeddings[j]), dim)
			}
			vectors[idx] = embeddings[j]
		}
		pending = pending[:0]
		pendingIdx = pendingIdx[:0]
		return nil
	}

	for i, text := range texts {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		pending = append(pending, trimmed)
		pendingIdx = append(pendingIdx, i)
		if len(pending) == e.batchSize {
			if err := flush(); err != nil {
				return e.degrade(len(texts), dim, err), true, nil
			}
		}
	}
	if err := flush(); err != nil {
		return e.degrade(len(texts), dim, err), true, nil
	}

	return vectors, false, nil
}

// degrade returns zero vectors for every requested input. The cause is
// logged because the caller only sees the degraded flag.
func (e *Engine) degrade(count, dim int, cause error) [][]float32 {
	e.logger.Warn("embedding generation failed, degrading to zero vectors",
		"model", e.client.Model(),
		"inputs", count,
		"error", cause)

	vectors := make([][]float32, count)
	for i := range vectors {
		vectors[i] = make([]float32, dim)
	}
	return vectors
}

// Similarity computes the cosine similarity of two vectors. It returns 0.0
// when the vectors differ in length or either has zero magnitude; it never
// divides by zero.
func Similarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Match pairs a candidate index with its similarity score.
type Match struct {
	Index int
	Score float64
}

// MostSimilar ranks candidates by cosine similarity to the query, descending.
// Ties keep candidate order (the sort is stable). At most topK matches are
// returned.
func MostSimilar(query []float32, candidates [][]float32, topK int) []Match {
	if topK <= 0 || len(query) == 0 || len(candidates) == 0 {
		return nil
	}

	matches := make([]Match, len(candidates))
	for i, c := range candidates {
		matches[i] = Match{Index: i, Score: Similarity(query, c)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches
}
