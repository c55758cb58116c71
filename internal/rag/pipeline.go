// Package rag composes document extraction, chunking, embedding and vector
// storage into a retrieval pipeline.
//
// The Pipeline exposes a structured-outcome surface: Ingest and Query never
// return errors. Ingestion failures come back as an Outcome with Success
// false and a reason; query failures come back as an empty result slice
// with the cause logged. Lifecycle operations (Initialize, Stats, Reset)
// return errors normally.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/ragpipe/internal/chunk"
	"github.com/koopa0/ragpipe/internal/embed"
	"github.com/koopa0/ragpipe/internal/extract"
	"github.com/koopa0/ragpipe/internal/index"
)

// ErrNotInitialized indicates a pipeline operation ran before Initialize.
var ErrNotInitialized = errors.New("pipeline not initialized")

// Pipeline wires the four retrieval components together. Construct it with
// New, call Initialize once, then ingest and query freely. Pipeline is safe
// for concurrent use after initialization.
type Pipeline struct {
	extractor  *extract.Extractor
	splitter   *chunk.Splitter
	engine     *embed.Engine
	store      index.Store
	logger     *slog.Logger
	collection string
	storage    string

	mu          sync.Mutex
	initialized bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCollection records the collection name reported by Stats.
func WithCollection(name string) Option {
	return func(p *Pipeline) { p.collection = name }
}

// WithStoragePath records the storage location reported by Stats.
func WithStoragePath(path string) Option {
	return func(p *Pipeline) { p.storage = path }
}

// New assembles a pipeline from its components. The embedding model is not
// loaded until Initialize.
func New(extractor *extract.Extractor, splitter *chunk.Splitter, engine *embed.Engine, store index.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		splitter:  splitter,
		engine:    engine,
		store:     store,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize loads the embedding model and marks the pipeline ready.
// Repeated calls are no-ops. Initialization failure is not sticky at the
// pipeline level, but a failed model load is: retries surface the same
// embed.ErrModelLoadFailed.
func (p *Pipeline) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := p.engine.Load(ctx); err != nil {
		return fmt.Errorf("initialize pipeline: %w", err)
	}
	p.initialized = true

	p.logger.Info("pipeline initialized",
		"model", p.engine.ModelName(),
		"dimension", p.engine.Dimension(),
		"chunk_size", p.splitter.ChunkSize(),
		"chunk_overlap", p.splitter.Overlap())
	return nil
}

func (p *Pipeline) ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// Outcome reports the result of ingesting one document. Error is a
// human-readable reason and is only set when Success is false.
type Outcome struct {
	Success           bool         `json:"success"`
	Error             string       `json:"error,omitempty"`
	DocumentID        string       `json:"document_id,omitempty"`
	Filename          string       `json:"filename,omitempty"`
	FileType          string       `json:"file_type,omitempty"`
	Engine            string       `json:"engine,omitempty"`
	ChunksAdded       int          `json:"chunks_added"`
	TotalCharacters   int          `json:"total_characters"`
	EmbeddingDegraded bool         `json:"embedding_degraded,omitempty"`
	ChunkStats        *chunk.Stats `json:"chunk_stats,omitempty"`
	Duration          time.Duration `json:"duration"`
}

func failure(path, reason string) Outcome {
	return Outcome{Filename: path, Error: reason}
}

// Ingest extracts, chunks, embeds and stores one document. It never
// returns an error: every failure mode is reported through the Outcome. A
// failed ingestion leaves the index unchanged.
func (p *Pipeline) Ingest(ctx context.Context, path string) Outcome {
	start := time.Now()

	if !p.ready() {
		return failure(path, ErrNotInitialized.Error())
	}

	content, err := p.extractor.Extract(path)
	if err != nil {
		p.logger.Warn("extraction failed", "path", path, "error", err)
		return failure(path, err.Error())
	}

	filename, _ := content.Metadata["filename"].(string)
	if strings.TrimSpace(content.Text) == "" {
		return failure(filename, "no text content extracted")
	}

	chunks := p.splitter.Split(content.Text, content.Metadata)
	if len(chunks) == 0 {
		return failure(filename, "no chunks generated from document")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, degraded, err := p.engine.EmbedBatch(ctx, texts)
	if err != nil {
		p.logger.Error("embedding failed", "path", path, "error", err)
		return failure(filename, err.Error())
	}

	documentID := uuid.NewString()
	metadatas := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		metadata := make(map[string]any, len(content.Metadata)+len(c.Metadata)+5)
		for k, v := range content.Metadata {
			metadata[k] = v
		}
		for k, v := range c.Metadata {
			metadata[k] = v
		}
		metadata["document_id"] = documentID
		metadata["chunk_index"] = c.Index
		metadata["start_char"] = c.StartOffset
		metadata["end_char"] = c.EndOffset
		metadata["embedding_model"] = p.engine.ModelName()
		metadatas[i] = metadata
	}

	if _, err := p.store.Insert(ctx, texts, vectors, metadatas, nil); err != nil {
		p.logger.Error("index insert failed", "path", path, "error", err)
		return failure(filename, err.Error())
	}

	stats := chunk.Summarize(chunks)
	engine, _ := content.Metadata["engine"].(string)

	p.logger.Info("document ingested",
		"filename", filename,
		"file_type", string(content.Type),
		"chunks", len(chunks),
		"characters", stats.TotalCharacters,
		"degraded", degraded,
		"duration", time.Since(start))

	return Outcome{
		Success:           true,
		DocumentID:        documentID,
		Filename:          filename,
		FileType:          string(content.Type),
		Engine:            engine,
		ChunksAdded:       len(chunks),
		TotalCharacters:   stats.TotalCharacters,
		EmbeddingDegraded: degraded,
		ChunkStats:        &stats,
		Duration:          time.Since(start),
	}
}

// BatchOutcome aggregates independent per-path ingestions.
type BatchOutcome struct {
	Documents   []Outcome     `json:"documents"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	TotalChunks int           `json:"total_chunks"`
	Duration    time.Duration `json:"duration"`
}

// IngestMany ingests each path independently: one bad document never
// aborts the batch.
func (p *Pipeline) IngestMany(ctx context.Context, paths []string) BatchOutcome {
	start := time.Now()

	batch := BatchOutcome{Documents: make([]Outcome, 0, len(paths))}
	for _, path := range paths {
		outcome := p.Ingest(ctx, path)
		batch.Documents = append(batch.Documents, outcome)
		if outcome.Success {
			batch.Succeeded++
			batch.TotalChunks += outcome.ChunksAdded
		} else {
			batch.Failed++
		}
	}
	batch.Duration = time.Since(start)

	p.logger.Info("batch ingestion finished",
		"documents", len(paths),
		"succeeded", batch.Succeeded,
		"failed", batch.Failed,
		"chunks", batch.TotalChunks,
		"duration", batch.Duration)
	return batch
}

// DeleteDocument removes every chunk belonging to the named source file.
// It reports success; failure causes are logged.
func (p *Pipeline) DeleteDocument(ctx context.Context, filename string) bool {
	if !p.ready() {
		p.logger.Warn("delete requested before initialization", "filename", filename)
		return false
	}
	if filename == "" {
		return false
	}
	if err := p.store.DeleteByMetadata(ctx, map[string]string{"filename": filename}); err != nil {
		p.logger.Error("document deletion failed", "filename", filename, "error", err)
		return false
	}
	p.logger.Info("document deleted", "filename", filename)
	return true
}

// Stats describes the pipeline's index contents and configuration.
type Stats struct {
	Collection     string `json:"collection"`
	StoragePath    string `json:"storage_path,omitempty"`
	Documents      int    `json:"documents"`
	Chunks         int    `json:"chunks"`
	EmbeddingModel string `json:"embedding_model"`
}

// Stats reports document and chunk counts, computed fresh from the store.
func (p *Pipeline) Stats(ctx context.Context) (Stats, error) {
	if !p.ready() {
		return Stats{}, ErrNotInitialized
	}

	indexStats, err := p.store.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("collect stats: %w", err)
	}
	return Stats{
		Collection:     p.collection,
		StoragePath:    p.storage,
		Documents:      indexStats.DistinctFiles,
		Chunks:         indexStats.Records,
		EmbeddingModel: p.engine.ModelName(),
	}, nil
}

// ResetOutcome reports record counts around a reset.
type ResetOutcome struct {
	RecordsBefore int `json:"records_before"`
	RecordsAfter  int `json:"records_after"`
}

// Reset removes every record from the index.
func (p *Pipeline) Reset(ctx context.Context) (ResetOutcome, error) {
	if !p.ready() {
		return ResetOutcome{}, ErrNotInitialized
	}

	before, err := p.store.Stats(ctx)
	if err != nil {
		return ResetOutcome{}, fmt.Errorf("count before reset: %w", err)
	}
	if err := p.store.Reset(ctx); err != nil {
		return ResetOutcome{}, fmt.Errorf("reset index: %w", err)
	}
	after, err := p.store.Stats(ctx)
	if err != nil {
		return ResetOutcome{}, fmt.Errorf("count after reset: %w", err)
	}

	p.logger.Info("index reset", "records_before", before.Records, "records_after", after.Records)
	return ResetOutcome{RecordsBefore: before.Records, RecordsAfter: after.Records}, nil
}

// Close releases the underlying store.
func (p *Pipeline) Close() error {
	return p.store.Close()
}
