package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore is an embedded persistent vector index backed by chromem-go.
// Records survive process restarts under the configured storage path.
//
// The store always receives vectors from the caller, so the collection's
// embedding function is never invoked. ChromemStore is safe for concurrent
// use.
type ChromemStore struct {
	db        *chromem.DB
	name      string
	dimension int
	logger    *slog.Logger

	mu         sync.RWMutex
	collection *chromem.Collection
}

// NewChromemStore opens (or creates) a persistent database at path and the
// named collection inside it. dimension is the vector width the caller will
// insert and search with; it is needed to walk stored metadata.
func NewChromemStore(path, collection string, dimension int, logger *slog.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dimension)
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open vector database at %s: %w", path, err)
	}

	coll, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection %q: %w", collection, err)
	}

	logger.Info("vector store opened",
		"backend", "chromem",
		"path", path,
		"collection", collection,
		"records", coll.Count())

	return &ChromemStore{
		db:         db,
		name:       collection,
		dimension:  dimension,
		logger:     logger,
		collection: coll,
	}, nil
}

// Insert adds one record per text and returns the record IDs in input
// order. IDs are generated for entries where ids is nil or empty.
func (s *ChromemStore) Insert(ctx context.Context, texts []string, vectors [][]float32, metadatas []map[string]any, ids []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := validateInsert(texts, vectors, metadatas, ids); err != nil {
		return nil, err
	}

	assigned := make([]string, len(texts))
	docs := make([]chromem.Document, len(texts))
	for i, text := range texts {
		id := ""
		if ids != nil {
			id = ids[i]
		}
		if id == "" {
			id = uuid.NewString()
		}
		assigned[i] = id

		var metadata map[string]any
		if metadatas != nil {
			metadata = metadatas[i]
		}
		docs[i] = chromem.Document{
			ID:        id,
			Content:   text,
			Embedding: vectors[i],
			Metadata:  normalizeMetadata(metadata),
		}
	}

	if err := s.coll().AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("add %d records: %w", len(docs), err)
	}

	s.logger.Debug("records inserted", "count", len(docs), "total", s.coll().Count())
	return assigned, nil
}

// Search returns up to topK records ranked by similarity to vector,
// descending. The requested size is clamped to the collection size; an
// empty collection yields an empty result. A failed query is retried once
// before the error surfaces.
func (s *ChromemStore) Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]Result, error) {
	if topK <= 0 {
		return []Result{}, nil
	}
	coll := s.coll()
	count := coll.Count()
	if count == 0 {
		return []Result{}, nil
	}
	if topK > count {
		topK = count
	}

	matches, err := coll.QueryEmbedding(ctx, vector, topK, filter, nil)
	if err != nil {
		s.logger.Warn("search failed, retrying once", "error", err)
		matches, err = coll.QueryEmbedding(ctx, vector, topK, filter, nil)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			ID:       m.ID,
			Content:  m.Content,
			Metadata: cloneMetadata(m.Metadata),
			Score:    clampScore((1 + float64(m.Similarity)) / 2),
		})
	}
	return results, nil
}

// GetByID fetches a single record. The score is 1.0 since the match is
// exact. Absent IDs return ErrNotFound.
func (s *ChromemStore) GetByID(ctx context.Context, id string) (Result, error) {
	doc, err := s.coll().GetByID(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return Result{
		ID:       doc.ID,
		Content:  doc.Content,
		Metadata: cloneMetadata(doc.Metadata),
		Score:    1.0,
	}, nil
}

// DeleteByIDs removes the given records. Unknown IDs are ignored.
func (s *ChromemStore) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.coll().Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete %d records: %w", len(ids), err)
	}
	s.logger.Debug("records deleted", "count", len(ids))
	return nil
}

// DeleteByMetadata removes every record whose metadata contains all filter
// pairs. An empty filter is rejected to prevent accidental full wipes.
func (s *ChromemStore) DeleteByMetadata(ctx context.Context, filter map[string]string) error {
	if len(filter) == 0 {
		return fmt.Errorf("metadata filter must not be empty")
	}
	if err := s.coll().Delete(ctx, filter, nil); err != nil {
		return fmt.Errorf("delete by metadata: %w", err)
	}
	return nil
}

// Stats reports the record count and the number of distinct source files.
// chromem has no listing primitive, so distinct filenames come from a full
// scan: a probe query sized to the whole collection. Counts are computed
// fresh on every call.
func (s *ChromemStore) Stats(ctx context.Context) (Stats, error) {
	coll := s.coll()
	count := coll.Count()
	if count == 0 {
		return Stats{}, nil
	}

	probe := make([]float32, s.dimension)
	probe[0] = 1

	matches, err := coll.QueryEmbedding(ctx, probe, count, nil, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("scan records: %w", err)
	}

	files := make(map[string]struct{})
	for _, m := range matches {
		if name := m.Metadata["filename"]; name != "" {
			files[name] = struct{}{}
		}
	}
	return Stats{Records: count, DistinctFiles: len(files)}, nil
}

// Reset drops and recreates the collection, removing every record.
func (s *ChromemStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("drop collection %q: %w", s.name, err)
	}
	coll, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("recreate collection %q: %w", s.name, err)
	}
	s.collection = coll
	s.logger.Info("vector store reset", "collection", s.name)
	return nil
}

func (s *ChromemStore) coll() *chromem.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection
}

// Close is a no-op: chromem persists on every write.
func (*ChromemStore) Close() error {
	return nil
}

func cloneMetadata(metadata map[string]string) map[string]string {
	clone := make(map[string]string, len(metadata))
	for k, v := range metadata {
		clone[k] = v
	}
	return clone
}
