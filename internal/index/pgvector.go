package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGStore is a vector index backed by PostgreSQL with the pgvector
// extension. It is the backend for deployments where the index is shared
// across processes. PGStore is safe for concurrent use.
type PGStore struct {
	pool      *pgxpool.Pool
	dimension int
	logger    *slog.Logger
}

// NewPGStore connects to the database, enables the vector extension and
// creates the documents table if missing. dimension fixes the width of the
// embedding column.
func NewPGStore(ctx context.Context, dsn string, dimension int, logger *slog.Logger) (*PGStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dimension)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id         text PRIMARY KEY,
			content    text NOT NULL,
			embedding  vector(%d) NOT NULL,
			metadata   jsonb NOT NULL DEFAULT '{}'::jsonb,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS documents_metadata_idx ON documents USING gin (metadata)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("prepare schema: %w", err)
		}
	}

	logger.Info("vector store opened", "backend", "pgvector", "dimension", dimension)
	return &PGStore{pool: pool, dimension: dimension, logger: logger}, nil
}

// Insert upserts one record per text inside a single transaction and
// returns the record IDs in input order.
func (s *PGStore) Insert(ctx context.Context, texts []string, vectors [][]float32, metadatas []map[string]any, ids []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := validateInsert(texts, vectors, metadatas, ids); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
		INSERT INTO documents (id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content,
		    embedding = EXCLUDED.embedding,
		    metadata = EXCLUDED.metadata`

	assigned := make([]string, len(texts))
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
		metadataJSON, err := json.Marshal(normalizeMetadata(metadata))
		if err != nil {
			return nil, fmt.Errorf("marshal metadata for record %d: %w", i, err)
		}

		if _, err := tx.Exec(ctx, insertSQL, id, text, pgvector.NewVector(vectors[i]), metadataJSON); err != nil {
			return nil, fmt.Errorf("insert record %q: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}

	s.logger.Debug("records inserted", "count", len(texts))
	return assigned, nil
}

// Search returns up to topK records ranked by cosine similarity to vector,
// descending. A failed query is retried once before the error surfaces.
func (s *PGStore) Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]Result, error) {
	if topK <= 0 {
		return []Result{}, nil
	}

	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("marshal filter: %w", err)
	}

	// The <=> operator is cosine distance (1 - cosine), so
	// 1 - distance/2 lands on the shared (1 + cosine)/2 scale.
	const searchSQL = `
		SELECT id, content, metadata, 1 - (embedding <=> $1) / 2 AS score
		FROM documents
		WHERE metadata @> $2
		ORDER BY embedding <=> $1
		LIMIT $3`

	query := pgvector.NewVector(vector)
	rows, err := s.pool.Query(ctx, searchSQL, query, filterJSON, topK)
	if err != nil {
		s.logger.Warn("search failed, retrying once", "error", err)
		rows, err = s.pool.Query(ctx, searchSQL, query, filterJSON, topK)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
	}
	defer rows.Close()

	results := make([]Result, 0, topK)
	for rows.Next() {
		var (
			r            Result
			metadataJSON []byte
		)
		if err := rows.Scan(&r.ID, &r.Content, &metadataJSON, &r.Score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
			s.logger.Warn("unparseable record metadata", "id", r.ID, "error", err)
			r.Metadata = map[string]string{}
		}
		r.Score = clampScore(r.Score)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read search rows: %w", err)
	}
	return results, nil
}

// GetByID fetches a single record with score 1.0, or ErrNotFound.
func (s *PGStore) GetByID(ctx context.Context, id string) (Result, error) {
	const getSQL = `SELECT id, content, metadata FROM documents WHERE id = $1`

	var (
		r            Result
		metadataJSON []byte
	)
	err := s.pool.QueryRow(ctx, getSQL, id).Scan(&r.ID, &r.Content, &metadataJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Result{}, fmt.Errorf("get record %q: %w", id, err)
	}
	if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
		r.Metadata = map[string]string{}
	}
	r.Score = 1.0
	return r, nil
}

// DeleteByIDs removes the given records. Unknown IDs are ignored.
func (s *PGStore) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("delete %d records: %w", len(ids), err)
	}
	s.logger.Debug("records deleted", "requested", len(ids), "deleted", tag.RowsAffected())
	return nil
}

// DeleteByMetadata removes every record whose metadata contains all filter
// pairs. An empty filter is rejected to prevent accidental full wipes.
func (s *PGStore) DeleteByMetadata(ctx context.Context, filter map[string]string) error {
	if len(filter) == 0 {
		return fmt.Errorf("metadata filter must not be empty")
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return fmt.Errorf("marshal filter: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE metadata @> $1`, filterJSON); err != nil {
		return fmt.Errorf("delete by metadata: %w", err)
	}
	return nil
}

// Stats reports the record count and distinct source file count, computed
// fresh on every call.
func (s *PGStore) Stats(ctx context.Context) (Stats, error) {
	const statsSQL = `
		SELECT COUNT(*), COUNT(DISTINCT metadata->>'filename')
		FROM documents`

	var st Stats
	if err := s.pool.QueryRow(ctx, statsSQL).Scan(&st.Records, &st.DistinctFiles); err != nil {
		return Stats{}, fmt.Errorf("collect stats: %w", err)
	}
	return st, nil
}

// Reset removes every record but keeps the schema.
func (s *PGStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE documents`); err != nil {
		return fmt.Errorf("truncate documents: %w", err)
	}
	s.logger.Info("vector store reset", "backend", "pgvector")
	return nil
}

// Close releases the connection pool.
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
