package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/koopa0/ragpipe/internal/chunk"
	"github.com/koopa0/ragpipe/internal/config"
	"github.com/koopa0/ragpipe/internal/embed"
	"github.com/koopa0/ragpipe/internal/extract"
	"github.com/koopa0/ragpipe/internal/index"
	"github.com/koopa0/ragpipe/internal/log"
	"github.com/koopa0/ragpipe/internal/rag"
)

// timeRound is the display precision for durations.
const timeRound = time.Millisecond

// buildPipeline assembles and initializes the full pipeline from the
// loaded configuration. The returned pipeline is ready for use; callers
// must Close it.
func buildPipeline(ctx context.Context) (*rag.Pipeline, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger := log.New(log.Config{
		Level: parseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	slog.SetDefault(logger)

	engine := embed.NewEngine(
		embed.NewOllamaClient(embed.OllamaConfig{
			BaseURL:           cfg.EmbeddingBaseURL,
			Model:             cfg.EmbeddingModel,
			Timeout:           cfg.EmbeddingTimeoutDuration(),
			Dimensions:        cfg.EmbeddingDims,
			RequestsPerSecond: cfg.EmbeddingRPS,
		}),
		embed.WithBatchSize(cfg.EmbeddingBatch),
		embed.WithLogger(logger.With("component", "embed")),
	)

	// The store needs the embedding dimension, so the model loads first.
	if err := engine.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("loading embedding model: %w", err)
	}

	store, err := buildStore(ctx, cfg, engine.Dimension(), logger)
	if err != nil {
		return nil, nil, err
	}

	pipeline := rag.New(
		extract.New(logger.With("component", "extract")),
		chunk.New(
			chunk.WithChunkSize(cfg.ChunkSize),
			chunk.WithOverlap(cfg.ChunkOverlap),
		),
		engine,
		store,
		rag.WithLogger(logger.With("component", "pipeline")),
		rag.WithCollection(cfg.Collection),
		rag.WithStoragePath(cfg.StoragePath),
	)

	if err := pipeline.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return pipeline, cfg, nil
}

func buildStore(ctx context.Context, cfg *config.Config, dimension int, logger log.Logger) (index.Store, error) {
	storeLogger := logger.With("component", "index")

	switch cfg.IndexBackend {
	case config.BackendPGVector:
		store, err := index.NewPGStore(ctx, cfg.PostgresConnectionString(), dimension, storeLogger)
		if err != nil {
			return nil, fmt.Errorf("opening pgvector store: %w", err)
		}
		return store, nil
	default:
		store, err := index.NewChromemStore(cfg.StoragePath, cfg.Collection, dimension, storeLogger)
		if err != nil {
			return nil, fmt.Errorf("opening chromem store: %w", err)
		}
		return store, nil
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
