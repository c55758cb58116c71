// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (RAGPIPE_* plus DATABASE_URL)
//  2. Config file (~/.ragpipe/config.yaml or ./config.yaml)
//  3. Default values
//
// Validation uses sentinel errors so callers can check failure categories
// with errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidBackend indicates an unknown index backend name.
	ErrInvalidBackend = errors.New("invalid index backend")

	// ErrInvalidCollection indicates an empty collection name.
	ErrInvalidCollection = errors.New("invalid collection name")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates the overlap is out of range.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidEmbeddingModel indicates an empty embedding model name.
	ErrInvalidEmbeddingModel = errors.New("invalid embedding model")

	// ErrInvalidBatchSize indicates the embedding batch size is out of range.
	ErrInvalidBatchSize = errors.New("invalid embedding batch size")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")
)

// Index backend identifiers used in Config.IndexBackend.
const (
	BackendChromem  = "chromem"
	BackendPGVector = "pgvector"
)

// Config stores application configuration.
type Config struct {
	// Index configuration
	Collection   string `mapstructure:"collection" json:"collection"`
	StoragePath  string `mapstructure:"storage_path" json:"storage_path"`
	IndexBackend string `mapstructure:"index_backend" json:"index_backend"` // "chromem" (default) or "pgvector"

	// Chunking configuration
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Embedding configuration
	EmbeddingBaseURL  string  `mapstructure:"embedding_base_url" json:"embedding_base_url"`
	EmbeddingModel    string  `mapstructure:"embedding_model" json:"embedding_model"`
	EmbeddingDims     int     `mapstructure:"embedding_dimensions" json:"embedding_dimensions"` // 0 = discover at load
	EmbeddingBatch    int     `mapstructure:"embedding_batch_size" json:"embedding_batch_size"`
	EmbeddingTimeout  int     `mapstructure:"embedding_timeout_seconds" json:"embedding_timeout_seconds"`
	EmbeddingRPS      float64 `mapstructure:"embedding_requests_per_second" json:"embedding_requests_per_second"` // 0 = unthrottled

	// PostgreSQL configuration (pgvector backend only)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"` // SENSITIVE: never serialized
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration from ~/.ragpipe, the current directory, the
// environment and defaults, then validates it.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	return LoadFrom(filepath.Join(home, ".ragpipe"))
}

// LoadFrom loads configuration like Load but searches configDir for the
// config file instead of ~/.ragpipe.
func LoadFrom(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("collection", "documents")
	v.SetDefault("storage_path", filepath.Join(configDir, "index"))
	v.SetDefault("index_backend", BackendChromem)

	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)

	v.SetDefault("embedding_base_url", "http://localhost:11434")
	v.SetDefault("embedding_model", "all-minilm")
	v.SetDefault("embedding_dimensions", 0)
	v.SetDefault("embedding_batch_size", 32)
	v.SetDefault("embedding_timeout_seconds", 30)
	v.SetDefault("embedding_requests_per_second", 0)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "ragpipe")
	v.SetDefault("postgres_password", "ragpipe_dev_password")
	v.SetDefault("postgres_db_name", "ragpipe")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds RAGPIPE_* environment overrides explicitly.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("collection", "RAGPIPE_COLLECTION")
	mustBind("storage_path", "RAGPIPE_STORAGE_PATH")
	mustBind("index_backend", "RAGPIPE_INDEX_BACKEND")
	mustBind("chunk_size", "RAGPIPE_CHUNK_SIZE")
	mustBind("chunk_overlap", "RAGPIPE_CHUNK_OVERLAP")
	mustBind("embedding_base_url", "RAGPIPE_EMBEDDING_BASE_URL")
	mustBind("embedding_model", "RAGPIPE_EMBEDDING_MODEL")
	mustBind("embedding_dimensions", "RAGPIPE_EMBEDDING_DIMENSIONS")
	mustBind("log_level", "RAGPIPE_LOG_LEVEL")
	mustBind("log_json", "RAGPIPE_LOG_JSON")
	mustBind("postgres_password", "RAGPIPE_POSTGRES_PASSWORD")
}

// Validate checks every field against its allowed range.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.IndexBackend {
	case BackendChromem, BackendPGVector:
	default:
		return fmt.Errorf("%w: %q (want %q or %q)",
			ErrInvalidBackend, c.IndexBackend, BackendChromem, BackendPGVector)
	}

	if c.Collection == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidCollection)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: %d (must be positive)", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: %d (must be in [0, chunk_size))", ErrInvalidChunkOverlap, c.ChunkOverlap)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidEmbeddingModel)
	}
	if c.EmbeddingBatch <= 0 || c.EmbeddingBatch > 1024 {
		return fmt.Errorf("%w: %d (must be in [1, 1024])", ErrInvalidBatchSize, c.EmbeddingBatch)
	}

	if c.IndexBackend == BackendPGVector {
		if c.PostgresHost == "" {
			return fmt.Errorf("%w: must not be empty", ErrInvalidPostgresHost)
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
		}
	}
	return nil
}

// EmbeddingTimeoutDuration returns the embedding request timeout.
func (c *Config) EmbeddingTimeoutDuration() time.Duration {
	return time.Duration(c.EmbeddingTimeout) * time.Second
}
