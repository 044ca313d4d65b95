// Package config provides configuration loading for tendervec.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig indicates a configuration value failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration for tendervec.
//
// Values are loaded from a YAML file and overridden by TENDERVEC_* environment
// variables (see Load). The loaded Config is passed explicitly into
// constructors; there is no process-wide configuration singleton.
type Config struct {
	Index      IndexConfig      `koanf:"index"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Chunking   ChunkingConfig   `koanf:"chunking"`
	Database   DatabaseConfig   `koanf:"database"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// IndexConfig configures the vector index engine.
type IndexConfig struct {
	// Dimension is the embedding width. Corrected from the active embedding
	// provider at startup if it disagrees.
	Dimension int `koanf:"dimension"`

	// Algorithm selects the index structure:
	// flat_ip, flat_l2, ivf_flat, hnsw.
	Algorithm string `koanf:"algorithm"`

	// Metric is the similarity metric: cosine or euclidean.
	Metric string `koanf:"metric"`

	// NList is the number of clusters for ivf_flat.
	NList int `koanf:"nlist"`

	// NProbe is the number of clusters searched for ivf_flat.
	NProbe int `koanf:"nprobe"`

	// StoreOnDisk enables persistence after every mutation.
	StoreOnDisk bool `koanf:"store_on_disk"`

	// IndexPath is the binary index file location.
	IndexPath string `koanf:"index_path"`

	// MetadataPath is the JSON metadata sidecar location.
	MetadataPath string `koanf:"metadata_path"`

	// BatchSize is the embedding batch size for bulk operations.
	BatchSize int `koanf:"batch_size"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is the provider type: "fastembed" (local) or "openai" (remote).
	Provider string `koanf:"provider"`

	// Model is the embedding model name.
	Model string `koanf:"model"`

	// BaseURL is the API base URL (openai provider only).
	BaseURL string `koanf:"base_url"`

	// APIKey is the API key (openai provider only).
	APIKey Secret `koanf:"api_key"`

	// CacheDir is the local model cache directory (fastembed only).
	CacheDir string `koanf:"cache_dir"`

	// RequestTimeout bounds one embedding operation. Providers impose no
	// timeout themselves; callers apply this to the context they pass in.
	RequestTimeout Duration `koanf:"request_timeout"`
}

// ChunkingConfig configures document chunking.
type ChunkingConfig struct {
	// MaxSize is the maximum chunk length in characters.
	MaxSize int `koanf:"max_size"`

	// Overlap is the character overlap between consecutive chunks.
	Overlap int `koanf:"overlap"`
}

// DatabaseConfig configures the relational collaborator.
type DatabaseConfig struct {
	// Path is the SQLite database file location.
	Path string `koanf:"path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the log encoding: json or console.
	Format string `koanf:"format"`
}

// NewDefaultConfig returns a Config with production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Dimension:    384,
			Algorithm:    "flat_ip",
			Metric:       "cosine",
			NList:        100,
			NProbe:       10,
			StoreOnDisk:  true,
			IndexPath:    "data/embeddings/vector_index.bin",
			MetadataPath: "data/embeddings/metadata.json",
			BatchSize:    32,
		},
		Embeddings: EmbeddingsConfig{
			Provider:       "fastembed",
			Model:          "sentence-transformers/all-MiniLM-L6-v2",
			RequestTimeout: Duration(60 * time.Second),
		},
		Chunking: ChunkingConfig{
			MaxSize: 1000,
			Overlap: 100,
		},
		Database: DatabaseConfig{
			Path: "data/tendervec.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Index.Dimension <= 0 {
		return fmt.Errorf("%w: index.dimension must be positive", ErrInvalidConfig)
	}
	switch c.Index.Algorithm {
	case "flat_ip", "flat_l2", "ivf_flat", "hnsw":
	default:
		return fmt.Errorf("%w: unknown index.algorithm %q", ErrInvalidConfig, c.Index.Algorithm)
	}
	switch c.Index.Metric {
	case "cosine", "euclidean":
	default:
		return fmt.Errorf("%w: unknown index.metric %q", ErrInvalidConfig, c.Index.Metric)
	}
	if c.Index.NList <= 0 {
		return fmt.Errorf("%w: index.nlist must be positive", ErrInvalidConfig)
	}
	if c.Index.NProbe <= 0 {
		return fmt.Errorf("%w: index.nprobe must be positive", ErrInvalidConfig)
	}
	if c.Index.BatchSize <= 0 {
		return fmt.Errorf("%w: index.batch_size must be positive", ErrInvalidConfig)
	}
	switch c.Embeddings.Provider {
	case "fastembed", "openai":
	default:
		return fmt.Errorf("%w: unknown embeddings.provider %q", ErrInvalidConfig, c.Embeddings.Provider)
	}
	if c.Embeddings.RequestTimeout < 0 {
		return fmt.Errorf("%w: embeddings.request_timeout must not be negative", ErrInvalidConfig)
	}
	if c.Chunking.MaxSize <= 0 {
		return fmt.Errorf("%w: chunking.max_size must be positive", ErrInvalidConfig)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxSize {
		return fmt.Errorf("%w: chunking.overlap must be in [0, max_size)", ErrInvalidConfig)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: unknown logging.format %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}
