package embeddings

import (
	"context"
	"fmt"

	"github.com/bidwerx/tendervec/internal/config"
	"go.uber.org/zap"
)

// Provider is the interface for embedding providers.
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts, one vector per
	// input, all of width Dimension(). Implementations batch internally when
	// the backend caps request size.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query. Some models
	// optimize differently for queries vs documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension for the current model.
	Dimension() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources held by the provider.
	Close() error
}

// DefaultModel is the known-good local model used when the configured
// provider cannot initialize.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg config.EmbeddingsConfig) (Provider, error) {
	switch cfg.Provider {
	case "fastembed", "":
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey.Value(),
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// NewProviderWithFallback creates the configured provider, substituting the
// local default on initialization failure. The returned bool reports whether
// the fallback was used. Construction fails only when the fallback itself
// cannot initialize.
func NewProviderWithFallback(cfg config.EmbeddingsConfig, logger *zap.Logger) (Provider, bool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider, err := NewProvider(cfg)
	if err == nil {
		return provider, false, nil
	}

	logger.Warn("embedding provider unavailable, falling back to local default",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.String("fallback_model", DefaultModel),
		zap.Error(err),
	)

	fallback, fbErr := NewFastEmbedProvider(FastEmbedConfig{
		Model:    DefaultModel,
		CacheDir: cfg.CacheDir,
	})
	if fbErr != nil {
		return nil, false, fmt.Errorf("fallback provider: %w", fbErr)
	}

	return fallback, true, nil
}
