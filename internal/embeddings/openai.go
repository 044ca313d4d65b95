package embeddings

import (
	"context"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// openaiBatchLimit is the maximum inputs per embedding request.
const openaiBatchLimit = 100

// openaiDimensions maps OpenAI embedding models to their output widths.
var openaiDimensions = map[string]int{
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

// OpenAIConfig holds configuration for the OpenAI embedding provider.
type OpenAIConfig struct {
	// Model is the embedding model: text-embedding-3-small, etc.
	Model string

	// BaseURL overrides the API endpoint. Any OpenAI-compatible server
	// (TEI, vLLM) works. Empty uses the OpenAI default.
	BaseURL string

	// APIKey is the API key. Required.
	APIKey string
}

// OpenAIProvider generates embeddings via an OpenAI-compatible API.
type OpenAIProvider struct {
	embedder  *lcembeddings.EmbedderImpl
	modelName string
	dimension int
}

// NewOpenAIProvider creates a new remote embedding provider.
// A missing API key is an initialization error (ErrProviderInit) so callers
// can fall back to the local provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key required", ErrProviderInit)
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	dimension, ok := openaiDimensions[model]
	if !ok {
		dimension = 1536
	}

	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithEmbeddingModel(model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating OpenAI client: %v", ErrProviderInit, err)
	}

	embedder, err := lcembeddings.NewEmbedder(llm,
		lcembeddings.WithBatchSize(openaiBatchLimit),
		lcembeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: creating embedder: %v", ErrProviderInit, err)
	}

	return &OpenAIProvider{
		embedder:  embedder,
		modelName: model,
		dimension: dimension,
	}, nil
}

// EmbedDocuments generates embeddings for multiple texts. The underlying
// embedder splits requests at the API batch limit.
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	return vector, nil
}

// Dimension returns the embedding dimension for the configured model.
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}

// ModelName returns the model identifier.
func (p *OpenAIProvider) ModelName() string {
	return p.modelName
}

// Close is a no-op for the HTTP-backed provider.
func (p *OpenAIProvider) Close() error {
	return nil
}
