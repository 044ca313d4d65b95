package embeddings

import "errors"

var (
	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrEmbeddingFailed indicates the backend failed mid-batch. The
	// enclosing add or search operation is aborted; no partial index
	// mutation occurs.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrProviderInit indicates the provider could not initialize (missing
	// credentials, missing local model). Callers fall back to the default
	// provider rather than failing construction.
	ErrProviderInit = errors.New("embedding provider initialization failed")
)
