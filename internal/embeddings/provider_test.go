package embeddings

import (
	"testing"

	"github.com/bidwerx/tendervec/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewProviderRejectsUnknown(t *testing.T) {
	_, err := NewProvider(config.EmbeddingsConfig{Provider: "cohere"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewFastEmbedProviderRejectsUnknownModel(t *testing.T) {
	_, err := NewFastEmbedProvider(FastEmbedConfig{Model: "no-such-model"})
	assert.ErrorIs(t, err, ErrProviderInit)
}

func TestNewOpenAIProviderRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIProvider(OpenAIConfig{Model: "text-embedding-3-small"})
	assert.ErrorIs(t, err, ErrProviderInit)
}

func TestOpenAIDimensionByModel(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-ada-002", 1536},
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, openaiDimensions[tt.model])
		})
	}
}

func TestFastEmbedModelDimensions(t *testing.T) {
	for name, model := range modelMapping {
		dim, ok := modelDimensions[model]
		assert.True(t, ok, "model %s has no dimension entry", name)
		assert.Positive(t, dim)
	}
}
