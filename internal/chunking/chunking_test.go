package chunking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChunker(t *testing.T, size, overlap int) *Chunker {
	t.Helper()
	c, err := New(Config{ChunkSize: size, ChunkOverlap: overlap})
	require.NoError(t, err)
	return c
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"defaults", Config{}, true},
		{"negative overlap", Config{ChunkSize: 100, ChunkOverlap: -1}, false},
		{"overlap equals size", Config{ChunkSize: 100, ChunkOverlap: 100}, false},
		{"negative size", Config{ChunkSize: -5, ChunkOverlap: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestSplitEmpty(t *testing.T) {
	c := newTestChunker(t, 100, 10)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	c := newTestChunker(t, 100, 10)
	chunks := c.Split("a short document")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short document", chunks[0])
}

func TestSplitOverlap(t *testing.T) {
	c := newTestChunker(t, 50, 10)

	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "word%02d ", i)
	}
	chunks := c.Split(sb.String())
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1][len(chunks[i-1])-6:]
		assert.Contains(t, chunks[i], strings.TrimSpace(prevTail),
			"chunk %d should overlap the tail of chunk %d", i, i-1)
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	c := newTestChunker(t, 60, 5)

	text := "The first sentence sits right here. The second sentence continues well past the window size boundary."
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, "The first sentence sits right here.", chunks[0])
}

func TestSplitNoBoundaryFallsBackToWindow(t *testing.T) {
	c := newTestChunker(t, 20, 4)

	text := strings.Repeat("x", 55)
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	assert.Len(t, chunks[0], 20)
}

func TestSplitAlwaysAdvances(t *testing.T) {
	// Overlap nearly as large as the window must not loop forever.
	c := newTestChunker(t, 10, 9)
	chunks := c.Split(strings.Repeat("y", 100))
	assert.NotEmpty(t, chunks)
}

func TestSplitMultibyte(t *testing.T) {
	c := newTestChunker(t, 10, 2)
	chunks := c.Split(strings.Repeat("日本語のテキスト ", 10))
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.True(t, strings.ContainsRune(chunk, '日') || strings.ContainsRune(chunk, 'テ') ||
			strings.ContainsRune(chunk, '本') || len(chunk) > 0)
	}
}

func TestNewDocuments(t *testing.T) {
	c := newTestChunker(t, 40, 5)

	text := "Sentence one ends here. Sentence two ends here. Sentence three ends here."
	docs := c.NewDocuments("prop-7", text, "proposal", map[string]interface{}{"type": "proposal"})
	require.Greater(t, len(docs), 1)

	for i, d := range docs {
		assert.Equal(t, fmt.Sprintf("prop-7_chunk_%d", i), d.ID)
		assert.Equal(t, "prop-7", d.ParentDocumentID)
		assert.Equal(t, "proposal", d.Source)
		require.NotNil(t, d.ChunkIndex)
		assert.Equal(t, i, *d.ChunkIndex)
		assert.Equal(t, "proposal", d.Metadata["type"])
		assert.Equal(t, len(docs), d.Metadata["chunk_count"])
	}
}

func TestNewDocumentsEmptyText(t *testing.T) {
	c := newTestChunker(t, 40, 5)
	assert.Empty(t, c.NewDocuments("id", "", "src", nil))
}
