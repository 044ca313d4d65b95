// Package chunking splits long documents into overlapping windows suitable
// for embedding. Windows prefer to end on a sentence boundary so chunks stay
// semantically coherent.
package chunking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bidwerx/tendervec/internal/vectorstore"
)

// ErrInvalidConfig indicates invalid chunker configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds chunker configuration.
type Config struct {
	// ChunkSize is the target window size in runes.
	ChunkSize int

	// ChunkOverlap is how many runes consecutive windows share.
	ChunkOverlap int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 100
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidConfig)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative", ErrInvalidConfig)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// Chunker splits text into overlapping windows.
type Chunker struct {
	cfg Config
}

// New creates a chunker.
func New(cfg Config) (*Chunker, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg}, nil
}

// sentence boundary markers, in backtrack preference order.
var boundaries = []string{". ", "! ", "? ", "\n"}

// Split returns the chunk texts for a document. Whitespace-only input
// yields no chunks; input at or below the chunk size yields one chunk.
func (c *Chunker) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= c.cfg.ChunkSize {
		return []string{trimmed}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.cfg.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.backtrack(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - c.cfg.ChunkOverlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// backtrack moves a window end left to just past the last sentence boundary,
// but never past the window midpoint; mid-sentence splits beat half-empty
// windows.
func (c *Chunker) backtrack(runes []rune, start, end int) int {
	window := string(runes[start:end])
	best := -1
	for _, b := range boundaries {
		if i := strings.LastIndex(window, b); i >= 0 {
			cut := len([]rune(window[:i])) + len([]rune(b))
			if cut > best {
				best = cut
			}
		}
	}
	if best > c.cfg.ChunkSize/2 {
		return start + best
	}
	return end
}

// NewDocuments chunks text and wraps each chunk as a vector document. Chunk
// ids are derived from the parent id; every chunk carries the parent
// reference, its ordinal, and a copy of the shared metadata.
func (c *Chunker) NewDocuments(parentID, text, source string, metadata map[string]interface{}) []*vectorstore.VectorDocument {
	chunks := c.Split(text)
	docs := make([]*vectorstore.VectorDocument, 0, len(chunks))
	for i, chunk := range chunks {
		idx := i
		meta := make(map[string]interface{}, len(metadata)+1)
		for k, v := range metadata {
			meta[k] = v
		}
		meta["chunk_count"] = len(chunks)
		docs = append(docs, &vectorstore.VectorDocument{
			ID:               fmt.Sprintf("%s_chunk_%d", parentID, i),
			Content:          chunk,
			Metadata:         meta,
			Source:           source,
			ChunkIndex:       &idx,
			ParentDocumentID: parentID,
		})
	}
	return docs
}
