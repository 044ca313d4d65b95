package vectorstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesFilter(t *testing.T) {
	document := &VectorDocument{
		ID:               "d1",
		Source:           "crawler",
		ParentDocumentID: "parent-9",
		Metadata: map[string]interface{}{
			"type":   "opportunity",
			"budget": 250000,
		},
	}

	tests := []struct {
		name    string
		filters map[string]interface{}
		want    bool
	}{
		{"no filters", map[string]interface{}{}, true},
		{"metadata match", map[string]interface{}{"type": "opportunity"}, true},
		{"metadata mismatch", map[string]interface{}{"type": "proposal"}, false},
		{"absent key never matches", map[string]interface{}{"region": "north"}, false},
		{"source field", map[string]interface{}{"source": "crawler"}, true},
		{"source mismatch", map[string]interface{}{"source": "upload"}, false},
		{"parent field", map[string]interface{}{"parent_document_id": "parent-9"}, true},
		{"all must match", map[string]interface{}{"type": "opportunity", "region": "north"}, false},
		{"numeric tolerant", map[string]interface{}{"budget": float64(250000)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesFilter(document, tt.filters))
		})
	}
}

func TestMatchesFilterAfterJSONRoundTrip(t *testing.T) {
	document := &VectorDocument{
		ID:       "d1",
		Metadata: map[string]interface{}{"chunk_count": 3},
	}
	data, err := json.Marshal(document)
	require.NoError(t, err)

	var restored VectorDocument
	require.NoError(t, json.Unmarshal(data, &restored))

	// Ints come back as float64 from JSON; the filter must still match.
	assert.True(t, matchesFilter(&restored, map[string]interface{}{"chunk_count": 3}))
}
