package vectorstore

import "fmt"

// Index algorithms.
const (
	// AlgorithmFlatIP is exact flat search with inner-product scoring.
	AlgorithmFlatIP = "flat_ip"
	// AlgorithmFlatL2 is exact flat search with L2 distance.
	AlgorithmFlatL2 = "flat_l2"
	// AlgorithmIVFFlat is approximate inverted-file search over flat lists.
	AlgorithmIVFFlat = "ivf_flat"
	// AlgorithmHNSW is approximate graph search.
	AlgorithmHNSW = "hnsw"
)

// Similarity metrics.
const (
	MetricCosine    = "cosine"
	MetricEuclidean = "euclidean"
)

// IndexConfig holds configuration for the index engine.
type IndexConfig struct {
	// Dimension is the embedding width. Corrected from the embedding
	// provider at startup when they disagree; vectors are never silently
	// truncated.
	Dimension int

	// Algorithm selects the index structure.
	Algorithm string

	// Metric is the similarity metric. Cosine is computed as inner product
	// over L2-normalized vectors.
	Metric string

	// NList is the cluster count for ivf_flat.
	NList int

	// NProbe is the number of clusters searched for ivf_flat.
	NProbe int

	// StoreOnDisk enables persistence after every mutation.
	StoreOnDisk bool

	// IndexPath is the binary index file location.
	IndexPath string

	// MetadataPath is the JSON metadata sidecar location.
	MetadataPath string

	// EmbeddingModel is the model identifier recorded in the sidecar.
	// Overwritten from the provider at construction.
	EmbeddingModel string

	// BatchSize is the embedding batch size for bulk operations.
	BatchSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *IndexConfig) ApplyDefaults() {
	if c.Dimension == 0 {
		c.Dimension = 384
	}
	if c.Algorithm == "" {
		c.Algorithm = AlgorithmFlatIP
	}
	if c.Metric == "" {
		c.Metric = MetricCosine
	}
	if c.NList == 0 {
		c.NList = 100
	}
	if c.NProbe == 0 {
		c.NProbe = 10
	}
	if c.IndexPath == "" {
		c.IndexPath = "data/embeddings/vector_index.bin"
	}
	if c.MetadataPath == "" {
		c.MetadataPath = "data/embeddings/metadata.json"
	}
	if c.BatchSize == 0 {
		c.BatchSize = 32
	}
}

// Validate validates the configuration.
func (c *IndexConfig) Validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	switch c.Algorithm {
	case AlgorithmFlatIP, AlgorithmFlatL2, AlgorithmIVFFlat, AlgorithmHNSW:
	default:
		return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, c.Algorithm)
	}
	switch c.Metric {
	case MetricCosine, MetricEuclidean:
	default:
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidConfig, c.Metric)
	}
	if c.NList <= 0 || c.NProbe <= 0 {
		return fmt.Errorf("%w: nlist and nprobe must be positive", ErrInvalidConfig)
	}
	return nil
}
