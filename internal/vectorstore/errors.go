package vectorstore

import "errors"

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid index configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotReady indicates an operation was invoked before the engine
	// finished initialization.
	ErrNotReady = errors.New("engine not ready")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrDimensionMismatch indicates a vector width disagrees with the
	// index dimension, or a persisted sidecar declares a dimension
	// different from the active embedding provider's output width.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrPersistence indicates a disk read or write failure. On write the
	// in-memory mutation is not rolled back; this is a documented
	// limitation, not silent behavior.
	ErrPersistence = errors.New("persistence failed")
)
