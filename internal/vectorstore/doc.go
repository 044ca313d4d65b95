// Package vectorstore implements the embedding-backed vector index engine.
//
// The engine owns three pieces of state that must stay consistent: the ANN
// index (one of several selectable algorithms), an append-only mapping from
// dense integer positions to document ids, and the document metadata store.
// Positions are assigned in insertion order and never reused; deletion is a
// metadata-level tombstone because the index structures do not support cheap
// single-vector removal. Space is reclaimed only by RebuildIndex.
//
// Mutations are serialized behind one write lock. Embedding generation runs
// outside the lock so concurrent readers are blocked only for the index
// mutation and persistence step.
//
// Persistence is a binary index file plus a JSON metadata sidecar. The two
// writes are not crash-atomic: a crash between them leaves the store
// inconsistent on next load. The sidecar is written after the index file,
// via temp-file rename, to keep that window small.
package vectorstore
