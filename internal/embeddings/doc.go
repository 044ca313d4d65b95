// Package embeddings provides embedding generation for the vector store.
//
// Two provider variants are supported, selected by configuration at
// construction time: a local ONNX provider (fastembed) and a remote
// OpenAI-compatible provider (langchaingo). When the configured provider
// cannot initialize, NewProviderWithFallback substitutes the local default
// so the store can still come up (spec: initialization failure is not fatal
// unless the fallback also fails).
package embeddings
