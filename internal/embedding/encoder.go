// Package embedding provides the text-encoder port of the linking engine
// and its implementations: HTTP clients for Ollama and OpenAI wrapped in a
// circuit breaker, plus rate-limiting, caching and deterministic-hash
// encoders that stack on top of any base encoder.
package embedding

import "context"

// Encoder maps a text to a fixed-length embedding vector. Implementations
// must be deterministic for a fixed model version: the same text always
// yields the same vector. Encoding may be slow (model inference); the core
// imposes no timeout, cancellation is the caller's job via ctx.
type Encoder interface {
	// Encode returns the embedding vector for text.
	Encode(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the vector length, or 0 when unknown until the
	// first Encode call.
	Dimension() int

	// Model identifies the underlying model version.
	Model() string
}
