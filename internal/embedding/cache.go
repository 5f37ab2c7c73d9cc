package embedding

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEncoder memoizes Encode results in an LRU keyed by the input text.
// Encoders are deterministic for a fixed model, so the cache is sound; it
// saves a network round trip every time the same surface form is resolved
// or re-ingested.
type CachedEncoder struct {
	inner Encoder
	cache *lru.Cache[string, []float32]
}

// NewCachedEncoder wraps inner with an LRU of the given size.
func NewCachedEncoder(inner Encoder, size int) (*CachedEncoder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedEncoder{inner: inner, cache: cache}, nil
}

// Encode returns the cached vector when present, otherwise delegates and
// caches the result. Returned slices are copies so callers cannot corrupt
// the cache.
func (e *CachedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.Get(text); ok {
		return append([]float32(nil), vec...), nil
	}

	vec, err := e.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(text, append([]float32(nil), vec...))
	return vec, nil
}

// Dimension delegates to the wrapped encoder.
func (e *CachedEncoder) Dimension() int {
	return e.inner.Dimension()
}

// Model delegates to the wrapped encoder.
func (e *CachedEncoder) Model() string {
	return e.inner.Model()
}

// Compile-time assertion.
var _ Encoder = (*CachedEncoder)(nil)
