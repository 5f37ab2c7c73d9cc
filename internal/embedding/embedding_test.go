package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEncoder wraps HashEncoder and counts Encode calls, for cache tests.
type countingEncoder struct {
	inner Encoder
	calls int
}

func (c *countingEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.inner.Encode(ctx, text)
}

func (c *countingEncoder) Dimension() int { return c.inner.Dimension() }
func (c *countingEncoder) Model() string  { return c.inner.Model() }

func TestHashEncoder_Deterministic(t *testing.T) {
	enc := NewHashEncoder(64)
	ctx := context.Background()

	a, err := enc.Encode(ctx, "Natural language processing")
	require.NoError(t, err)
	b, err := enc.Encode(ctx, "Natural language processing")
	require.NoError(t, err)

	assert.Equal(t, a, b, "identical text must encode to identical vectors")
	assert.Len(t, a, 64)
}

func TestHashEncoder_Normalized(t *testing.T) {
	enc := NewHashEncoder(128)
	vec, err := enc.Encode(context.Background(), "machine learning models")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5, "vectors must be unit length")
}

func TestHashEncoder_CaseAndPunctuationInsensitive(t *testing.T) {
	enc := NewHashEncoder(128)
	ctx := context.Background()

	a, err := enc.Encode(ctx, "Machine Learning")
	require.NoError(t, err)
	b, err := enc.Encode(ctx, "machine-learning!")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestHashEncoder_UnrelatedTextsNearOrthogonal(t *testing.T) {
	enc := NewHashEncoder(512)
	ctx := context.Background()

	a, err := enc.Encode(ctx, "natural language processing")
	require.NoError(t, err)
	b, err := enc.Encode(ctx, "completely unrelated text")
	require.NoError(t, err)

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	assert.Less(t, math.Abs(dot), 0.3, "disjoint token sets should be near-orthogonal")
}

func TestCachedEncoder_HitSkipsInner(t *testing.T) {
	counting := &countingEncoder{inner: NewHashEncoder(64)}
	cached, err := NewCachedEncoder(counting, 16)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := cached.Encode(ctx, "NLP")
	require.NoError(t, err)
	second, err := cached.Encode(ctx, "NLP")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, counting.calls, "second call must be served from cache")
}

func TestCachedEncoder_ReturnsCopies(t *testing.T) {
	cached, err := NewCachedEncoder(NewHashEncoder(64), 16)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := cached.Encode(ctx, "NLP")
	require.NoError(t, err)
	first[0] = 42 // mutate the returned slice

	second, err := cached.Encode(ctx, "NLP")
	require.NoError(t, err)
	assert.NotEqual(t, float32(42), second[0], "cache must not expose shared backing arrays")
}

func TestRateLimitedEncoder_PassesThrough(t *testing.T) {
	limited := NewRateLimitedEncoder(NewHashEncoder(64), 1000, 10)
	vec, err := limited.Encode(context.Background(), "NLP")
	require.NoError(t, err)
	assert.Len(t, vec, 64)
	assert.Equal(t, "hash-bow", limited.Model())
}

func TestRateLimitedEncoder_HonoursCancellation(t *testing.T) {
	// Rate of 0.001 req/s with an empty bucket forces a long wait; the
	// cancelled context must abort it immediately.
	limited := NewRateLimitedEncoder(NewHashEncoder(64), 0.001, 1)
	ctx := context.Background()

	_, err := limited.Encode(ctx, "warmup") // consumes the single burst token
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = limited.Encode(cancelled, "NLP")
	assert.Error(t, err)
}

func TestNewEncoder_ProviderSelection(t *testing.T) {
	enc, err := NewEncoder(Config{Provider: "hash", Dimension: 32})
	require.NoError(t, err)
	assert.Equal(t, "hash-bow", enc.Model())

	enc, err = NewEncoder(Config{Provider: "ollama", Model: "nomic-embed-text"})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", enc.Model())

	enc, err = NewEncoder(Config{Provider: "openai"})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", enc.Model())

	_, err = NewEncoder(Config{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestNewEncoder_StacksWrappers(t *testing.T) {
	enc, err := NewEncoder(Config{
		Provider:  "hash",
		Dimension: 32,
		CacheSize: 8,
		RateLimit: 1000,
		RateBurst: 4,
	})
	require.NoError(t, err)

	vec, err := enc.Encode(context.Background(), "NLP")
	require.NoError(t, err)
	assert.Len(t, vec, 32)
}
