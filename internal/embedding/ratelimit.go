package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedEncoder throttles Encode calls against a shared embedding
// service. Unlike the circuit breaker it does not reject: callers wait for
// a token, honouring ctx cancellation, so bulk ingests self-pace instead
// of tripping provider-side limits.
type RateLimitedEncoder struct {
	inner   Encoder
	limiter *rate.Limiter
}

// NewRateLimitedEncoder wraps inner with a sustained rate of reqPerSec and
// the given burst size.
func NewRateLimitedEncoder(inner Encoder, reqPerSec float64, burst int) *RateLimitedEncoder {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedEncoder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(reqPerSec), burst),
	}
}

// Encode waits for a rate token, then delegates to the wrapped encoder.
func (e *RateLimitedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding: rate limiter: %w", err)
	}
	return e.inner.Encode(ctx, text)
}

// Dimension delegates to the wrapped encoder.
func (e *RateLimitedEncoder) Dimension() int {
	return e.inner.Dimension()
}

// Model delegates to the wrapped encoder.
func (e *RateLimitedEncoder) Model() string {
	return e.inner.Model()
}

// Compile-time assertion.
var _ Encoder = (*RateLimitedEncoder)(nil)
