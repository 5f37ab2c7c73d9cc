package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimension is the vector length used by NewHashEncoder when no
// dimension is configured.
const DefaultHashDimension = 256

// HashEncoder is a deterministic bag-of-words encoder: each token is
// hashed to a bucket and a sign, counts are accumulated and the vector is
// L2-normalized. Identical strings always map to identical vectors and
// texts sharing no tokens are near-orthogonal, which is exactly what the
// engine's tests need. It is also a usable offline fallback for exact and
// near-exact alias matching, though it carries no semantic similarity.
type HashEncoder struct {
	dimension int
}

// NewHashEncoder creates a hash encoder with the given dimension
// (DefaultHashDimension when <= 0).
func NewHashEncoder(dimension int) *HashEncoder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEncoder{dimension: dimension}
}

// Encode maps text to its hashed bag-of-words vector. It never fails and
// ignores ctx beyond the usual cancellation check.
func (e *HashEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dimension)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()

		bucket := int(sum % uint32(e.dimension))
		// The bit above the bucket choice decides the sign, so collisions
		// cancel rather than pile up.
		if sum&0x80000000 != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Dimension returns the vector length.
func (e *HashEncoder) Dimension() int {
	return e.dimension
}

// Model identifies the encoder; there is no external model behind it.
func (e *HashEncoder) Model() string {
	return "hash-bow"
}

// Compile-time assertion.
var _ Encoder = (*HashEncoder)(nil)
