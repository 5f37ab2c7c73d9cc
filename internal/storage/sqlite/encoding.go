package sqlite

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeVector serializes a vector as little-endian float32 values.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector deserializes a blob written by encodeVector. dimension is
// cross-checked against the blob length to catch corrupted rows early.
func decodeVector(data []byte, dimension int) ([]float32, error) {
	if len(data) != dimension*4 {
		return nil, fmt.Errorf("embedding blob is %d bytes, expected %d for dimension %d",
			len(data), dimension*4, dimension)
	}

	vec := make([]float32, dimension)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
