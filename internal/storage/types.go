package storage

import "errors"

var (
	// ErrNotFound indicates that the requested row was not found.
	ErrNotFound = errors.New("row not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates a vector whose dimensionality does
	// not match the index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Row is one entry of a vector table.
type Row struct {
	// Key uniquely identifies the row within its table.
	Key string

	// Text is the surface string the vector was derived from (entity
	// description or alias text). Stored for observability and tie-breaks.
	Text string

	// Payload is the JSON-encoded domain record (entity or alias).
	Payload []byte

	// Vector is the embedding, fixed dimensionality per table.
	Vector []float32
}

// Match is one KNN search result.
type Match struct {
	Row Row

	// Distance is the cosine distance to the query vector, in [0, 2];
	// 0 means identical direction.
	Distance float64
}
