// Package storage defines the vector-index port consumed by the knowledge
// base. A VectorIndex is an append-oriented table of rows carrying a text
// payload and an embedding vector, supporting bulk upsert and k-nearest-
// neighbour search by cosine distance.
//
// Backends live in subpackages (memory, sqlite, postgres) and can be
// swapped without touching the knowledge base; the engine never depends on
// a backend's on-disk format.
package storage

import "context"

// VectorIndex is one logical vector table. The knowledge base owns two:
// one for entities (keyed by entity id) and one for aliases (keyed by a
// per-row id, since the same alias text may be added repeatedly).
type VectorIndex interface {
	// Upsert writes the batch of rows. Rows with an existing key replace
	// the stored row. The batch is applied atomically: either every row
	// is written or none are.
	Upsert(ctx context.Context, rows []Row) error

	// RefreshIndex makes previously upserted rows visible to Search.
	// Callers must not assume a write is searchable before RefreshIndex
	// returns. Backends with synchronous visibility implement it as a
	// no-op.
	RefreshIndex(ctx context.Context) error

	// Search returns the k nearest rows to vector by cosine distance,
	// ascending. Fewer than k rows are returned when the table holds
	// fewer. Ordering is deterministic: ties break on row key.
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)

	// Get retrieves a row by key. Returns ErrNotFound when absent.
	Get(ctx context.Context, key string) (*Row, error)

	// Count returns the number of rows in the table.
	Count(ctx context.Context) (int, error)

	// Close releases backend resources held by the index.
	Close() error
}
