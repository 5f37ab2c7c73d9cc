// Package memory provides an in-process VectorIndex backed by a flat
// brute-force scan. It is the default backend for tests and for small
// knowledge bases where an external store is not worth the operational
// cost.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/scrypster/entitylink/internal/storage"
)

// Compile-time check that *Index implements storage.VectorIndex.
var _ storage.VectorIndex = (*Index)(nil)

// indexState is the immutable snapshot read by searches. Writers build a
// new state and swap the pointer, so reads never block behind a write.
type indexState struct {
	rows  []storage.Row
	byKey map[string]int
}

// Index is a flat vector index. Writes are serialized by a mutex; reads
// operate on a copy-on-write snapshot and may run concurrently.
type Index struct {
	dimension int

	mu    sync.Mutex // serializes writers
	state atomic.Pointer[indexState]
}

// NewIndex creates an empty index. dimension fixes the vector length for
// every row; 0 means the first upserted row sets it.
func NewIndex(dimension int) *Index {
	idx := &Index{dimension: dimension}
	idx.state.Store(&indexState{byKey: map[string]int{}})
	return idx
}

// Upsert writes the batch, replacing rows with matching keys.
func (idx *Index) Upsert(ctx context.Context, rows []storage.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Validate the whole batch before touching the snapshot so a bad row
	// cannot leave a partial write behind.
	for _, row := range rows {
		if row.Key == "" {
			return fmt.Errorf("memory: row with empty key: %w", storage.ErrInvalidInput)
		}
		if len(row.Vector) == 0 {
			return fmt.Errorf("memory: row %q with empty vector: %w", row.Key, storage.ErrInvalidInput)
		}
		if idx.dimension == 0 {
			idx.dimension = len(row.Vector)
		}
		if len(row.Vector) != idx.dimension {
			return fmt.Errorf("memory: row %q has dimension %d, index has %d: %w",
				row.Key, len(row.Vector), idx.dimension, storage.ErrDimensionMismatch)
		}
	}

	old := idx.state.Load()
	next := &indexState{
		rows:  make([]storage.Row, len(old.rows), len(old.rows)+len(rows)),
		byKey: make(map[string]int, len(old.byKey)+len(rows)),
	}
	copy(next.rows, old.rows)
	for k, v := range old.byKey {
		next.byKey[k] = v
	}

	for _, row := range rows {
		if i, ok := next.byKey[row.Key]; ok {
			next.rows[i] = row
			continue
		}
		next.byKey[row.Key] = len(next.rows)
		next.rows = append(next.rows, row)
	}

	idx.state.Store(next)
	return nil
}

// RefreshIndex is a no-op: the flat scan always sees the latest snapshot.
func (idx *Index) RefreshIndex(ctx context.Context) error {
	return ctx.Err()
}

// Search scans every row and returns the k nearest by cosine distance.
// Ties break on row key so results are deterministic.
func (idx *Index) Search(ctx context.Context, vector []float32, k int) ([]storage.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("memory: empty query vector: %w", storage.ErrInvalidInput)
	}
	if k <= 0 {
		return []storage.Match{}, nil
	}

	state := idx.state.Load()
	matches := make([]storage.Match, 0, len(state.rows))
	for _, row := range state.rows {
		matches = append(matches, storage.Match{
			Row:      row,
			Distance: storage.CosineDistance(vector, row.Vector),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Row.Key < matches[j].Row.Key
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Get retrieves a row by key.
func (idx *Index) Get(ctx context.Context, key string) (*storage.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state := idx.state.Load()
	i, ok := state.byKey[key]
	if !ok {
		return nil, fmt.Errorf("memory: row %q: %w", key, storage.ErrNotFound)
	}
	row := state.rows[i]
	return &row, nil
}

// Count returns the number of rows.
func (idx *Index) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(idx.state.Load().rows), nil
}

// Close releases nothing; it exists to satisfy storage.VectorIndex.
func (idx *Index) Close() error {
	return nil
}
