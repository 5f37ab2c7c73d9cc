package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/scrypster/entitylink/internal/storage"
)

// Compile-time check that *Index implements storage.VectorIndex.
var _ storage.VectorIndex = (*Index)(nil)

// searchMaxCandidates caps the number of embeddings loaded into memory
// during a search. Rows are selected newest-first so recently added
// aliases are always considered. Typical knowledge bases never hit this;
// larger ones belong on the postgres backend.
const searchMaxCandidates = 50_000

// Index is one vector table inside a Store. Writes are serialized by a
// mutex on top of SQLite's own single-writer model.
type Index struct {
	db        *sql.DB
	table     string
	dimension int

	mu sync.Mutex // serializes Upsert batches
}

// Upsert writes the batch inside a single transaction, so a failed row
// rolls back the whole batch.
func (idx *Index) Upsert(ctx context.Context, rows []storage.Row) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, row := range rows {
		if row.Key == "" {
			return fmt.Errorf("sqlite: row with empty key: %w", storage.ErrInvalidInput)
		}
		if len(row.Vector) == 0 {
			return fmt.Errorf("sqlite: row %q with empty vector: %w", row.Key, storage.ErrInvalidInput)
		}
		if idx.dimension == 0 {
			idx.dimension = len(row.Vector)
		}
		if len(row.Vector) != idx.dimension {
			return fmt.Errorf("sqlite: row %q has dimension %d, index has %d: %w",
				row.Key, len(row.Vector), idx.dimension, storage.ErrDimensionMismatch)
		}
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin upsert batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
		INSERT INTO %s (key, text, payload, embedding, dimension)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			text = excluded.text,
			payload = excluded.payload,
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			updated_at = CURRENT_TIMESTAMP
	`, idx.table)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("sqlite: prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		blob := encodeVector(row.Vector)
		if _, err := stmt.ExecContext(ctx, row.Key, row.Text, row.Payload, blob, len(row.Vector)); err != nil {
			return fmt.Errorf("sqlite: upsert row %q: %w", row.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit upsert batch: %w", err)
	}
	return nil
}

// RefreshIndex is a no-op: committed rows are immediately visible to the
// brute-force scan. Kept so callers can treat all backends uniformly.
func (idx *Index) RefreshIndex(ctx context.Context) error {
	return ctx.Err()
}

// Search loads candidate embeddings (newest first, capped) and ranks them
// in Go by cosine distance. SQLite has no native vector index, so the
// scan is brute force. Ties break on row key for determinism.
func (idx *Index) Search(ctx context.Context, vector []float32, k int) ([]storage.Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("sqlite: empty query vector: %w", storage.ErrInvalidInput)
	}
	if k <= 0 {
		return []storage.Match{}, nil
	}

	query := fmt.Sprintf(`
		SELECT key, text, payload, embedding, dimension
		FROM %s
		ORDER BY updated_at DESC, key ASC
		LIMIT ?
	`, idx.table)

	rows, err := idx.db.QueryContext(ctx, query, searchMaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search scan %s: %w", idx.table, err)
	}
	defer func() { _ = rows.Close() }()

	var matches []storage.Match
	for rows.Next() {
		var (
			row  storage.Row
			blob []byte
			dim  int
		)
		if err := rows.Scan(&row.Key, &row.Text, &row.Payload, &blob, &dim); err != nil {
			return nil, fmt.Errorf("sqlite: search scan row: %w", err)
		}
		row.Vector, err = decodeVector(blob, dim)
		if err != nil {
			return nil, fmt.Errorf("sqlite: row %q: %w", row.Key, err)
		}
		matches = append(matches, storage.Match{
			Row:      row,
			Distance: storage.CosineDistance(vector, row.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: search iterate: %w", err)
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
	query := fmt.Sprintf(`
		SELECT key, text, payload, embedding, dimension
		FROM %s WHERE key = ?
	`, idx.table)

	var (
		row  storage.Row
		blob []byte
		dim  int
	)
	err := idx.db.QueryRowContext(ctx, query, key).Scan(&row.Key, &row.Text, &row.Payload, &blob, &dim)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: row %q: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get row %q: %w", key, err)
	}

	row.Vector, err = decodeVector(blob, dim)
	if err != nil {
		return nil, fmt.Errorf("sqlite: row %q: %w", key, err)
	}
	return &row, nil
}

// Count returns the number of rows in the table.
func (idx *Index) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", idx.table)
	if err := idx.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: count %s: %w", idx.table, err)
	}
	return count, nil
}

// Close is a no-op; the owning Store closes the shared database.
func (idx *Index) Close() error {
	return nil
}
