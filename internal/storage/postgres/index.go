package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/scrypster/entitylink/internal/storage"
)

// Compile-time check that *Index implements storage.VectorIndex.
var _ storage.VectorIndex = (*Index)(nil)

// Index is one pgvector table inside a Store.
type Index struct {
	db        *sql.DB
	table     string
	dimension int

	mu sync.Mutex // serializes Upsert batches and RefreshIndex
}

// Upsert writes the batch inside a single transaction.
func (idx *Index) Upsert(ctx context.Context, rows []storage.Row) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, row := range rows {
		if row.Key == "" {
			return fmt.Errorf("postgres: row with empty key: %w", storage.ErrInvalidInput)
		}
		if len(row.Vector) != idx.dimension {
			return fmt.Errorf("postgres: row %q has dimension %d, index has %d: %w",
				row.Key, len(row.Vector), idx.dimension, storage.ErrDimensionMismatch)
		}
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin upsert batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
		INSERT INTO %s (key, text, payload, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT(key) DO UPDATE SET
			text = excluded.text,
			payload = excluded.payload,
			embedding = excluded.embedding,
			updated_at = CURRENT_TIMESTAMP
	`, idx.table)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("postgres: prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		vec := pgvector.NewVector(row.Vector)
		if _, err := stmt.ExecContext(ctx, row.Key, row.Text, row.Payload, vec); err != nil {
			return fmt.Errorf("postgres: upsert row %q: %w", row.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit upsert batch: %w", err)
	}
	return nil
}

// RefreshIndex builds the ivfflat cosine index if it does not exist yet and
// refreshes planner statistics. ivfflat clusters rows at build time, so the
// index is created lazily after the first real batch rather than on an
// empty table.
func (idx *Index) RefreshIndex(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	indexDDL := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_embedding_cosine
		ON %s USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)
	`, idx.table, idx.table)
	if _, err := idx.db.ExecContext(ctx, indexDDL); err != nil {
		return fmt.Errorf("postgres: build ivfflat index on %s: %w", idx.table, err)
	}

	if _, err := idx.db.ExecContext(ctx, fmt.Sprintf("ANALYZE %s", idx.table)); err != nil {
		return fmt.Errorf("postgres: analyze %s: %w", idx.table, err)
	}
	return nil
}

// Search runs an indexed KNN query ordered by cosine distance. Ties break
// on row key for determinism.
func (idx *Index) Search(ctx context.Context, vector []float32, k int) ([]storage.Match, error) {
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("postgres: query vector has dimension %d, index has %d: %w",
			len(vector), idx.dimension, storage.ErrDimensionMismatch)
	}
	if k <= 0 {
		return []storage.Match{}, nil
	}

	query := fmt.Sprintf(`
		SELECT key, text, payload, embedding, embedding <=> $1 AS distance
		FROM %s
		ORDER BY embedding <=> $1, key
		LIMIT $2
	`, idx.table)

	qvec := pgvector.NewVector(vector)
	rows, err := idx.db.QueryContext(ctx, query, qvec, k)
	if err != nil {
		return nil, fmt.Errorf("postgres: search %s: %w", idx.table, err)
	}
	defer func() { _ = rows.Close() }()

	var matches []storage.Match
	for rows.Next() {
		var (
			row storage.Row
			vec pgvector.Vector
			m   storage.Match
		)
		if err := rows.Scan(&row.Key, &row.Text, &row.Payload, &vec, &m.Distance); err != nil {
			return nil, fmt.Errorf("postgres: search scan: %w", err)
		}
		row.Vector = vec.Slice()
		m.Row = row
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: search iterate: %w", err)
	}

	return matches, nil
}

// Get retrieves a row by key.
func (idx *Index) Get(ctx context.Context, key string) (*storage.Row, error) {
	query := fmt.Sprintf(`
		SELECT key, text, payload, embedding FROM %s WHERE key = $1
	`, idx.table)

	var (
		row storage.Row
		vec pgvector.Vector
	)
	err := idx.db.QueryRowContext(ctx, query, key).Scan(&row.Key, &row.Text, &row.Payload, &vec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: row %q: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get row %q: %w", key, err)
	}

	row.Vector = vec.Slice()
	return &row, nil
}

// Count returns the number of rows in the table.
func (idx *Index) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", idx.table)
	if err := idx.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count %s: %w", idx.table, err)
	}
	return count, nil
}

// Close is a no-op; the owning Store closes the shared pool.
func (idx *Index) Close() error {
	return nil
}
