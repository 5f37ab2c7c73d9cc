// Package postgres provides a VectorIndex backed by PostgreSQL with the
// pgvector extension. Search runs as an indexed ANN query (ivfflat, cosine
// distance), so this backend is the right choice for large knowledge bases
// where the in-Go brute-force scan of the sqlite backend stops scaling.
package postgres

import (
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Store owns one PostgreSQL connection pool holding any number of vector
// tables.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL and ensures the pgvector extension exists.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: connection string is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: create pgvector extension: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// tableNamePattern restricts table names to plain identifiers since they
// are interpolated into DDL/DML.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Index returns the vector table with the given name, creating it when
// absent. dimension is mandatory here: pgvector columns are typed
// vector(D).
func (s *Store) Index(table string, dimension int) (*Index, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("postgres: invalid table name %q", table)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("postgres: dimension must be positive, got %d", dimension)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			text       TEXT NOT NULL,
			payload    BYTEA,
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`, table, dimension)
	if _, err := s.db.Exec(schema); err != nil {
		return nil, fmt.Errorf("postgres: create table %s: %w", table, err)
	}

	return &Index{db: s.db, table: table, dimension: dimension}, nil
}
