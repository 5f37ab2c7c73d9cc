// Package sqlite provides a VectorIndex backed by a SQLite file. Vectors
// are stored as little-endian float32 blobs next to their JSON payload and
// ranked in Go by cosine distance, which is exact (not approximate) and
// entirely adequate for knowledge bases up to tens of thousands of aliases.
// Larger deployments should use the postgres backend's indexed ANN search.
package sqlite

import (
	"database/sql"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store owns one SQLite database holding any number of vector tables.
// The knowledge base opens one Store and derives its entities and aliases
// indexes from it.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: database path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load.
	// WAL mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: set busy timeout: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database. Indexes derived from the store
// become unusable afterwards.
func (s *Store) Close() error {
	return s.db.Close()
}

// tableNamePattern restricts table names to plain identifiers. Table names
// are interpolated into DDL/DML, so anything else is rejected outright.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Index returns the vector table with the given name, creating it when
// absent. dimension fixes the vector length; 0 lets the first write set it.
func (s *Store) Index(table string, dimension int) (*Index, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("sqlite: invalid table name %q", table)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			text       TEXT NOT NULL,
			payload    BLOB,
			embedding  BLOB NOT NULL,
			dimension  INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`, table)
	if _, err := s.db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite: create table %s: %w", table, err)
	}

	return &Index{db: s.db, table: table, dimension: dimension}, nil
}
