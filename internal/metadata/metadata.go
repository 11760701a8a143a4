// Package metadata is the SQLite-backed registry of indexes and documents
// used to answer the public listing API without touching the segment store.
package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite connection holding the indices/documents tables.
type Store struct {
	db *sql.DB
}

// IndexRow is one row of the public GET /indices listing.
type IndexRow struct {
	Name          string
	DocumentCount int64
	CreatedAt     time.Time
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS indices (
	name       TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT NOT NULL,
	index_name TEXT NOT NULL REFERENCES indices(name) ON DELETE CASCADE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (id, index_name)
);
CREATE INDEX IF NOT EXISTS documents_index_name_idx ON documents(index_name);
`

// Open connects to the SQLite database at path, applies pragmas suited for a
// single-writer embedded workload, and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	db.SetMaxOpenConns(1) // mattn/go-sqlite3 serializes writers; avoid SQLITE_BUSY under our own load

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping metadata db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply metadata schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the store is reachable, for GET /health.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// CreateIndex registers a newly created index, with now as both timestamps.
func (s *Store) CreateIndex(ctx context.Context, name string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO indices (name, created_at, updated_at) VALUES (?, ?, ?)`,
		name, now, now)
	if err != nil {
		return fmt.Errorf("register index %q: %w", name, err)
	}
	return nil
}

// EnsureIndex registers an index if no row exists yet, used when rehydrated
// indexes predate the current registry database.
func (s *Store) EnsureIndex(ctx context.Context, name string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO indices (name, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO NOTHING`,
		name, now, now)
	if err != nil {
		return fmt.Errorf("ensure index %q: %w", name, err)
	}
	return nil
}

// DeleteIndex removes an index and its document rows (cascaded).
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM indices WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deregister index %q: %w", name, err)
	}
	return nil
}

// ListIndices returns every registered index with its live document count.
func (s *Store) ListIndices(ctx context.Context) ([]IndexRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.name, i.created_at, COUNT(d.id)
		FROM indices i
		LEFT JOIN documents d ON d.index_name = i.name
		GROUP BY i.name
		ORDER BY i.name`)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}
	defer rows.Close()

	var out []IndexRow
	for rows.Next() {
		var r IndexRow
		if err := rows.Scan(&r.Name, &r.CreatedAt, &r.DocumentCount); err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetIndex returns metadata for a single index.
func (s *Store) GetIndex(ctx context.Context, name string) (IndexRow, error) {
	var r IndexRow
	r.Name = name
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM indices WHERE name = ?`, name,
	).Scan(&r.CreatedAt)
	if err != nil {
		return IndexRow{}, fmt.Errorf("get index %q: %w", name, err)
	}
	return r, nil
}

// UpsertDocument records that a document exists within an index, for
// after-restart document-count accounting.
func (s *Store) UpsertDocument(ctx context.Context, indexName, docID string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, index_name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id, index_name) DO UPDATE SET updated_at = excluded.updated_at`,
		docID, indexName, now, now)
	if err != nil {
		return fmt.Errorf("record document %q in index %q: %w", docID, indexName, err)
	}
	return nil
}

// DeleteDocument removes one document's registry row.
func (s *Store) DeleteDocument(ctx context.Context, indexName, docID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ? AND index_name = ?`, docID, indexName)
	if err != nil {
		return fmt.Errorf("remove document %q from index %q: %w", docID, indexName, err)
	}
	return nil
}

// ReplaceDocuments atomically replaces the registry's document-id set for one
// index, used to resynchronize after rebuilding the set via enumeration.
func (s *Store) ReplaceDocuments(ctx context.Context, indexName string, ids []string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resync tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE index_name = ?`, indexName); err != nil {
		return fmt.Errorf("clear documents for index %q: %w", indexName, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, index_name, created_at, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare document insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id, indexName, now, now); err != nil {
			return fmt.Errorf("insert document %q: %w", id, err)
		}
	}
	return tx.Commit()
}
