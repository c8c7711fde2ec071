package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const createBlobsTable = `
CREATE TABLE IF NOT EXISTS blobs (
    key        TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    updated_at DATETIME NOT NULL
)`

// recordsKey is the row holding the record collection.
const recordsKey = "vpsuser"

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps the collection document in a single SQLite row. It is
// a key-value stand-in for the file store and shares its whole-document
// semantics.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and creates the blob table.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A pool over ":memory:" would give every connection its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createBlobsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create blobs table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the collection row. A missing row yields an empty map.
func (s *SQLiteStore) Load(ctx context.Context) (Records, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM blobs WHERE key = ?", recordsKey,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Records{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return decodeRecords(data)
}

// Save replaces the collection row.
func (s *SQLiteStore) Save(ctx context.Context, records Records) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		recordsKey, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	return nil
}
