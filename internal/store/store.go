// Package store persists the worker record collection as a single document.
//
// Every save writes the whole collection. Nothing here locks across a
// load/modify/save cycle: two concurrent writers race and the later save
// wins, discarding the other's changes. The backing storage may also be
// wiped by the host at any time, so callers treat it as a rebuildable cache.
package store

import (
	"context"
	"fmt"

	"github.com/seantiz/capsule/internal/model"
)

// Backend names accepted by New.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Records maps worker id to its record.
type Records = map[string]*model.Record

// Store loads and saves the full record collection.
type Store interface {
	// Load returns every stored record. A missing store is not an error
	// and yields an empty map.
	Load(ctx context.Context) (Records, error)
	// Save replaces the stored collection with records.
	Save(ctx context.Context, records Records) error
	Close() error
}

// New opens the backend named kind at path.
func New(kind, path string) (Store, error) {
	switch kind {
	case BackendFile, "":
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}
