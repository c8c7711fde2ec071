package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Compile-time interface satisfaction check.
var _ Store = (*FileStore)(nil)

// FileStore keeps the collection as one JSON object in a file.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore backed by path. The file is created on
// first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the collection. A missing or blank file yields an empty map.
func (s *FileStore) Load(_ context.Context) (Records, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Records{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return decodeRecords(data)
}

// Save writes the collection to a temporary file in the same directory and
// renames it over the target, so readers never observe a partial document.
func (s *FileStore) Save(_ context.Context, records Records) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Close is a no-op; FileStore holds no open handles.
func (s *FileStore) Close() error {
	return nil
}

// decodeRecords parses a stored document. Blank input is an empty collection.
func decodeRecords(data []byte) (Records, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Records{}, nil
	}
	var records Records
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if records == nil {
		records = Records{}
	}
	for id, r := range records {
		if r == nil {
			delete(records, id)
		}
	}
	return records, nil
}
