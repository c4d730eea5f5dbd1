package table

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/newthinker/nseetl/internal/storage/archive"
)

// Store reads and writes tables by storage-relative name
type Store struct {
	storage archive.Storage
}

// NewStore wraps a storage backend
func NewStore(storage archive.Storage) *Store {
	return &Store{storage: storage}
}

// Storage exposes the underlying backend for raw byte access
func (s *Store) Storage() archive.Storage {
	return s.storage
}

// Read loads and parses the named table
func (s *Store) Read(ctx context.Context, name string) (*Table, error) {
	data, err := s.storage.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return t, nil
}

// Write replaces the named table
func (s *Store) Write(ctx context.Context, name string, t *Table) error {
	data, err := t.Encode()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return s.storage.Write(ctx, name, data)
}

// ListCSV returns the .csv files directly under dir, in lexical order
func (s *Store) ListCSV(ctx context.Context, dir string) ([]string, error) {
	paths, err := s.storage.List(ctx, dir)
	if err != nil {
		return nil, err
	}

	dir = strings.TrimSuffix(dir, "/")
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if path.Dir(p) != dir || !strings.EqualFold(path.Ext(p), ".csv") {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
