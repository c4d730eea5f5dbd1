package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/newthinker/nseetl/internal/core"
)

// Memory is an in-process Storage used by tests and dry runs
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory storage
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Write(ctx context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[path] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[path]
	if !ok {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("%s", path))
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dir := strings.TrimSuffix(prefix, "/")
	paths := []string{}
	for p := range m.blobs {
		if dir == "" || p == dir || strings.HasPrefix(p, dir+"/") {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, path)
	return nil
}

func (m *Memory) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[path]
	return ok, nil
}
