// internal/storage/archive/interface_test.go
package archive

import (
	"errors"
	"testing"

	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/core"
)

func TestBackends_ImplementStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
	var _ Storage = (*S3Storage)(nil)
	var _ Storage = (*Memory)(nil)
}

func TestOpen(t *testing.T) {
	s, err := Open(config.StorageConfig{Type: "localfs", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Open localfs: %v", err)
	}
	if _, ok := s.(*LocalFS); !ok {
		t.Errorf("expected *LocalFS, got %T", s)
	}

	if _, err := Open(config.StorageConfig{Type: "ftp"}); !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}
