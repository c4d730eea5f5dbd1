package archive

import (
	"fmt"

	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/core"
)

// Open builds the backend selected by the storage configuration
func Open(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", cfg.Type))
	}
}
