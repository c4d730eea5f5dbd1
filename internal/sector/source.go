package sector

import (
	"context"
	"fmt"

	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/core"
	"go.uber.org/zap"
)

// Source yields the constituent symbols of one sector index
type Source interface {
	Constituents(ctx context.Context, sector config.SectorIndex) ([]string, error)
}

// ConstituentsAPI is the remote index constituents endpoint
type ConstituentsAPI interface {
	FetchConstituents(ctx context.Context, param string) ([]string, error)
}

// RemoteSource asks the exchange for the current constituents
type RemoteSource struct {
	api ConstituentsAPI
}

// NewRemoteSource creates a source backed by the exchange API
func NewRemoteSource(api ConstituentsAPI) *RemoteSource {
	return &RemoteSource{api: api}
}

func (r *RemoteSource) Constituents(ctx context.Context, sector config.SectorIndex) ([]string, error) {
	symbols, err := r.api.FetchConstituents(ctx, sector.Param)
	if err != nil {
		return nil, fmt.Errorf("sector %s: %w", sector.Name, err)
	}
	return symbols, nil
}

// CachedSource serves constituents from a previously persisted snapshot
type CachedSource struct {
	bySector map[string][]string
}

// NewCachedSource indexes snapshot rows by sector, preserving row order
func NewCachedSource(members []core.SectorMember) *CachedSource {
	c := &CachedSource{bySector: make(map[string][]string)}
	for _, m := range members {
		c.bySector[m.Sector] = append(c.bySector[m.Sector], m.Symbol)
	}
	return c
}

func (c *CachedSource) Constituents(ctx context.Context, sector config.SectorIndex) ([]string, error) {
	symbols, ok := c.bySector[sector.Name]
	if !ok {
		return nil, core.WrapError(core.ErrNotFound,
			fmt.Errorf("sector %s not in previous snapshot", sector.Name))
	}
	return symbols, nil
}

// FallbackSource tries Primary, then Fallback. When both fail the
// fallback's error is returned.
type FallbackSource struct {
	Primary  Source
	Fallback Source
	Logger   *zap.Logger
}

func (f *FallbackSource) Constituents(ctx context.Context, sector config.SectorIndex) ([]string, error) {
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	symbols, err := f.Primary.Constituents(ctx, sector)
	if err == nil {
		return symbols, nil
	}
	logger.Warn("sector fetch failed, using previous snapshot",
		zap.String("sector", sector.Name),
		zap.Error(err),
	)

	if f.Fallback == nil {
		return nil, err
	}
	return f.Fallback.Constituents(ctx, sector)
}
