package sector

import (
	"context"
	"errors"
	"fmt"

	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/core"
	"github.com/newthinker/nseetl/internal/storage/table"
	"go.uber.org/zap"
)

// Snapshot columns
const (
	ColumnSymbol = "SYMBOL"
	ColumnSector = "SECTOR"
)

// Result summarizes one snapshot refresh
type Result struct {
	Members []core.SectorMember
	Counts  map[string]int // rows per sector
}

// Snapshotter rebuilds the combined sector snapshot
type Snapshotter struct {
	primary Source
	store   *table.Store
	path    string
	sectors []config.SectorIndex
	logger  *zap.Logger
}

// NewSnapshotter creates a snapshotter writing to path
func NewSnapshotter(primary Source, store *table.Store, path string, sectors []config.SectorIndex, logger *zap.Logger) *Snapshotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{
		primary: primary,
		store:   store,
		path:    path,
		sectors: sectors,
		logger:  logger,
	}
}

// WithLogger returns a copy of s logging to logger
func (s *Snapshotter) WithLogger(logger *zap.Logger) *Snapshotter {
	c := *s
	c.logger = logger
	return &c
}

// Refresh fetches every configured sector in order and overwrites the
// snapshot. A failing sector falls back to its previous rows; when those are
// missing too it is logged and contributes no rows.
func (s *Snapshotter) Refresh(ctx context.Context) (*Result, error) {
	previous, err := Load(ctx, s.store, s.path)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		s.logger.Warn("previous sector snapshot unreadable", zap.Error(err))
	}

	source := &FallbackSource{
		Primary:  s.primary,
		Fallback: NewCachedSource(previous),
		Logger:   s.logger,
	}

	result := &Result{Counts: make(map[string]int, len(s.sectors))}
	for _, sec := range s.sectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		symbols, err := source.Constituents(ctx, sec)
		if err != nil {
			s.logger.Error("no constituents for sector",
				zap.String("sector", sec.Name),
				zap.Error(err),
			)
			symbols = nil
		}
		for _, sym := range symbols {
			result.Members = append(result.Members, core.SectorMember{Symbol: sym, Sector: sec.Name})
		}
		result.Counts[sec.Name] = len(symbols)

		s.logger.Debug("sector fetched",
			zap.String("sector", sec.Name),
			zap.Int("symbols", len(symbols)),
		)
	}

	if err := Save(ctx, s.store, s.path, result.Members); err != nil {
		return nil, err
	}

	s.logger.Info("sector snapshot refreshed",
		zap.Int("sectors", len(s.sectors)),
		zap.Int("rows", len(result.Members)),
	)
	return result, nil
}

// Load reads the persisted snapshot. A missing file is core.ErrNotFound.
func Load(ctx context.Context, store *table.Store, path string) ([]core.SectorMember, error) {
	t, err := store.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	t.TrimSpace()

	symIdx, err := t.MustIndex(ColumnSymbol)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	secIdx, err := t.MustIndex(ColumnSector)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	members := make([]core.SectorMember, 0, t.Len())
	for _, row := range t.Rows {
		members = append(members, core.SectorMember{Symbol: row[symIdx], Sector: row[secIdx]})
	}
	return members, nil
}

// Save overwrites the snapshot with members
func Save(ctx context.Context, store *table.Store, path string, members []core.SectorMember) error {
	t := table.New(ColumnSymbol, ColumnSector)
	for _, m := range members {
		t.Append(m.Symbol, m.Sector)
	}
	if err := store.Write(ctx, path, t); err != nil {
		return fmt.Errorf("writing sector snapshot: %w", err)
	}
	return nil
}
