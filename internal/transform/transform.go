// Package transform turns the raw report archive into staging tables and
// the fact_bhavdata, fact_MA_report and dim_datetime star schema.
package transform

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/newthinker/nseetl/internal/calendar"
	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/core"
	"github.com/newthinker/nseetl/internal/metrics"
	"github.com/newthinker/nseetl/internal/sector"
	"github.com/newthinker/nseetl/internal/storage/table"
	"go.uber.org/zap"
)

// Output table names
const (
	BhavStagingName = "sec_bhavdata_full_combined.csv"
	MAStagingName   = "ma_report_combined.csv"
	FactBhavName    = "fact_bhavdata.csv"
	FactMAName      = "fact_MA_report.csv"
	DimDateName     = "dim_datetime.csv"
)

// Sink receives a complete star schema after a successful run
type Sink interface {
	Name() string
	Load(ctx context.Context, schema *core.StarSchema) error
}

// Transformer runs the transform stage
type Transformer struct {
	store   *table.Store
	cfg     *config.Config
	sinks   []Sink
	metrics *metrics.Registry
	logger  *zap.Logger
}

// Options wires a Transformer
type Options struct {
	Store   *table.Store
	Config  *config.Config
	Sinks   []Sink
	Metrics *metrics.Registry
	Logger  *zap.Logger
}

// New creates a transform stage
func New(opts Options) *Transformer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{
		store:   opts.Store,
		cfg:     opts.Config,
		sinks:   opts.Sinks,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// WithLogger returns a copy of t logging to logger
func (t *Transformer) WithLogger(logger *zap.Logger) *Transformer {
	c := *t
	c.logger = logger
	return &c
}

// Run cleans both report families and rebuilds the star schema. A failed
// bhav step skips the dimension; the market-activity step always runs.
// Sinks are loaded only when every step succeeded.
func (t *Transformer) Run(ctx context.Context) (*core.StarSchema, error) {
	schema := &core.StarSchema{}
	var errs []error

	records, facts, err := t.Bhav(ctx)
	if err != nil {
		t.logger.Error("bhav transform failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("bhav: %w", err))
	} else {
		schema.FactBhav = facts
	}

	maFacts, err := t.MarketActivity(ctx)
	if err != nil {
		t.logger.Error("market activity transform failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("market activity: %w", err))
	} else {
		schema.FactMA = maFacts
	}

	if records != nil {
		dims, err := t.Dimension(ctx, records)
		if err != nil {
			t.logger.Error("dimension build failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("dimension: %w", err))
		} else {
			schema.Dates = dims
		}
	}

	if len(errs) > 0 {
		return schema, errors.Join(errs...)
	}

	for _, sink := range t.sinks {
		if err := sink.Load(ctx, schema); err != nil {
			t.logger.Error("warehouse load failed", zap.String("sink", sink.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			continue
		}
		t.logger.Info("warehouse loaded", zap.String("sink", sink.Name()))
	}
	return schema, errors.Join(errs...)
}

// Bhav cleans every raw bhav file, writes the staging table and then
// fact_bhavdata, and returns the cleaned records. Staging is written once
// cleaning succeeds, even if the fact table cannot be built.
func (t *Transformer) Bhav(ctx context.Context) ([]core.BhavRecord, []core.FactBhav, error) {
	raw, err := t.readAll(ctx, t.cfg.Paths.BhavDir)
	if err != nil {
		return nil, nil, err
	}

	staging, err := CleanBhav(raw)
	if err != nil {
		return nil, nil, err
	}
	records, err := BhavRecords(staging)
	if err != nil {
		return nil, nil, err
	}
	if err := t.write(ctx, t.cfg.Paths.InterimDir, BhavStagingName, staging); err != nil {
		return nil, nil, err
	}

	members, err := sector.Load(ctx, t.store, t.cfg.Paths.SectorSnapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("sector snapshot: %w", err)
	}
	facts := BuildFactBhav(records, members, t.cfg.Transform.CuratedSectors)

	if err := t.write(ctx, t.cfg.Paths.ProcessedDir, FactBhavName, FactBhavTable(facts)); err != nil {
		return nil, nil, err
	}

	t.logger.Info("bhav transform complete",
		zap.Int("raw_rows", raw.Len()),
		zap.Int("staged_rows", staging.Len()),
		zap.Int("fact_rows", len(facts)),
	)
	return records, facts, nil
}

// MarketActivity cleans every raw market-activity report and writes the
// staging table and then fact_MA_report.
func (t *Transformer) MarketActivity(ctx context.Context) ([]core.FactMA, error) {
	files, err := t.store.ListCSV(ctx, t.cfg.Paths.MADir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, core.WrapError(core.ErrNoInputFiles, fmt.Errorf("no reports under %s", t.cfg.Paths.MADir))
	}

	blocks := make([]*table.Table, 0, len(files))
	for _, f := range files {
		date, err := ParseMADate(f)
		if err != nil {
			return nil, err
		}
		data, err := t.store.Storage().Read(ctx, f)
		if err != nil {
			return nil, err
		}
		block, err := ReadMABlock(data, date, t.cfg.Transform.MA)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		blocks = append(blocks, block)
	}

	raw, err := table.Concat(blocks...)
	if err != nil {
		return nil, err
	}
	staging, err := CleanMAReport(raw)
	if err != nil {
		return nil, err
	}
	records, err := IndexRecords(staging)
	if err != nil {
		return nil, err
	}
	if err := t.write(ctx, t.cfg.Paths.InterimDir, MAStagingName, staging); err != nil {
		return nil, err
	}

	members, err := sector.Load(ctx, t.store, t.cfg.Paths.SectorSnapshot)
	if err != nil {
		return nil, fmt.Errorf("sector snapshot: %w", err)
	}
	facts := BuildFactMA(records, members)

	if err := t.write(ctx, t.cfg.Paths.ProcessedDir, FactMAName, FactMATable(facts)); err != nil {
		return nil, err
	}

	t.logger.Info("market activity transform complete",
		zap.Int("files", len(files)),
		zap.Int("staged_rows", staging.Len()),
		zap.Int("fact_rows", len(facts)),
	)
	return facts, nil
}

// Dimension writes dim_datetime for the distinct dates of records
func (t *Transformer) Dimension(ctx context.Context, records []core.BhavRecord) ([]core.DimDate, error) {
	cal, err := calendar.Load(ctx, t.store, t.cfg.Paths.HolidayCalendar, t.cfg.Calendar.MaxLookbackDays)
	if err != nil {
		return nil, err
	}

	dims := BuildDimDate(records, cal)
	if err := t.write(ctx, t.cfg.Paths.ProcessedDir, DimDateName, DimDateTable(dims)); err != nil {
		return nil, err
	}

	t.logger.Info("dimension built", zap.Int("dates", len(dims)))
	return dims, nil
}

// readAll concatenates every csv file directly under dir, in name order
func (t *Transformer) readAll(ctx context.Context, dir string) (*table.Table, error) {
	files, err := t.store.ListCSV(ctx, dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, core.WrapError(core.ErrNoInputFiles, fmt.Errorf("no reports under %s", dir))
	}

	tables := make([]*table.Table, 0, len(files))
	for _, f := range files {
		tb, err := t.store.Read(ctx, f)
		if err != nil {
			return nil, err
		}
		tables = append(tables, tb)
	}

	out, err := table.Concat(tables...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	return out, nil
}

func (t *Transformer) write(ctx context.Context, dir, name string, tb *table.Table) error {
	if err := t.store.Write(ctx, path.Join(dir, name), tb); err != nil {
		return err
	}
	t.metrics.SetTableRows(strings.TrimSuffix(name, path.Ext(name)), tb.Len())
	return nil
}
