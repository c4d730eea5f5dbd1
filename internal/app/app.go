package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/nseetl/internal/collector/nse"
	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/core"
	"github.com/newthinker/nseetl/internal/fetch"
	"github.com/newthinker/nseetl/internal/metrics"
	"github.com/newthinker/nseetl/internal/schedule"
	"github.com/newthinker/nseetl/internal/sector"
	"github.com/newthinker/nseetl/internal/storage/archive"
	"github.com/newthinker/nseetl/internal/storage/table"
	"github.com/newthinker/nseetl/internal/transform"
	"github.com/newthinker/nseetl/internal/warehouse"
	"go.uber.org/zap"
)

// Stage names used in logs and metrics
const (
	StageFetch     = "fetch"
	StageBackfill  = "backfill"
	StageHolidays  = "holidays"
	StageTransform = "transform"
)

// App is the pipeline orchestrator
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Registry
	storage archive.Storage
	loc     *time.Location
	now     func() time.Time

	client      *nse.Client
	fetcher     *fetch.Fetcher
	transformer *transform.Transformer
	closers     []io.Closer

	mu      sync.Mutex
	running bool
}

// Option customizes App construction
type Option func(*App)

// WithStorage replaces the configured storage backend
func WithStorage(s archive.Storage) Option {
	return func(a *App) {
		a.storage = s
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// New wires every pipeline component from cfg
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewRegistry(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("schedule timezone: %w", err))
	}
	a.loc = loc

	if a.storage == nil {
		if a.storage, err = archive.Open(cfg.Storage); err != nil {
			return nil, err
		}
	}
	store := table.NewStore(a.storage)

	transport := metrics.Transport(a.metrics, metrics.LoggingTransport(logger, http.DefaultTransport))
	a.client = nse.New(cfg.Source, nse.WithTransport(transport))

	a.fetcher = fetch.NewFetcher(fetch.Options{
		Downloader: fetch.NewDownloader(a.client, a.storage, logger),
		Reports:    a.client.Reports(cfg.Paths),
		Snapshotter: sector.NewSnapshotter(
			sector.NewRemoteSource(a.client), store, cfg.Paths.SectorSnapshot, cfg.Sectors, logger),
		Holidays: a.client,
		Store:    store,
		Config:   cfg,
		Metrics:  a.metrics,
		Logger:   logger,
	})

	var sinks []transform.Sink
	if cfg.Warehouse.SQLite.Enabled {
		db, err := warehouse.OpenSQLite(cfg.Warehouse.SQLite.Path, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, db)
		a.closers = append(a.closers, db)
	}
	if cfg.Warehouse.Workbook.Enabled {
		sinks = append(sinks, warehouse.NewWorkbook(a.storage, cfg.Warehouse.Workbook.Name))
	}

	a.transformer = transform.New(transform.Options{
		Store:   store,
		Config:  cfg,
		Sinks:   sinks,
		Metrics: a.metrics,
		Logger:  logger,
	})

	return a, nil
}

// Metrics returns the metrics registry
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// Today returns the current exchange date
func (a *App) Today() time.Time {
	return core.DateOnly(a.now().In(a.loc))
}

// Fetch runs the daily fetch for today
func (a *App) Fetch(ctx context.Context) (fetch.Summary, error) {
	var sum fetch.Summary
	err := a.stage(ctx, StageFetch, func(ctx context.Context, log *zap.Logger) error {
		var err error
		sum, err = a.fetcher.WithLogger(log).Daily(ctx, a.Today())
		log.Info("daily fetch",
			zap.Int("dates", sum.Dates),
			zap.Int("saved", sum.Saved),
			zap.Int("missing", sum.Missing),
			zap.Int("failed", sum.Failed),
		)
		return err
	})
	return sum, err
}

// Backfill downloads reports for every trading day from start through end
func (a *App) Backfill(ctx context.Context, start, end time.Time) (fetch.Summary, error) {
	var sum fetch.Summary
	err := a.stage(ctx, StageBackfill, func(ctx context.Context, log *zap.Logger) error {
		var err error
		sum, err = a.fetcher.WithLogger(log).Backfill(ctx, start, end)
		return err
	})
	return sum, err
}

// Holidays rebuilds the trading calendar for year
func (a *App) Holidays(ctx context.Context, year int) (int, error) {
	var n int
	err := a.stage(ctx, StageHolidays, func(ctx context.Context, log *zap.Logger) error {
		var err error
		n, err = a.fetcher.WithLogger(log).RefreshCalendar(ctx, year)
		return err
	})
	return n, err
}

// Transform rebuilds the staging tables and the star schema
func (a *App) Transform(ctx context.Context) (*core.StarSchema, error) {
	var schema *core.StarSchema
	err := a.stage(ctx, StageTransform, func(ctx context.Context, log *zap.Logger) error {
		var err error
		schema, err = a.transformer.WithLogger(log).Run(ctx)
		return err
	})
	return schema, err
}

// Run fetches today's reports and then transforms the whole archive.
// The transform runs even when the fetch partially failed.
func (a *App) Run(ctx context.Context) error {
	_, fetchErr := a.Fetch(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	_, transformErr := a.Transform(ctx)
	return errors.Join(fetchErr, transformErr)
}

// Schedule runs the pipeline on the configured cron spec and serves
// metrics until ctx is canceled.
func (a *App) Schedule(ctx context.Context) error {
	runner := schedule.New(a.logger, ctx, a.loc)
	id, err := runner.Add(a.cfg.Schedule.Spec, func(ctx context.Context) {
		if err := a.Run(ctx); err != nil {
			a.logger.Warn("scheduled run finished with errors", zap.Error(err))
		}
	})
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("schedule spec %q: %w", a.cfg.Schedule.Spec, err))
	}

	runner.Start()
	defer runner.Stop()
	a.logger.Info("pipeline scheduled",
		zap.String("spec", a.cfg.Schedule.Spec),
		zap.Time("next", runner.Next(id)),
	)

	if a.cfg.Metrics.Listen != "" {
		return a.metrics.Serve(ctx, a.cfg.Metrics.Listen, a.cfg.Metrics.Path, a.logger)
	}
	<-ctx.Done()
	return nil
}

// Close releases warehouse connections
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// stage runs fn under a fresh run id, records its metrics and refuses to
// overlap with another stage.
func (a *App) stage(ctx context.Context, name string, fn func(context.Context, *zap.Logger) error) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("%s: another stage is running", name)
	}
	a.running = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	log := a.logger.With(zap.String("stage", name), zap.String("run_id", uuid.NewString()))
	log.Info("stage started")
	start := time.Now()

	err := fn(ctx, log)

	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusFailed
	}
	finished := time.Now()
	a.metrics.RecordStage(name, status, finished.Sub(start).Seconds(), finished.Unix())

	if path := a.cfg.Metrics.Textfile; path != "" {
		if werr := a.metrics.WriteTextfile(path); werr != nil {
			log.Warn("failed to write metrics textfile", zap.String("path", path), zap.Error(werr))
		}
	}

	if err != nil {
		log.Warn("stage finished with errors", zap.Duration("duration", finished.Sub(start)), zap.Error(err))
		return err
	}
	log.Info("stage finished", zap.Duration("duration", finished.Sub(start)))
	return nil
}
