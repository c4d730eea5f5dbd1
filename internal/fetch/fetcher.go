package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/nseetl/internal/calendar"
	"github.com/newthinker/nseetl/internal/collector"
	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/metrics"
	"github.com/newthinker/nseetl/internal/sector"
	"github.com/newthinker/nseetl/internal/storage/table"
	"go.uber.org/zap"
)

// HolidayAPI is the remote trading holiday feed
type HolidayAPI interface {
	FetchTradingHolidays(ctx context.Context) ([]time.Time, error)
}

// Summary counts the download outcomes of one fetch run
type Summary struct {
	Dates   int
	Saved   int
	Missing int
	Failed  int
}

func (s *Summary) add(o Summary) {
	s.Dates += o.Dates
	s.Saved += o.Saved
	s.Missing += o.Missing
	s.Failed += o.Failed
}

// Fetcher drives the raw fetch stage
type Fetcher struct {
	downloader  *Downloader
	reports     *collector.Registry
	snapshotter *sector.Snapshotter
	holidays    HolidayAPI
	store       *table.Store
	cfg         *config.Config
	metrics     *metrics.Registry
	logger      *zap.Logger
}

// Options wires a Fetcher
type Options struct {
	Downloader  *Downloader
	Reports     *collector.Registry
	Snapshotter *sector.Snapshotter
	Holidays    HolidayAPI
	Store       *table.Store
	Config      *config.Config
	Metrics     *metrics.Registry
	Logger      *zap.Logger
}

// NewFetcher creates a fetch stage
func NewFetcher(opts Options) *Fetcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		downloader:  opts.Downloader,
		reports:     opts.Reports,
		snapshotter: opts.Snapshotter,
		holidays:    opts.Holidays,
		store:       opts.Store,
		cfg:         opts.Config,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// WithLogger returns a copy of f whose downloader and snapshotter also log
// to logger, typically one carrying a run id.
func (f *Fetcher) WithLogger(logger *zap.Logger) *Fetcher {
	c := *f
	c.logger = logger
	if f.downloader != nil {
		c.downloader = f.downloader.WithLogger(logger)
	}
	if f.snapshotter != nil {
		c.snapshotter = f.snapshotter.WithLogger(logger)
	}
	return &c
}

// Calendar loads the persisted trading calendar
func (f *Fetcher) Calendar(ctx context.Context) (*calendar.Calendar, error) {
	return calendar.Load(ctx, f.store, f.cfg.Paths.HolidayCalendar, f.cfg.Calendar.MaxLookbackDays)
}

// RefreshCalendar rebuilds the holiday calendar for year from the remote
// feed, falling back to the offline exchange calendar.
func (f *Fetcher) RefreshCalendar(ctx context.Context, year int) (int, error) {
	var dates []time.Time

	remote, err := f.holidays.FetchTradingHolidays(ctx)
	if err != nil {
		f.logger.Warn("holiday feed failed, using offline calendar",
			zap.String("mic", f.cfg.Calendar.MIC),
			zap.Error(err),
		)
		dates = calendar.Build(year, calendar.Offline(year, f.cfg.Calendar.MIC))
	} else {
		dates = calendar.Build(year, remote)
	}

	if err := calendar.Save(ctx, f.store, f.cfg.Paths.HolidayCalendar, dates); err != nil {
		return 0, err
	}

	f.logger.Info("holiday calendar saved",
		zap.Int("year", year),
		zap.Int("holidays", len(dates)),
	)
	return len(dates), nil
}

// RefreshSectors rebuilds the sector snapshot
func (f *Fetcher) RefreshSectors(ctx context.Context) (*sector.Result, error) {
	result, err := f.snapshotter.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	for name, n := range result.Counts {
		f.metrics.SetSectorSymbols(name, n)
	}
	f.metrics.SetTableRows("combined_data", len(result.Members))
	return result, nil
}

// Backfill downloads every report for each trading day in [start, end].
// Individual download failures are logged and skipped.
func (f *Fetcher) Backfill(ctx context.Context, start, end time.Time) (Summary, error) {
	cal, err := f.Calendar(ctx)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, day := range cal.TradingDays(start, end) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.add(f.downloadDate(ctx, day))
	}

	f.logger.Info("backfill complete",
		zap.String("start", start.Format(config.DateLayout)),
		zap.String("end", end.Format(config.DateLayout)),
		zap.Int("dates", sum.Dates),
		zap.Int("saved", sum.Saved),
		zap.Int("missing", sum.Missing),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

// Daily refreshes the sector snapshot and downloads today's reports and,
// when configured, the previous trading day's. Holidays only refresh sectors.
func (f *Fetcher) Daily(ctx context.Context, today time.Time) (Summary, error) {
	if f.cfg.Fetch.RefreshCalendar {
		if _, err := f.RefreshCalendar(ctx, today.Year()); err != nil {
			return Summary{}, err
		}
	}

	if _, err := f.RefreshSectors(ctx); err != nil {
		return Summary{}, err
	}

	cal, err := f.Calendar(ctx)
	if err != nil {
		return Summary{}, err
	}

	if cal.IsHoliday(today) {
		f.logger.Info("holiday, no reports to fetch",
			zap.String("date", today.Format(config.DateLayout)))
		return Summary{}, nil
	}

	sum := f.downloadDate(ctx, today)

	if f.cfg.Fetch.PreviousDay {
		prev, err := cal.PreviousTradingDay(today)
		if err != nil {
			return sum, fmt.Errorf("previous trading day: %w", err)
		}
		sum.add(f.downloadDate(ctx, prev))
	}
	return sum, nil
}

func (f *Fetcher) downloadDate(ctx context.Context, day time.Time) Summary {
	sum := Summary{Dates: 1}
	for _, rep := range f.reports.GetAll() {
		u := rep.URL(day)
		saved, err := f.downloader.Download(ctx, u, rep.Folder)
		switch {
		case err != nil:
			sum.Failed++
			f.metrics.RecordDownload(string(rep.Kind), metrics.OutcomeFailed)
			f.logger.Error("download failed",
				zap.String("report", string(rep.Kind)),
				zap.String("url", u),
				zap.Error(err),
			)
		case saved == "":
			sum.Missing++
			f.metrics.RecordDownload(string(rep.Kind), metrics.OutcomeMissing)
		default:
			sum.Saved++
			f.metrics.RecordDownload(string(rep.Kind), metrics.OutcomeSaved)
		}
	}
	return sum
}
