package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/core"
	"github.com/newthinker/nseetl/internal/storage/table"
)

// Column is the single column of the persisted holiday calendar
const Column = "HolidayDate"

// DefaultMaxLookback bounds PreviousTradingDay when no limit is configured
const DefaultMaxLookback = 30

// Calendar is the set of non-trading dates
type Calendar struct {
	holidays    map[time.Time]struct{}
	maxLookback int
}

// New builds a calendar from holiday dates. maxLookback <= 0 uses DefaultMaxLookback.
func New(holidays []time.Time, maxLookback int) *Calendar {
	if maxLookback <= 0 {
		maxLookback = DefaultMaxLookback
	}
	c := &Calendar{
		holidays:    make(map[time.Time]struct{}, len(holidays)),
		maxLookback: maxLookback,
	}
	for _, h := range holidays {
		c.holidays[core.DateOnly(h)] = struct{}{}
	}
	return c
}

// IsHoliday reports whether the date is a non-trading day
func (c *Calendar) IsHoliday(date time.Time) bool {
	_, ok := c.holidays[core.DateOnly(date)]
	return ok
}

// Len returns the number of holiday dates
func (c *Calendar) Len() int {
	return len(c.holidays)
}

// Holidays returns the holiday dates in ascending order
func (c *Calendar) Holidays() []time.Time {
	out := make([]time.Time, 0, len(c.holidays))
	for d := range c.holidays {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// PreviousTradingDay returns the nearest trading day strictly before ref
func (c *Calendar) PreviousTradingDay(ref time.Time) (time.Time, error) {
	d := core.DateOnly(ref)
	for i := 0; i < c.maxLookback; i++ {
		d = d.AddDate(0, 0, -1)
		if !c.IsHoliday(d) {
			return d, nil
		}
	}
	return time.Time{}, core.WrapError(core.ErrNoTradingDay,
		fmt.Errorf("no trading day within %d days before %s", c.maxLookback, ref.Format(config.DateLayout)))
}

// NextTradingDay returns the nearest trading day strictly after ref
func (c *Calendar) NextTradingDay(ref time.Time) (time.Time, error) {
	d := core.DateOnly(ref)
	for i := 0; i < c.maxLookback; i++ {
		d = d.AddDate(0, 0, 1)
		if !c.IsHoliday(d) {
			return d, nil
		}
	}
	return time.Time{}, core.WrapError(core.ErrNoTradingDay,
		fmt.Errorf("no trading day within %d days after %s", c.maxLookback, ref.Format(config.DateLayout)))
}

// TradingDays returns every non-holiday date in [from, to], inclusive
func (c *Calendar) TradingDays(from, to time.Time) []time.Time {
	var days []time.Time
	end := core.DateOnly(to)
	for d := core.DateOnly(from); !d.After(end); d = d.AddDate(0, 0, 1) {
		if !c.IsHoliday(d) {
			days = append(days, d)
		}
	}
	return days
}

// Build returns the union of the given holidays and every Saturday and
// Sunday of year, deduplicated and sorted.
func Build(year int, holidays []time.Time) []time.Time {
	set := make(map[time.Time]struct{}, len(holidays)+106)
	for _, h := range holidays {
		set[core.DateOnly(h)] = struct{}{}
	}
	for _, d := range Weekends(year) {
		set[d] = struct{}{}
	}

	out := make([]time.Time, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Weekends returns every Saturday and Sunday of year
func Weekends(year int) []time.Time {
	var out []time.Time
	for d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC); d.Year() == year; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

// Load reads the persisted calendar. A missing file is ErrCalendarMissing.
func Load(ctx context.Context, store *table.Store, path string, maxLookback int) (*Calendar, error) {
	t, err := store.Read(ctx, path)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.WrapError(core.ErrCalendarMissing, err)
		}
		return nil, err
	}

	col, err := t.Column(Column)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	dates := make([]time.Time, 0, len(col))
	for _, v := range col {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		d, err := time.Parse(config.DateLayout, v)
		if err != nil {
			return nil, core.WrapError(core.ErrSchemaMismatch,
				fmt.Errorf("holiday date %q in %s: %w", v, path, err))
		}
		dates = append(dates, d)
	}
	return New(dates, maxLookback), nil
}

// Save fully replaces the persisted calendar with dates
func Save(ctx context.Context, store *table.Store, path string, dates []time.Time) error {
	t := table.New(Column)
	for _, d := range dates {
		t.Append(d.Format(config.DateLayout))
	}
	if err := store.Write(ctx, path, t); err != nil {
		return fmt.Errorf("saving calendar: %w", err)
	}
	return nil
}
