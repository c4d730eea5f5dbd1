package transform

import (
	"sort"
	"strconv"
	"time"

	"github.com/newthinker/nseetl/internal/core"
	"github.com/newthinker/nseetl/internal/storage/table"
)

// DimDateHeader is the column list of dim_datetime
var DimDateHeader = []string{"ID_DATETIME", ColDate, "DAY", "WEEKDAY", "WEEK", "MONTH", "QUARTER", "YEAR", "FLAG"}

// HolidayChecker reports whether a date is a non-trading day
type HolidayChecker interface {
	IsHoliday(date time.Time) bool
}

// BuildDimDate derives one calendar row per distinct record date, ascending
func BuildDimDate(records []core.BhavRecord, holidays HolidayChecker) []core.DimDate {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, r := range records {
		d := core.DateOnly(r.Date)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	dims := make([]core.DimDate, len(dates))
	for i, d := range dates {
		_, week := d.ISOWeek()
		flag := core.FlagWorking
		if holidays.IsHoliday(d) {
			flag = core.FlagHoliday
		}
		dims[i] = core.DimDate{
			ID:      i,
			Date:    d,
			Day:     d.Day(),
			Weekday: isoWeekday(d),
			Week:    week,
			Month:   int(d.Month()),
			Quarter: (int(d.Month())-1)/3 + 1,
			Year:    d.Year(),
			Flag:    flag,
		}
	}
	return dims
}

// isoWeekday numbers Monday 1 through Sunday 7
func isoWeekday(d time.Time) int {
	if wd := d.Weekday(); wd != time.Sunday {
		return int(wd)
	}
	return 7
}

// DimDateTable renders dimension rows as dim_datetime
func DimDateTable(dims []core.DimDate) *table.Table {
	t := table.New(DimDateHeader...)
	for _, d := range dims {
		t.Append(
			strconv.Itoa(d.ID),
			d.Date.Format(StagingDateLayout),
			strconv.Itoa(d.Day),
			strconv.Itoa(d.Weekday),
			strconv.Itoa(d.Week),
			strconv.Itoa(d.Month),
			strconv.Itoa(d.Quarter),
			strconv.Itoa(d.Year),
			d.Flag,
		)
	}
	return t
}
