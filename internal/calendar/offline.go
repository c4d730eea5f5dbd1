package calendar

import (
	"time"

	exchange "github.com/scmhub/calendar"
)

// Offline derives the non-business days of year from the bundled exchange
// calendar identified by mic (ISO 10383). Unknown MICs yield weekends only.
func Offline(year int, mic string) []time.Time {
	cal := exchange.GetCalendar(mic)
	if cal == nil {
		return Weekends(year)
	}

	loc := cal.Loc
	if loc == nil {
		loc = time.UTC
	}

	var out []time.Time
	for d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC); d.Year() == year; d = d.AddDate(0, 0, 1) {
		// Noon in exchange time stays on the same calendar date
		local := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc)
		if !cal.IsBusinessDay(local) {
			out = append(out, d)
		}
	}
	return out
}
