package transform

import (
	"testing"
	"time"

	"github.com/newthinker/nseetl/internal/calendar"
	"github.com/newthinker/nseetl/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDimDate(t *testing.T) {
	records := []core.BhavRecord{
		{Symbol: "A", Date: date(2023, 4, 3)},
		{Symbol: "B", Date: date(2023, 4, 3)},
		{Symbol: "A", Date: date(2023, 1, 1)},
		{Symbol: "A", Date: date(2023, 4, 8)},
	}
	cal := calendar.New(calendar.Build(2023, nil), 0)

	dims := BuildDimDate(records, cal)
	require.Len(t, dims, 3)

	assert.Equal(t, core.DimDate{
		ID: 0, Date: date(2023, 1, 1), Day: 1, Weekday: 7, Week: 52,
		Month: 1, Quarter: 1, Year: 2023, Flag: core.FlagHoliday,
	}, dims[0])
	assert.Equal(t, core.DimDate{
		ID: 1, Date: date(2023, 4, 3), Day: 3, Weekday: 1, Week: 14,
		Month: 4, Quarter: 2, Year: 2023, Flag: core.FlagWorking,
	}, dims[1])
	assert.Equal(t, 6, dims[2].Weekday)
	assert.Equal(t, core.FlagHoliday, dims[2].Flag)
}

func TestBuildDimDate_Quarters(t *testing.T) {
	cal := calendar.New(nil, 0)
	for m, want := range map[time.Month]int{1: 1, 3: 1, 4: 2, 6: 2, 7: 3, 9: 3, 10: 4, 12: 4} {
		dims := BuildDimDate([]core.BhavRecord{{Date: date(2023, m, 15)}}, cal)
		assert.Equal(t, want, dims[0].Quarter, "month %d", m)
	}
}

func TestDimDateTable(t *testing.T) {
	cal := calendar.New(nil, 0)
	dims := BuildDimDate([]core.BhavRecord{{Date: date(2023, 4, 3)}}, cal)

	data, err := DimDateTable(dims).Encode()
	require.NoError(t, err)
	assert.Equal(t,
		"ID_DATETIME,DATE,DAY,WEEKDAY,WEEK,MONTH,QUARTER,YEAR,FLAG\n"+
			"0,2023-04-03,3,1,14,4,2,2023,Working\n",
		string(data))
}
