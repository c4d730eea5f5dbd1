package transform

import (
	"errors"
	"strings"
	"testing"

	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maReport builds a raw report: eight preamble lines, the block header,
// the given rows, then a trailing section that must be ignored.
func maReport(rows ...string) []byte {
	var b strings.Builder
	b.WriteString("Market Activity Report\n")
	b.WriteString("National Stock Exchange of India Ltd.\n")
	b.WriteString("\"Date : 01-Apr-2023\"\n")
	b.WriteString("\n")
	b.WriteString("Summary,,,\n")
	b.WriteString("Equity,1234,5678\n")
	b.WriteString("Derivatives,91011\n")
	b.WriteString("Indices\n")
	b.WriteString(",INDEX,PREVIOUS CLOSE,OPEN,HIGH,LOW,CLOSE,GAIN/LOSS\n")
	for _, r := range rows {
		b.WriteString(r + "\n")
	}
	b.WriteString("Top Gainers,,\n")
	b.WriteString(",SECURITY,PREV,LTP\n")
	return []byte(b.String())
}

func testLayout(rows int) config.MALayoutConfig {
	return config.MALayoutConfig{SkipLines: 8, FirstColumn: 1, ColumnCount: 7, RowCount: rows}
}

func TestParseMADate(t *testing.T) {
	d, err := ParseMADate("MA010423.csv")
	require.NoError(t, err)
	assert.Equal(t, date(2023, 4, 1), d)

	d, err = ParseMADate("raw/ma_report/MA311299.csv")
	require.NoError(t, err)
	assert.Equal(t, date(2099, 12, 31), d)
}

func TestParseMADate_Invalid(t *testing.T) {
	for _, name := range []string{"MA01042023.csv", "XX010423.csv", "MA0104ab.csv", "MA310223.csv", "MA010423.txt"} {
		_, err := ParseMADate(name)
		assert.True(t, errors.Is(err, core.ErrSchemaMismatch), name)
	}
}

func TestReadMABlock(t *testing.T) {
	data := maReport(
		`1,Nifty 50,17359.75,17427.95,17428.05,17312.75,17398.05,0.22`,
		`2,Nifty Next 50,"39,000.10","39,050.00","39,300.00","38,950.00","39,210.40",0.54`,
		`3,Nifty IT,28000,28100,28200,27900,28050,0.18`,
	)

	block, err := ReadMABlock(data, date(2023, 4, 1), testLayout(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"INDEX", "PREVIOUS CLOSE", "OPEN", "HIGH", "LOW", "CLOSE", "GAIN/LOSS", "DATE"}, block.Header)
	require.Equal(t, 2, block.Len(), "row count caps the block")
	assert.Equal(t, "Nifty 50", block.Rows[0][0])
	assert.Equal(t, "39,210.40", block.Rows[1][5])
	assert.Equal(t, "2023-04-01", block.Rows[1][7])
}

func TestReadMABlock_ShortRows(t *testing.T) {
	data := maReport(`1,Broad Market Indices`)

	block, err := ReadMABlock(data, date(2023, 4, 1), testLayout(1))
	require.NoError(t, err)
	require.Equal(t, 1, block.Len())
	assert.Equal(t, []string{"Broad Market Indices", "", "", "", "", "", "", "2023-04-01"}, block.Rows[0])
}

func TestReadMABlock_MalformedRow(t *testing.T) {
	data := maReport(
		`1,Nifty 50,17359.75,17427.95,17428.05,17312.75,17398.05,0.22`,
		`2,Nifty "Next" 50,39000,39050,39300,38950,39210,0.54`,
		`3,Nifty IT,28000,28100,28200,27900,28050,0.18`,
	)

	_, err := ReadMABlock(data, date(2023, 4, 1), testLayout(3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSchemaMismatch))
	assert.Contains(t, err.Error(), "row 2")
}

func TestReadMABlock_TooShort(t *testing.T) {
	_, err := ReadMABlock([]byte("a\nb\n"), date(2023, 4, 1), testLayout(71))
	assert.True(t, errors.Is(err, core.ErrSchemaMismatch))
}

func TestCleanMAReport(t *testing.T) {
	data := maReport(
		`1,Nifty 50,17359.75,17427.95,17428.05,17312.75,17398.05,0.22`,
		`2,Nifty Next 50,"39,000.10","39,050.00","39,300.00","38,950.00","39,210.40",0.54`,
		`3,Broad Market Indices,,,,,,`,
	)
	block, err := ReadMABlock(data, date(2023, 4, 1), testLayout(3))
	require.NoError(t, err)

	staging, err := CleanMAReport(block)
	require.NoError(t, err)

	assert.Equal(t, MAHeader, staging.Header)
	assert.Equal(t, [][]string{
		{"NIFTY 50", "2023-04-01", "17427.95", "17428.05", "17312.75", "17398.05"},
		{"NIFTY NEXT 50", "2023-04-01", "39050", "39300", "38950", "39210.4"},
		{"BROAD MARKET INDICES", "2023-04-01", "", "", "", ""},
	}, staging.Rows)

	records, err := IndexRecords(staging)
	require.NoError(t, err)
	require.Len(t, records, 2, "rows without a close are skipped")
	assert.Equal(t, core.IndexRecord{
		Sector: "NIFTY 50", Date: date(2023, 4, 1),
		Open: 17427.95, High: 17428.05, Low: 17312.75, Close: 17398.05,
	}, records[0])
}

func TestCleanMAReport_CoercionIsFatal(t *testing.T) {
	block, err := ReadMABlock(maReport(`1,Nifty 50,1,n/a,1,1,1,0`), date(2023, 4, 1), testLayout(1))
	require.NoError(t, err)

	_, err = CleanMAReport(block)
	assert.True(t, errors.Is(err, core.ErrCoercion))
}

func TestCleanMAReport_MissingColumn(t *testing.T) {
	_, err := CleanMAReport(mustParse(t, "NAME,DATE,OPEN,HIGH,LOW,CLOSE\n"))
	assert.True(t, errors.Is(err, core.ErrSchemaMismatch))
}

func TestBuildFactMA(t *testing.T) {
	records := []core.IndexRecord{
		{Sector: "NIFTY 50", Date: date(2023, 4, 3), Close: 17398.05},
		{Sector: "NIFTY SMALLCAP 250", Date: date(2023, 4, 3), Close: 9000},
		{Sector: "NIFTY IT", Date: date(2023, 4, 3), Close: 28050},
	}
	members := []core.SectorMember{
		{Symbol: "RELIANCE", Sector: "NIFTY 50"},
		{Symbol: "TCS", Sector: "NIFTY IT"},
	}

	facts := BuildFactMA(records, members)
	assert.Equal(t, []core.FactMA{
		{ID: 0, Sector: "NIFTY 50", Date: date(2023, 4, 3), Close: 17398.05},
		{ID: 1, Sector: "NIFTY IT", Date: date(2023, 4, 3), Close: 28050},
	}, facts)

	data, err := FactMATable(facts).Encode()
	require.NoError(t, err)
	assert.Equal(t, "ID_MA,SECTOR,DATE,CLOSE\n0,NIFTY 50,2023-04-03,17398.05\n1,NIFTY IT,2023-04-03,28050\n", string(data))
}
