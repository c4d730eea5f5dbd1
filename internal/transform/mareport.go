package transform

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/core"
	"github.com/newthinker/nseetl/internal/storage/table"
)

// Market-activity report columns
const (
	ColIndex = "INDEX"
	ColOpen  = "OPEN"
	ColHigh  = "HIGH"
	ColLow   = "LOW"
	ColClose = "CLOSE"
)

// MAHeader is the column list of the cleaned market-activity table
var MAHeader = []string{ColSector, ColDate, ColOpen, ColHigh, ColLow, ColClose}

// FactMAHeader is the column list of fact_MA_report
var FactMAHeader = []string{"ID_MA", ColSector, ColDate, ColClose}

// ParseMADate extracts the report date from a file named MAddmmyy.csv.
// Two-digit years are read as 20yy.
func ParseMADate(name string) (time.Time, error) {
	base := path.Base(name)
	if len(base) != len("MAddmmyy.csv") || !strings.HasPrefix(strings.ToUpper(base), "MA") ||
		!strings.EqualFold(path.Ext(base), ".csv") {
		return time.Time{}, core.WrapError(core.ErrSchemaMismatch,
			fmt.Errorf("unexpected market activity file name %q", base))
	}

	digits := base[2:8]
	day, err1 := strconv.Atoi(digits[0:2])
	month, err2 := strconv.Atoi(digits[2:4])
	year, err3 := strconv.Atoi(digits[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, core.WrapError(core.ErrSchemaMismatch,
			fmt.Errorf("non-numeric date in file name %q", base))
	}

	d := time.Date(2000+year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, core.WrapError(core.ErrSchemaMismatch,
			fmt.Errorf("invalid date in file name %q", base))
	}
	return d, nil
}

// ReadMABlock extracts the fixed index block of one raw market-activity
// report and stamps every row with date. The block starts after
// layout.SkipLines physical lines: one header line followed by at most
// layout.RowCount rows, columns [FirstColumn, FirstColumn+ColumnCount).
func ReadMABlock(data []byte, date time.Time, layout config.MALayoutConfig) (*table.Table, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for skipped := 0; skipped < layout.SkipLines; skipped++ {
		if !sc.Scan() {
			return nil, core.WrapError(core.ErrSchemaMismatch,
				fmt.Errorf("report shorter than %d lines", layout.SkipLines))
		}
	}

	var rest bytes.Buffer
	for sc.Scan() {
		rest.Write(sc.Bytes())
		rest.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning report: %w", err)
	}

	r := csv.NewReader(&rest)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, core.WrapError(core.ErrSchemaMismatch, fmt.Errorf("reading block header: %w", err))
	}
	cols := slice(header, layout.FirstColumn, layout.ColumnCount)
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}

	t := table.New(append(cols, ColDate)...)
	stamp := date.Format(StagingDateLayout)
	for len(t.Rows) < layout.RowCount {
		rec, err := r.Read()
		if err == io.EOF {
			// short reports end the block early
			break
		}
		if err != nil {
			return nil, core.WrapError(core.ErrSchemaMismatch,
				fmt.Errorf("reading block row %d: %w", len(t.Rows)+1, err))
		}
		t.Append(append(slice(rec, layout.FirstColumn, layout.ColumnCount), stamp)...)
	}
	return t, nil
}

// slice returns record[first:first+n], padding missing cells with ""
func slice(record []string, first, n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		if j := first + i; j < len(record) {
			out[i] = record[j]
		}
	}
	return out
}

// CleanMAReport normalizes concatenated market-activity blocks: the index
// label is upper-cased and renamed to SECTOR, OHLC are coerced to numbers.
// Blank price cells stay blank.
func CleanMAReport(raw *table.Table) (*table.Table, error) {
	src := make(map[string]int, len(MAHeader))
	for _, col := range []string{ColIndex, ColDate, ColOpen, ColHigh, ColLow, ColClose} {
		i, err := raw.MustIndex(col)
		if err != nil {
			return nil, fmt.Errorf("market activity report: %w", err)
		}
		src[col] = i
	}

	t := table.New(MAHeader...)
	for n, row := range raw.Rows {
		out := []string{
			strings.ToUpper(strings.TrimSpace(row[src[ColIndex]])),
			strings.TrimSpace(row[src[ColDate]]),
		}
		for _, col := range []string{ColOpen, ColHigh, ColLow, ColClose} {
			cell := strings.TrimSpace(row[src[col]])
			if cell == "" {
				out = append(out, "")
				continue
			}
			v, err := parseFloat(cell)
			if err != nil {
				return nil, coercionError(n, col, cell, err)
			}
			out = append(out, formatFloat(v))
		}
		t.Append(out...)
	}
	return t, nil
}

// IndexRecords reads typed records from a cleaned market-activity table.
// Rows without a close are not index levels and are skipped; other blank
// prices read as zero.
func IndexRecords(t *table.Table) ([]core.IndexRecord, error) {
	for i, col := range MAHeader {
		if t.Index(col) != i {
			return nil, core.WrapError(core.ErrSchemaMismatch,
				fmt.Errorf("market activity columns %v, want %v", t.Header, MAHeader))
		}
	}

	records := make([]core.IndexRecord, 0, t.Len())
	for n, row := range t.Rows {
		if row[5] == "" {
			continue
		}
		d, err := time.Parse(StagingDateLayout, row[1])
		if err != nil {
			return nil, coercionError(n, ColDate, row[1], err)
		}
		var prices [4]float64
		for i := range prices {
			if row[2+i] == "" {
				continue
			}
			if prices[i], err = parseFloat(row[2+i]); err != nil {
				return nil, coercionError(n, MAHeader[2+i], row[2+i], err)
			}
		}
		records = append(records, core.IndexRecord{
			Sector: row[0],
			Date:   d,
			Open:   prices[0],
			High:   prices[1],
			Low:    prices[2],
			Close:  prices[3],
		})
	}
	return records, nil
}

// BuildFactMA keeps index rows whose sector appears in the membership
func BuildFactMA(records []core.IndexRecord, members []core.SectorMember) []core.FactMA {
	known := make(map[string]bool)
	for _, m := range members {
		known[m.Sector] = true
	}

	facts := make([]core.FactMA, 0, len(records))
	for _, r := range records {
		if !known[r.Sector] {
			continue
		}
		facts = append(facts, core.FactMA{
			ID:     len(facts),
			Sector: r.Sector,
			Date:   r.Date,
			Close:  r.Close,
		})
	}
	return facts
}

// FactMATable renders fact rows as fact_MA_report
func FactMATable(facts []core.FactMA) *table.Table {
	t := table.New(FactMAHeader...)
	for _, f := range facts {
		t.Append(strconv.Itoa(f.ID), f.Sector, f.Date.Format(StagingDateLayout), formatFloat(f.Close))
	}
	return t
}
