package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/nseetl/internal/config"
	"github.com/newthinker/nseetl/internal/core"
	"github.com/newthinker/nseetl/internal/storage/table"
)

// Bhav report columns
const (
	ColSymbol    = "SYMBOL"
	ColSeries    = "SERIES"
	ColDate      = "DATE"
	ColLegacyDay = "DATE1"
	ColLastPrice = "LAST_PRICE"
	ColDelivQty  = "DELIV_QTY"
	ColSector    = "SECTOR"
)

// StagingDateLayout is the date format of every staging and warehouse table
const StagingDateLayout = "2006-01-02"

// bhavDropColumns are removed by the cleaner
var bhavDropColumns = []string{ColSeries, "PREV_CLOSE", "AVG_PRICE", "TURNOVER_LACS", "DELIV_PER"}

// bhavDateLayouts are accepted for the DATE column, raw format first
var bhavDateLayouts = []string{config.DateLayout, StagingDateLayout, "02-01-2006"}

// FactBhavHeader is the column list of fact_bhavdata
var FactBhavHeader = []string{"ID_BHAV", ColSymbol, ColSector, ColDate, ColLastPrice}

// CleanBhav normalizes concatenated raw bhav rows into the staging table.
// Only equity-series rows survive. Any coercion failure fails the whole table.
func CleanBhav(raw *table.Table) (*table.Table, error) {
	t := &table.Table{
		Header: append([]string(nil), raw.Header...),
		Rows:   make([][]string, len(raw.Rows)),
	}
	for i, row := range raw.Rows {
		t.Rows[i] = append([]string(nil), row...)
	}

	t.TrimSpace()
	t.Rename(ColLegacyDay, ColDate)

	for _, col := range []string{ColSymbol, ColSeries, ColDate, ColLastPrice, ColDelivQty} {
		if _, err := t.MustIndex(col); err != nil {
			return nil, fmt.Errorf("bhav report: %w", err)
		}
	}

	series := t.Index(ColSeries)
	t.Filter(func(row []string) bool { return row[series] == core.EquitySeries })
	t.Drop(bhavDropColumns...)

	dateIdx, priceIdx, qtyIdx := t.Index(ColDate), t.Index(ColLastPrice), t.Index(ColDelivQty)
	for n, row := range t.Rows {
		d, err := parseBhavDate(row[dateIdx])
		if err != nil {
			return nil, coercionError(n, ColDate, row[dateIdx], err)
		}
		price, err := parseFloat(row[priceIdx])
		if err != nil || price < 0 {
			return nil, coercionError(n, ColLastPrice, row[priceIdx], err)
		}
		qty, err := strconv.ParseInt(row[qtyIdx], 10, 64)
		if err != nil || qty < 0 {
			return nil, coercionError(n, ColDelivQty, row[qtyIdx], err)
		}

		row[dateIdx] = d.Format(StagingDateLayout)
		row[priceIdx] = formatFloat(price)
		row[qtyIdx] = strconv.FormatInt(qty, 10)
	}
	return t, nil
}

// BhavRecords reads typed records from a cleaned bhav table
func BhavRecords(t *table.Table) ([]core.BhavRecord, error) {
	idx := make(map[string]int, 4)
	for _, col := range []string{ColSymbol, ColDate, ColLastPrice, ColDelivQty} {
		i, err := t.MustIndex(col)
		if err != nil {
			return nil, err
		}
		idx[col] = i
	}

	records := make([]core.BhavRecord, 0, t.Len())
	for n, row := range t.Rows {
		d, err := parseBhavDate(row[idx[ColDate]])
		if err != nil {
			return nil, coercionError(n, ColDate, row[idx[ColDate]], err)
		}
		price, err := parseFloat(row[idx[ColLastPrice]])
		if err != nil {
			return nil, coercionError(n, ColLastPrice, row[idx[ColLastPrice]], err)
		}
		qty, err := strconv.ParseInt(row[idx[ColDelivQty]], 10, 64)
		if err != nil {
			return nil, coercionError(n, ColDelivQty, row[idx[ColDelivQty]], err)
		}

		rec := core.BhavRecord{Symbol: row[idx[ColSymbol]], Date: d, LastPrice: price, DelivQty: qty}
		if !rec.IsValid() {
			return nil, coercionError(n, ColSymbol, rec.Symbol, fmt.Errorf("invalid record %+v", rec))
		}
		records = append(records, rec)
	}
	return records, nil
}

// BuildFactBhav keeps records whose symbol belongs to a curated sector and
// attaches the sector. A symbol in several curated sectors yields one row
// per sector, in membership order.
func BuildFactBhav(records []core.BhavRecord, members []core.SectorMember, curated []string) []core.FactBhav {
	wanted := make(map[string]bool, len(curated))
	for _, s := range curated {
		wanted[s] = true
	}

	sectors := make(map[string][]string)
	for _, m := range members {
		if wanted[m.Sector] {
			sectors[m.Symbol] = append(sectors[m.Symbol], m.Sector)
		}
	}

	facts := make([]core.FactBhav, 0, len(records))
	for _, r := range records {
		for _, sec := range sectors[r.Symbol] {
			facts = append(facts, core.FactBhav{
				ID:        len(facts),
				Symbol:    r.Symbol,
				Sector:    sec,
				Date:      r.Date,
				LastPrice: r.LastPrice,
			})
		}
	}
	return facts
}

// FactBhavTable renders fact rows as fact_bhavdata
func FactBhavTable(facts []core.FactBhav) *table.Table {
	t := table.New(FactBhavHeader...)
	for _, f := range facts {
		t.Append(
			strconv.Itoa(f.ID),
			f.Symbol,
			f.Sector,
			f.Date.Format(StagingDateLayout),
			formatFloat(f.LastPrice),
		)
	}
	return t
}

func parseBhavDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range bhavDateLayouts {
		var d time.Time
		if d, err = time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, err
}

// parseFloat accepts thousands separators as printed in exchange reports
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func coercionError(row int, col, value string, err error) error {
	if err == nil {
		err = fmt.Errorf("negative value")
	}
	return core.WrapError(core.ErrCoercion,
		fmt.Errorf("row %d column %s value %q: %w", row+1, col, value, err))
}
