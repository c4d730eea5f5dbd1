package core

import "time"

// ReportKind identifies a raw archive report published by the exchange
type ReportKind string

const (
	ReportBhav ReportKind = "sec_bhavdata_full"
	ReportMA   ReportKind = "ma_report"
)

// Day flags used by the calendar dimension
const (
	FlagHoliday = "Holiday"
	FlagWorking = "Working"
)

// EquitySeries is the series marker retained by the bhav cleaner
const EquitySeries = "EQ"

// SectorMember is one (symbol, sector) row of the sector snapshot
type SectorMember struct {
	Symbol string
	Sector string
}

// BhavRecord is a cleaned security-wise bhav row
type BhavRecord struct {
	Symbol    string
	Date      time.Time
	LastPrice float64
	DelivQty  int64
}

// IsValid checks the record invariants
func (b BhavRecord) IsValid() bool {
	return b.Symbol != "" && !b.Date.IsZero() && b.LastPrice >= 0 && b.DelivQty >= 0
}

// IndexRecord is a cleaned market-activity row for one sector index
type IndexRecord struct {
	Sector string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
}

// FactBhav is a row of fact_bhavdata
type FactBhav struct {
	ID        int
	Symbol    string
	Sector    string
	Date      time.Time
	LastPrice float64
}

// FactMA is a row of fact_MA_report
type FactMA struct {
	ID     int
	Sector string
	Date   time.Time
	Close  float64
}

// DimDate is a row of dim_datetime
type DimDate struct {
	ID      int
	Date    time.Time
	Day     int
	Weekday int // ISO: Monday=1 .. Sunday=7
	Week    int // ISO week number
	Month   int
	Quarter int
	Year    int
	Flag    string
}

// DateOnly truncates t to midnight UTC of its calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StarSchema is the warehouse output of one transform run
type StarSchema struct {
	FactBhav []FactBhav
	FactMA   []FactMA
	Dates    []DimDate
}
