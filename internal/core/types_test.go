package core

import (
	"testing"
	"time"
)

func TestBhavRecord_IsValid(t *testing.T) {
	date := time.Date(2023, 4, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		record BhavRecord
		want   bool
	}{
		{"valid", BhavRecord{Symbol: "FOO", Date: date, LastPrice: 10.5, DelivQty: 100}, true},
		{"zero price allowed", BhavRecord{Symbol: "FOO", Date: date}, true},
		{"missing symbol", BhavRecord{Date: date, LastPrice: 1}, false},
		{"missing date", BhavRecord{Symbol: "FOO", LastPrice: 1}, false},
		{"negative price", BhavRecord{Symbol: "FOO", Date: date, LastPrice: -1}, false},
		{"negative quantity", BhavRecord{Symbol: "FOO", Date: date, DelivQty: -5}, false},
	}

	for _, tc := range tests {
		if got := tc.record.IsValid(); got != tc.want {
			t.Errorf("%s: IsValid() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestReportKind_Constants(t *testing.T) {
	if ReportBhav != "sec_bhavdata_full" {
		t.Errorf("unexpected bhav kind %q", ReportBhav)
	}
	if ReportMA != "ma_report" {
		t.Errorf("unexpected ma kind %q", ReportMA)
	}
}

func TestDateOnly(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2023, 4, 1, 23, 45, 0, 0, ist)

	got := DateOnly(in)
	want := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOnly = %v, want %v", got, want)
	}
}
