package collector

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/newthinker/nseetl/internal/core"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(Report{Kind: core.ReportBhav, Folder: "raw/sec_bhavdata_full"})

	rep, ok := r.Get(core.ReportBhav)
	if !ok {
		t.Fatal("expected to find bhav report")
	}
	if rep.Folder != "raw/sec_bhavdata_full" {
		t.Errorf("unexpected folder %s", rep.Folder)
	}

	if _, ok := r.Get(core.ReportMA); ok {
		t.Error("did not expect ma report")
	}
}

func TestRegistry_GetAllKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(Report{Kind: core.ReportBhav, Folder: "a"})
	r.Register(Report{Kind: core.ReportMA, Folder: "b"})
	r.Register(Report{Kind: core.ReportBhav, Folder: "c"})

	all := r.GetAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(all))
	}
	if all[0].Kind != core.ReportBhav || all[0].Folder != "c" {
		t.Errorf("expected replaced bhav first, got %+v", all[0])
	}
	if all[1].Kind != core.ReportMA {
		t.Errorf("expected ma second, got %s", all[1].Kind)
	}
}

func TestReport_URL(t *testing.T) {
	rep := Report{
		Kind: core.ReportMA,
		URL:  func(d time.Time) string { return "MA" + d.Format("020106") + ".csv" },
	}
	if got := rep.URL(time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)); got != "MA010423.csv" {
		t.Errorf("got %s", got)
	}
}

func TestResponse_OK(t *testing.T) {
	var nilResp *Response
	if nilResp.OK() {
		t.Error("nil response should not be OK")
	}
	if (&Response{StatusCode: http.StatusNotFound}).OK() {
		t.Error("404 should not be OK")
	}
	if !(&Response{StatusCode: http.StatusOK}).OK() {
		t.Error("200 should be OK")
	}
}

func TestFetcherFunc(t *testing.T) {
	var f Fetcher = FetcherFunc(func(ctx context.Context, url string) (*Response, error) {
		return &Response{StatusCode: 200, URL: url}, nil
	})

	resp, err := f.Fetch(context.Background(), "https://example.test/x.csv")
	if err != nil || resp.URL != "https://example.test/x.csv" {
		t.Errorf("unexpected %v %v", resp, err)
	}
}
