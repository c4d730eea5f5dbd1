package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTransport_RecordsRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.csv" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	reg := NewRegistry()
	client := &http.Client{Transport: Transport(reg, nil)}

	for _, p := range []string{"/a.csv", "/missing.csv"} {
		resp, err := client.Get(server.URL + p)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
	}

	mf := findFamily(t, reg, "nseetl_source_requests_total")
	if mf == nil {
		t.Fatal("expected nseetl_source_requests_total to be recorded")
	}
	statuses := map[string]float64{}
	for _, m := range mf.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "status" {
				statuses[l.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	if statuses["2xx"] != 1 || statuses["4xx"] != 1 {
		t.Errorf("unexpected status counts %v", statuses)
	}

	if mf := findFamily(t, reg, "nseetl_source_requests_in_flight"); mf.GetMetric()[0].GetGauge().GetValue() != 0 {
		t.Error("expected no requests in flight")
	}
}

func TestTransport_RecordsTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	reg := NewRegistry()
	client := &http.Client{Transport: Transport(reg, nil)}
	if _, err := client.Get(url); err == nil {
		t.Fatal("expected error from closed server")
	}

	mf := findFamily(t, reg, "nseetl_source_requests_total")
	if mf == nil || !hasLabel(mf.GetMetric()[0], "status", "error") {
		t.Error("expected an error-labelled request")
	}
}

func TestLoggingTransport(t *testing.T) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	logger := zap.New(core)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{Transport: LoggingTransport(logger, nil)}
	resp, err := client.Get(server.URL + "/products/content/x.csv")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v", err)
	}
	if entry["msg"] != "source request" {
		t.Errorf("unexpected message %v", entry["msg"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("expected status 200, got %v", entry["status"])
	}
	if !strings.HasSuffix(entry["url"].(string), "/products/content/x.csv") {
		t.Errorf("unexpected url %v", entry["url"])
	}
}

func TestRegistry_Handler(t *testing.T) {
	reg := NewRegistry()
	reg.SetTableRows("fact_MA_report", 7)

	w := httptest.NewRecorder()
	reg.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `nseetl_table_rows{table="fact_MA_report"} 7`) {
		t.Error("expected table rows in exposition")
	}
}

func TestRegistry_WriteTextfile(t *testing.T) {
	reg := NewRegistry()
	reg.RecordDownload("ma_report", OutcomeSaved)

	path := filepath.Join(t.TempDir(), "nseetl.prom")
	if err := reg.WriteTextfile(path); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(data), `nseetl_downloads_total{outcome="saved",report="ma_report"} 1`) {
		t.Errorf("unexpected textfile contents:\n%s", data)
	}
}
