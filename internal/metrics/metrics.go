package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Download outcomes
const (
	OutcomeSaved   = "saved"
	OutcomeMissing = "missing"
	OutcomeFailed  = "failed"
)

// Stage statuses
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Registry holds all Prometheus metrics. A nil *Registry discards
// every observation.
type Registry struct {
	*prometheus.Registry

	// Source HTTP metrics
	sourceRequestsTotal    *prometheus.CounterVec
	sourceRequestDuration  *prometheus.HistogramVec
	sourceRequestsInFlight prometheus.Gauge

	// Pipeline metrics
	downloadsTotal   *prometheus.CounterVec
	sectorSymbols    *prometheus.GaugeVec
	tableRows        *prometheus.GaugeVec
	stageRuns        *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	stageLastSuccess *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		sourceRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nseetl_source_requests_total",
				Help: "Total number of requests to the exchange",
			},
			[]string{"host", "status"},
		),

		sourceRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nseetl_source_request_duration_seconds",
				Help:    "Exchange request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host"},
		),

		sourceRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nseetl_source_requests_in_flight",
				Help: "Number of exchange requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.sourceRequestsTotal)
	reg.MustRegister(r.sourceRequestDuration)
	reg.MustRegister(r.sourceRequestsInFlight)

	// Pipeline metrics
	r.downloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nseetl_downloads_total",
			Help: "Raw report downloads by report kind and outcome",
		},
		[]string{"report", "outcome"},
	)
	r.sectorSymbols = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nseetl_sector_symbols",
			Help: "Constituent symbols per sector in the latest snapshot",
		},
		[]string{"sector"},
	)
	r.tableRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nseetl_table_rows",
			Help: "Rows written to each staging and warehouse table",
		},
		[]string{"table"},
	)
	r.stageRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nseetl_stage_runs_total",
			Help: "Pipeline stage runs by status",
		},
		[]string{"stage", "status"},
	)
	r.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nseetl_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 900, 1800},
		},
		[]string{"stage"},
	)
	r.stageLastSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nseetl_stage_last_success_timestamp_seconds",
			Help: "Unix time of the last successful stage run",
		},
		[]string{"stage"},
	)

	reg.MustRegister(r.downloadsTotal)
	reg.MustRegister(r.sectorSymbols)
	reg.MustRegister(r.tableRows)
	reg.MustRegister(r.stageRuns)
	reg.MustRegister(r.stageDuration)
	reg.MustRegister(r.stageLastSuccess)

	return r
}

// RecordRequest records metrics for an exchange request.
func (r *Registry) RecordRequest(host string, status int, duration float64) {
	if r == nil {
		return
	}
	statusStr := statusToString(status)
	r.sourceRequestsTotal.WithLabelValues(host, statusStr).Inc()
	r.sourceRequestDuration.WithLabelValues(host).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	if r == nil {
		return
	}
	r.sourceRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	if r == nil {
		return
	}
	r.sourceRequestsInFlight.Dec()
}

// RecordDownload records one raw report download attempt.
func (r *Registry) RecordDownload(report, outcome string) {
	if r == nil {
		return
	}
	r.downloadsTotal.WithLabelValues(report, outcome).Inc()
}

// SetSectorSymbols sets the snapshot size of a sector.
func (r *Registry) SetSectorSymbols(sector string, count int) {
	if r == nil {
		return
	}
	r.sectorSymbols.WithLabelValues(sector).Set(float64(count))
}

// SetTableRows sets the row count of a written table.
func (r *Registry) SetTableRows(table string, count int) {
	if r == nil {
		return
	}
	r.tableRows.WithLabelValues(table).Set(float64(count))
}

// RecordStage records a stage run. finished is the unix time the stage ended.
func (r *Registry) RecordStage(stage, status string, duration float64, finished int64) {
	if r == nil {
		return
	}
	r.stageRuns.WithLabelValues(stage, status).Inc()
	r.stageDuration.WithLabelValues(stage).Observe(duration)
	if status == StatusOK {
		r.stageLastSuccess.WithLabelValues(stage).Set(float64(finished))
	}
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status == 0:
		return "error"
	default:
		return "1xx"
	}
}
