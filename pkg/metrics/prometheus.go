package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/creditgate/internal/contracts"
)

// Recorder records screening and API metrics on its own registry
// ⭐ SSOT: metric names are defined here only
type Recorder struct {
	registry *prometheus.Registry

	scansTotal     *prometheus.CounterVec
	scanDuration   prometheus.Histogram
	tickers        *prometheus.GaugeVec
	systemState    *prometheus.GaugeVec
	alertsTotal    *prometheus.CounterVec
	fetchErrors    *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	jobRuns        *prometheus.CounterVec
}

// New creates a recorder with Go and process collectors registered
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		scansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditgate_scans_total",
				Help: "Total number of screening runs by resulting system state",
			},
			[]string{"state"},
		),
		scanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "creditgate_scan_duration_seconds",
				Help:    "Duration of a full scan including data fetch and persistence",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		tickers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "creditgate_tickers",
				Help: "Tickers in the last run by outcome",
			},
			[]string{"outcome"},
		),
		systemState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "creditgate_system_state",
				Help: "1 for the current system state, 0 for the others",
			},
			[]string{"state"},
		),
		alertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditgate_alerts_total",
				Help: "Failure-mode alerts raised, by mode and severity",
			},
			[]string{"mode", "severity"},
		),
		fetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditgate_fetch_errors_total",
				Help: "Market and options data fetch errors by source",
			},
			[]string{"source"},
		),
		requestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "creditgate_http_request_duration_seconds",
				Help:    "API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditgate_job_runs_total",
				Help: "Scheduled job executions by job and result",
			},
			[]string{"job", "result"},
		),
	}
}

// RecordRun records the outcome of a screening run
func (r *Recorder) RecordRun(run *contracts.ScreeningRun, elapsed time.Duration) {
	r.scansTotal.WithLabelValues(string(run.SystemState)).Inc()
	r.scanDuration.Observe(elapsed.Seconds())

	r.tickers.WithLabelValues("evaluated").Set(float64(len(run.TickersEvaluated)))
	r.tickers.WithLabelValues("qualified").Set(float64(len(run.Qualified)))
	r.tickers.WithLabelValues("failed").Set(float64(len(run.Failed)))

	r.RecordState(run.SystemState)

	for _, a := range run.Alerts {
		r.alertsTotal.WithLabelValues(string(a.Mode), string(a.Severity)).Inc()
	}
}

// RecordState sets the system state gauge
func (r *Recorder) RecordState(state contracts.SystemState) {
	for _, s := range []contracts.SystemState{
		contracts.StateRiskOn,
		contracts.StateReducedRisk,
		contracts.StateRiskOff,
		contracts.StateUnknown,
	} {
		v := 0.0
		if s == state {
			v = 1
		}
		r.systemState.WithLabelValues(string(s)).Set(v)
	}
}

// RecordFetchError counts a data fetch failure
func (r *Recorder) RecordFetchError(source string) {
	r.fetchErrors.WithLabelValues(source).Inc()
}

// RecordRequest records API request latency
func (r *Recorder) RecordRequest(route, method string, status int, elapsed time.Duration) {
	r.requestLatency.WithLabelValues(route, method, http.StatusText(status)).Observe(elapsed.Seconds())
}

// RecordJob counts a scheduled job execution
func (r *Recorder) RecordJob(job string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	r.jobRuns.WithLabelValues(job, result).Inc()
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
