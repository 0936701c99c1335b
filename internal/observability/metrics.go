package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Run outcomes used as the etlRunsTotal label.
const (
	OutcomeSuccess   = "success"
	OutcomeTransport = "transport_error"
	OutcomeTransform = "transform_error"
	OutcomeLoad      = "load_error"
)

var (
	registry *prometheus.Registry

	// Timeline API call count by status label. Watch for: non-success after key rotation.
	WeatherAPICallsTotal *prometheus.CounterVec

	// Timeline API latency. Long date ranges are slow; watch p99 against weather_api.timeout.
	WeatherAPIDuration *prometheus.HistogramVec

	// Timeline API failures by category (client.ErrorCategory).
	WeatherAPIErrorsTotal *prometheus.CounterVec

	// Records produced by the transform stage.
	RecordsTransformedTotal prometheus.Counter

	// Rows committed to the warehouse.
	RowsLoadedTotal prometheus.Counter

	// Batch insert duration (begin to commit/rollback).
	LoadDuration *prometheus.HistogramVec

	// Runs by outcome.
	RunsTotal *prometheus.CounterVec

	// Unix time of the last successful load; alert when stale.
	LastSuccessTimestamp prometheus.Gauge
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of Timeline API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "Timeline API latency in seconds (per request)",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)
	WeatherAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiErrorsTotal",
			Help: "Total number of failed Timeline API calls by error category",
		},
		[]string{"category"},
	)
	RecordsTransformedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "etlRecordsTransformedTotal",
			Help: "Total number of daily records produced from API reports",
		},
	)
	RowsLoadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "etlRowsLoadedTotal",
			Help: "Total number of rows committed to the warehouse",
		},
	)
	LoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etlLoadDurationSeconds",
			Help:    "Batch insert duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etlRunsTotal",
			Help: "Total number of loader runs by outcome",
		},
		[]string{"outcome"},
	)
	LastSuccessTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "etlLastSuccessTimestampSeconds",
			Help: "Unix timestamp of the last successful load",
		},
	)

	registry.MustRegister(
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIErrorsTotal,
		RecordsTransformedTotal, RowsLoadedTotal, LoadDuration,
		RunsTotal, LastSuccessTimestamp,
	)
}

// RecordRun counts a finished run and stamps the success gauge when outcome is OutcomeSuccess.
func RecordRun(outcome string) {
	RunsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		LastSuccessTimestamp.Set(float64(time.Now().Unix()))
	}
}

// Gatherer exposes the private registry for pushing and tests.
func Gatherer() prometheus.Gatherer {
	return registry
}
