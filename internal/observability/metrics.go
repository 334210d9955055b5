package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline.
type Metrics struct {
	FetchAttempts prometheus.Counter
	FetchRetries  prometheus.Counter
	FetchAbsences prometheus.Counter
	RowsEmitted   prometheus.Counter

	PartitionsCompleted    prometheus.Counter
	PartitionsSkipped      prometheus.Counter
	PartitionWriteFailures prometheus.Counter

	InflightRequests prometheus.Gauge

	FetchDuration     prometheus.Histogram
	PartitionRows     prometheus.Histogram
	PartitionDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "usgs_iv",
			Name:      "fetch_attempts_total",
			Help:      "Total IV requests issued, including retries.",
		}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "usgs_iv",
			Name:      "fetch_retries_total",
			Help:      "Total failed attempts that were retried.",
		}),
		FetchAbsences: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "usgs_iv",
			Name:      "fetch_absences_total",
			Help:      "Total sites that exhausted all attempts and contributed zero rows.",
		}),
		RowsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "usgs_iv",
			Name:      "rows_emitted_total",
			Help:      "Total observation rows written across all partitions.",
		}),
		PartitionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "usgs_iv",
			Name:      "partitions_completed_total",
			Help:      "Total partitions committed this run.",
		}),
		PartitionsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "usgs_iv",
			Name:      "partitions_skipped_total",
			Help:      "Total partitions skipped because their output already exists.",
		}),
		PartitionWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "usgs_iv",
			Name:      "partition_write_failures_total",
			Help:      "Total failed partition commits.",
		}),
		InflightRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "usgs_iv",
			Name:      "inflight_requests",
			Help:      "IV requests currently holding a concurrency slot.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "usgs_iv",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a single IV request attempt.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		PartitionRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "usgs_iv",
			Name:      "partition_rows",
			Help:      "Observation rows per committed partition.",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 7),
		}),
		PartitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "usgs_iv",
			Name:      "partition_duration_seconds",
			Help:      "Wall time per partition, fan-out through commit.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
	}

	prometheus.MustRegister(
		m.FetchAttempts,
		m.FetchRetries,
		m.FetchAbsences,
		m.RowsEmitted,
		m.PartitionsCompleted,
		m.PartitionsSkipped,
		m.PartitionWriteFailures,
		m.InflightRequests,
		m.FetchDuration,
		m.PartitionRows,
		m.PartitionDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FetchAttempts:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "usgs_iv", Name: "fetch_attempts_total"}),
		FetchRetries:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "usgs_iv", Name: "fetch_retries_total"}),
		FetchAbsences:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "usgs_iv", Name: "fetch_absences_total"}),
		RowsEmitted:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: "usgs_iv", Name: "rows_emitted_total"}),
		PartitionsCompleted:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "usgs_iv", Name: "partitions_completed_total"}),
		PartitionsSkipped:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "usgs_iv", Name: "partitions_skipped_total"}),
		PartitionWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "usgs_iv", Name: "partition_write_failures_total"}),
		InflightRequests:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "usgs_iv", Name: "inflight_requests"}),
		FetchDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "usgs_iv", Name: "fetch_duration_seconds"}),
		PartitionRows:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "usgs_iv", Name: "partition_rows"}),
		PartitionDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "usgs_iv", Name: "partition_duration_seconds"}),
	}
}
