package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// conversion pipeline.
type Metrics struct {
	RecordingsConverted prometheus.Counter
	ConversionErrors    prometheus.Counter
	WatcherRunning      prometheus.Gauge

	// Per-conversion detail.
	FilesParsed        prometheus.Counter
	SegmentsRead       prometheus.Counter
	SamplesWritten     prometheus.Counter
	RunsAssembled      prometheus.Counter
	ArchiveBytes       prometheus.Counter
	ConversionDuration prometheus.Histogram

	// Calibration matching.
	Calibrations *prometheus.CounterVec // labels: kind={receiver,sensor}, result={matched,missing}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordingsConverted,
		m.ConversionErrors,
		m.WatcherRunning,
		m.FilesParsed,
		m.SegmentsRead,
		m.SamplesWritten,
		m.RunsAssembled,
		m.ArchiveBytes,
		m.ConversionDuration,
		m.Calibrations,
	)
	return m
}

// NewMetricsForTesting creates Metrics without touching the default
// registry, avoiding "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordingsConverted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phx2mth5",
			Name:      "recordings_converted_total",
			Help:      "Total station recordings successfully converted to MTH5.",
		}),
		ConversionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phx2mth5",
			Name:      "conversion_errors_total",
			Help:      "Total recordings that failed to convert.",
		}),
		WatcherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "phx2mth5",
			Name:      "watcher_running",
			Help:      "1 when the directory watcher is active, 0 when shut down.",
		}),
		FilesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phx2mth5",
			Name:      "files_parsed_total",
			Help:      "Total Phoenix data files parsed.",
		}),
		SegmentsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phx2mth5",
			Name:      "segments_read_total",
			Help:      "Total burst segments decoded from segmented files.",
		}),
		SamplesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phx2mth5",
			Name:      "samples_written_total",
			Help:      "Total samples written into archives.",
		}),
		RunsAssembled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phx2mth5",
			Name:      "runs_assembled_total",
			Help:      "Total continuous runs assembled across conversions.",
		}),
		ArchiveBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phx2mth5",
			Name:      "archive_bytes_total",
			Help:      "Total bytes of produced MTH5 archives.",
		}),
		ConversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "phx2mth5",
			Name:      "conversion_duration_seconds",
			Help:      "Wall time of a complete station conversion.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		Calibrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phx2mth5",
			Name:      "calibrations_total",
			Help:      "Calibration lookups by kind and result.",
		}, []string{"kind", "result"}),
	}
}
