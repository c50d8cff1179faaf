package worker

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type metrics struct {
	registry             *prometheus.Registry
	runsTotal            *prometheus.CounterVec
	runDuration          *prometheus.HistogramVec
	activeRuns           prometheus.Gauge
	imagesProcessedTotal prometheus.Counter
	variantsWrittenTotal prometheus.Counter
	bytesWrittenTotal    prometheus.Counter
	pixelsWrittenTotal   prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelforge_runs_total",
			Help: "Total directory runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixelforge_run_duration_seconds",
			Help:    "Wall-clock duration of each directory run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pixelforge_active_runs",
			Help: "Directory runs currently in progress.",
		}),
		imagesProcessedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelforge_images_processed_total",
			Help: "Source images fully processed across successful runs.",
		}),
		variantsWrittenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelforge_variants_written_total",
			Help: "Derived files written across successful runs.",
		}),
		bytesWrittenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelforge_bytes_written_total",
			Help: "Bytes of derived files after optimization.",
		}),
		pixelsWrittenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelforge_pixels_written_total",
			Help: "Pixels across all derived files.",
		}),
	}

	registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.activeRuns,
		m.imagesProcessedTotal,
		m.variantsWrittenTotal,
		m.bytesWrittenTotal,
		m.pixelsWrittenTotal,
	)
	return m
}

// writeTextfile dumps the registry in the text exposition format, for node_exporter's textfile collector.
func (m *metrics) writeTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
